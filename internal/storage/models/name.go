package models

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldName returns the case-folded form of a card name used for
// case-insensitive exact matching. Unicode folding is needed because card
// names such as "Æther Vial" or "Lim-Dûl's Vault" are not ASCII.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
