// Package deckimport parses wish-lists for the allocation engine, either from
// a deck-list file ("<quantity> <Name>" per line) or from literal card names.
package deckimport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

var (
	// ErrMalformedRequestLine is matched by MalformedLinesError.
	ErrMalformedRequestLine = errors.New("malformed request line")

	// ErrDuplicateRequest is matched by DuplicateRequestError.
	ErrDuplicateRequest = errors.New("duplicate request line")
)

// deckLineRegex matches "4 Lightning Bolt". Quantity only validates the shape.
var deckLineRegex = regexp.MustCompile(`^(\d+)\s+(\S.*)$`)

// LineError is one deck-list line that could not be parsed.
type LineError struct {
	Number int
	Text   string
}

// MalformedLinesError lists every line of a deck-list that does not have the
// "<quantity> <Name>" shape.
type MalformedLinesError struct {
	Lines []LineError
}

func (e *MalformedLinesError) Error() string {
	parts := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		parts[i] = fmt.Sprintf("line %d: %q", l.Number, l.Text)
	}
	return fmt.Sprintf("%d malformed deck-list line(s): %s", len(e.Lines), strings.Join(parts, "; "))
}

func (e *MalformedLinesError) Is(target error) bool {
	return target == ErrMalformedRequestLine
}

// DuplicateRequestError reports a raw deck-list line that occurs more than once.
type DuplicateRequestError struct {
	Line        string
	FirstNumber int
	Number      int
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("line %d repeats line %d: %q", e.Number, e.FirstNumber, e.Line)
}

func (e *DuplicateRequestError) Is(target error) bool {
	return target == ErrDuplicateRequest
}

// WishList is a deduplicated, ordered set of requested card names.
type WishList struct {
	names  []string
	folded map[string]bool
}

// NewWishList builds a wish-list from names, dropping blank names and
// case-insensitive duplicates. The first spelling of a name is kept.
func NewWishList(names ...string) *WishList {
	w := &WishList{folded: make(map[string]bool)}
	for _, name := range names {
		w.Add(name)
	}
	return w
}

// Add appends name unless an equal name (ignoring case) is already present.
// It reports whether the name was added.
func (w *WishList) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	key := models.FoldName(name)
	if w.folded[key] {
		return false
	}
	w.folded[key] = true
	w.names = append(w.names, name)
	return true
}

// Names returns the names in first-appearance order.
func (w *WishList) Names() []string {
	out := make([]string, len(w.names))
	copy(out, w.names)
	return out
}

// Len returns the number of distinct names.
func (w *WishList) Len() int {
	return len(w.names)
}

// ParseDeckList reads a deck-list. Blank lines are ignored. Every malformed
// line is reported in one MalformedLinesError; a raw line that occurs twice
// yields a DuplicateRequestError. Malformed lines are reported first.
func ParseDeckList(r io.Reader) (*WishList, error) {
	var (
		malformed []LineError
		dup       *DuplicateRequestError
		seen      = make(map[string]int)
		list      = NewWishList()
	)

	scanner := bufio.NewScanner(r)
	number := 0
	for scanner.Scan() {
		number++
		raw := strings.TrimRight(scanner.Text(), "\r")
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if first, ok := seen[line]; ok {
			if dup == nil {
				dup = &DuplicateRequestError{Line: line, FirstNumber: first, Number: number}
			}
			continue
		}
		seen[line] = number

		matches := deckLineRegex.FindStringSubmatch(line)
		if matches == nil {
			malformed = append(malformed, LineError{Number: number, Text: line})
			continue
		}
		list.Add(matches[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read deck-list: %w", err)
	}

	if len(malformed) > 0 {
		return nil, &MalformedLinesError{Lines: malformed}
	}
	if dup != nil {
		return nil, dup
	}
	return list, nil
}

// ParseDeckListFile opens path and parses it with ParseDeckList.
func ParseDeckListFile(path string) (*WishList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open deck-list: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseDeckList(f)
}
