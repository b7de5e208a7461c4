package models

import (
	"fmt"
	"strings"
)

// Card is a catalog row: one printing of a card as imported from Scryfall.
// Catalog rows are read-only to the collection code.
type Card struct {
	ID              string // Scryfall UUID
	CardmarketID    *int   // Nullable
	Layout          string
	ScryfallURI     string
	URI             string
	Rarity          string
	ColorIdentity   string // e.g. "WU"; empty for colorless
	ManaCost        *string
	Name            string
	SetCode         string
	CollectorNumber string
	Legalities      map[string]string // format -> "legal", "not_legal", ...
	Digital         bool
}

// IsLegal reports whether the card is legal in the given format.
func (c *Card) IsLegal(format string) bool {
	return c.Legalities[format] == "legal"
}

// Set is an expansion code and its display name.
type Set struct {
	Code string
	Name string
}

// Image holds the small image of a card. Data is nil until fetched.
type Image struct {
	CardID string
	URI    *string
	Data   []byte
}

// LocationKey is the human key of a storage location, written as Type[Reference].
type LocationKey struct {
	Type      string
	Reference string
}

// String formats the key as Type[Reference].
func (k LocationKey) String() string {
	return fmt.Sprintf("%s[%s]", k.Type, k.Reference)
}

// Location is a physical storage unit such as a box or a binder page.
type Location struct {
	ID        int64
	Type      string
	Reference string
}

// Key returns the composite human key of the location.
func (l *Location) Key() LocationKey {
	return LocationKey{Type: l.Type, Reference: l.Reference}
}

// String formats the location as Type[Reference].
func (l *Location) String() string {
	return l.Key().String()
}

// CollectionEntry is a single owned physical copy.
type CollectionEntry struct {
	ID         int64
	CardID     string
	Language   string
	LocationID int64
}

// EntryDetail is a collection entry joined with its card, used to describe
// entries to the user before they are removed or moved.
type EntryDetail struct {
	EntryID         int64
	Name            string
	Language        string
	SetCode         string
	CollectorNumber string
	LocationID      int64
	Location        LocationKey
}

// String renders the detail the way a pull or undo prompt lists it.
func (d EntryDetail) String() string {
	return strings.Join([]string{d.Name, d.Language, d.SetCode, d.CollectorNumber}, " ")
}

// LocationCount is the number of copies of a card held at one location.
type LocationCount struct {
	Location Location
	Count    int
}

// OwnedCard is a search hit: a card name with every owned printing id and the
// total number of owned copies.
type OwnedCard struct {
	Name    string
	CardIDs []string
	Count   int
}

// CoverageRow is one owned copy of a requested card, as returned by the
// coverage query of the allocation engine.
type CoverageRow struct {
	Location   Location
	NameFolded string
	EntryID    int64
	CardID     string
}
