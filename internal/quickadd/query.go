// Package quickadd parses the one-line add query of the shell, such as
// "lea 161 2 de box[3]", and previews what adding it would do.
package quickadd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
	"github.com/ramonehamilton/mtg-collection/internal/storage/repository"
)

// DefaultLanguages are the language codes recognized when none are configured.
var DefaultLanguages = []string{"en", "de", "jp", "sp", "fr"}

// ErrIncomplete means the query names no set code or no collector number.
var ErrIncomplete = errors.New("query needs a set code and a collector number")

// Query is a parsed add query.
type Query struct {
	SetCode         string
	CollectorNumber string
	Amount          int
	Language        string
	Location        *models.LocationKey
}

// Complete reports whether the query identifies a printing and a location.
func (q *Query) Complete() bool {
	return q.SetCode != "" && q.CollectorNumber != "" && q.Location != nil
}

// Config configures a Parser.
type Config struct {
	Sets       repository.SetRepository
	Cards      repository.CardRepository
	Locations  repository.LocationRepository
	Collection repository.CollectionRepository

	// Languages lists the accepted language codes; the first is the default.
	Languages []string
}

// Parser parses add queries against the known set codes.
type Parser struct {
	sets       repository.SetRepository
	cards      repository.CardRepository
	locations  repository.LocationRepository
	collection repository.CollectionRepository
	languages  map[string]bool
	fallback   string
}

// NewParser creates a new query parser.
func NewParser(config Config) (*Parser, error) {
	if config.Sets == nil {
		return nil, fmt.Errorf("set repository is required")
	}
	if len(config.Languages) == 0 {
		config.Languages = DefaultLanguages
	}

	p := &Parser{
		sets:       config.Sets,
		cards:      config.Cards,
		locations:  config.Locations,
		collection: config.Collection,
		languages:  make(map[string]bool, len(config.Languages)),
		fallback:   strings.ToLower(config.Languages[0]),
	}
	for _, lang := range config.Languages {
		p.languages[strings.ToLower(lang)] = true
	}
	return p, nil
}

// Parse reads the tokens of input in any order. A language code sets the
// language, a Type[Reference] token the location (any token with a bracket
// must parse as one) and a known set code the
// set. The first other token is the collector number; a number after it is
// the amount. A later unmatched token replaces the collector number.
func (p *Parser) Parse(ctx context.Context, input string) (*Query, error) {
	q := &Query{Amount: 1, Language: p.fallback}

	for _, part := range strings.Fields(input) {
		lower := strings.ToLower(part)
		switch {
		case p.languages[lower]:
			q.Language = lower
			continue
		case strings.ContainsAny(part, "[]"):
			key, err := models.ParseLocationKey(part)
			if err != nil {
				return nil, err
			}
			q.Location = &key
			continue
		}

		if q.CollectorNumber != "" {
			if n, err := strconv.Atoi(part); err == nil {
				if n <= 0 {
					return nil, fmt.Errorf("amount must be positive, got %d", n)
				}
				q.Amount = n
				continue
			}
		}

		set, err := p.sets.Get(ctx, lower)
		if err != nil {
			return nil, err
		}
		if set != nil {
			q.SetCode = set.Code
			continue
		}
		q.CollectorNumber = part
	}

	return q, nil
}

// Preview describes the effect of adding a query.
type Preview struct {
	Card  *models.Card
	Set   *models.Set
	Owned int

	// AtLocation is the number of copies already at the location; NewLocation
	// is true when the location does not exist yet.
	AtLocation  int
	NewLocation bool
}

// Preview looks up the printing and location named by q.
// It returns ErrIncomplete if q has no set or number.
func (p *Parser) Preview(ctx context.Context, q *Query) (*Preview, error) {
	if q.SetCode == "" || q.CollectorNumber == "" {
		return nil, ErrIncomplete
	}
	if p.cards == nil || p.collection == nil || p.locations == nil {
		return nil, fmt.Errorf("preview needs card, location and collection repositories")
	}

	card, err := p.cards.LookupBySetAndNumber(ctx, q.SetCode, q.CollectorNumber)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("no card %s %s in catalog", strings.ToUpper(q.SetCode), q.CollectorNumber)
	}

	set, err := p.sets.Get(ctx, q.SetCode)
	if err != nil {
		return nil, err
	}
	owned, err := p.collection.CountByCard(ctx, card.ID)
	if err != nil {
		return nil, err
	}

	preview := &Preview{Card: card, Set: set, Owned: owned}
	if q.Location != nil {
		loc, err := p.locations.GetByKey(ctx, *q.Location)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			preview.NewLocation = true
		} else if preview.AtLocation, err = p.collection.CountByLocation(ctx, loc.ID); err != nil {
			return nil, err
		}
	}
	return preview, nil
}

// String renders the preview on one line, e.g.
// "Lightning Bolt (LEA 161, Limited Edition Alpha) owned 3".
func (pv *Preview) String() string {
	setName := strings.ToUpper(pv.Card.SetCode)
	if pv.Set != nil {
		setName = pv.Set.Name
	}
	return fmt.Sprintf("%s (%s %s, %s) owned %d",
		pv.Card.Name, strings.ToUpper(pv.Card.SetCode), pv.Card.CollectorNumber, setName, pv.Owned)
}
