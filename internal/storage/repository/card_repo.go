package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// SearchFilter narrows a search over owned cards.
type SearchFilter struct {
	// NameParts must all occur in the card name (case-insensitive).
	NameParts []string

	// LegalIn restricts to cards legal in the format (e.g. "commander").
	LegalIn string

	// ColorIdentity restricts to cards whose color identity is a subset of
	// these colors. Nil means any identity.
	ColorIdentity *string
}

// IsEmpty reports whether the filter has no criteria at all.
func (f SearchFilter) IsEmpty() bool {
	return len(f.NameParts) == 0 && f.LegalIn == "" && f.ColorIdentity == nil
}

// CardRepository is the read side of the catalog plus the upsert used by the importer.
type CardRepository interface {
	// Upsert inserts or replaces a catalog card.
	Upsert(ctx context.Context, card *models.Card) error

	// GetByID retrieves a card by its Scryfall id. Returns nil if not found.
	GetByID(ctx context.Context, id string) (*models.Card, error)

	// LookupByName finds a card by case-insensitive exact name.
	// When several printings share the name the lowest id is returned.
	// Returns nil if not found.
	LookupByName(ctx context.Context, name string) (*models.Card, error)

	// LookupBySetAndNumber finds the printing with the given set code and collector number.
	// Returns nil if not found.
	LookupBySetAndNumber(ctx context.Context, setCode, number string) (*models.Card, error)

	// NamesLike returns distinct card names whose folded name starts with prefix.
	NamesLike(ctx context.Context, prefix string, limit int) ([]string, error)

	// Names returns every distinct card name in the catalog, sorted.
	Names(ctx context.Context) ([]string, error)

	// SearchOwned returns owned cards matching the filter, grouped by name.
	SearchOwned(ctx context.Context, filter SearchFilter) ([]*models.OwnedCard, error)

	// Count returns the number of catalog cards.
	Count(ctx context.Context) (int, error)
}

type cardRepository struct {
	db Querier
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db Querier) CardRepository {
	return &cardRepository{db: db}
}

const cardColumns = `id, cardmarket_id, layout, scryfall_uri, uri, rarity, color_identity,
	mana_cost, name, set_code, collector_number, legalities, digital`

func (r *cardRepository) Upsert(ctx context.Context, card *models.Card) error {
	legalities, err := json.Marshal(card.Legalities)
	if err != nil {
		return fmt.Errorf("failed to marshal legalities: %w", err)
	}
	if card.Legalities == nil {
		legalities = []byte("{}")
	}

	query := `
		INSERT INTO cards (` + cardColumns + `, name_folded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cardmarket_id = excluded.cardmarket_id,
			layout = excluded.layout,
			scryfall_uri = excluded.scryfall_uri,
			uri = excluded.uri,
			rarity = excluded.rarity,
			color_identity = excluded.color_identity,
			mana_cost = excluded.mana_cost,
			name = excluded.name,
			set_code = excluded.set_code,
			collector_number = excluded.collector_number,
			legalities = excluded.legalities,
			digital = excluded.digital,
			name_folded = excluded.name_folded
	`

	_, err = r.db.ExecContext(ctx, query,
		card.ID, card.CardmarketID, card.Layout, card.ScryfallURI, card.URI, card.Rarity,
		card.ColorIdentity, card.ManaCost, card.Name, card.SetCode, card.CollectorNumber,
		string(legalities), card.Digital, models.FoldName(card.Name),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert card %s: %w", card.ID, err)
	}
	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *cardRepository) LookupByName(ctx context.Context, name string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE name_folded = ? ORDER BY id LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, models.FoldName(name)))
}

func (r *cardRepository) LookupBySetAndNumber(ctx context.Context, setCode, number string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE set_code = ? AND collector_number = ? ORDER BY id LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.ToLower(setCode), number))
}

func (r *cardRepository) NamesLike(ctx context.Context, prefix string, limit int) ([]string, error) {
	query := `
		SELECT DISTINCT name FROM cards
		WHERE name_folded LIKE ? ESCAPE '\'
		ORDER BY name
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, escapeLike(models.FoldName(prefix))+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query card names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan card name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card names: %w", err)
	}
	return names, nil
}

func (r *cardRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT name FROM cards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan card name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card names: %w", err)
	}
	return names, nil
}

func (r *cardRepository) SearchOwned(ctx context.Context, filter SearchFilter) ([]*models.OwnedCard, error) {
	var (
		where []string
		args  []any
	)
	for _, part := range filter.NameParts {
		where = append(where, `cards.name_folded LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(models.FoldName(part))+"%")
	}
	if filter.LegalIn != "" {
		where = append(where, `json_extract(cards.legalities, ?) = 'legal'`)
		args = append(args, "$."+filter.LegalIn)
	}

	query := `
		SELECT cards.name, cards.id, cards.color_identity, COUNT(collection.id)
		FROM cards
		INNER JOIN collection ON collection.card_id = cards.id
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " GROUP BY cards.id ORDER BY cards.name, cards.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byName := make(map[string]*models.OwnedCard)
	var order []string
	for rows.Next() {
		var name, id, identity string
		var count int
		if err := rows.Scan(&name, &id, &identity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		if filter.ColorIdentity != nil && !colorSubset(identity, *filter.ColorIdentity) {
			continue
		}
		owned, ok := byName[name]
		if !ok {
			owned = &models.OwnedCard{Name: name}
			byName[name] = owned
			order = append(order, name)
		}
		owned.CardIDs = append(owned.CardIDs, id)
		owned.Count += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search hits: %w", err)
	}

	sort.Strings(order)
	result := make([]*models.OwnedCard, 0, len(order))
	for _, name := range order {
		result = append(result, byName[name])
	}
	return result, nil
}

func (r *cardRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func (r *cardRepository) scanOne(row *sql.Row) (*models.Card, error) {
	var (
		card       models.Card
		legalities string
	)
	err := row.Scan(
		&card.ID, &card.CardmarketID, &card.Layout, &card.ScryfallURI, &card.URI, &card.Rarity,
		&card.ColorIdentity, &card.ManaCost, &card.Name, &card.SetCode, &card.CollectorNumber,
		&legalities, &card.Digital,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}

	if err := json.Unmarshal([]byte(legalities), &card.Legalities); err != nil {
		return nil, fmt.Errorf("failed to parse legalities of %s: %w", card.ID, err)
	}
	return &card, nil
}

// colorSubset reports whether every color of identity occurs in allowed.
func colorSubset(identity, allowed string) bool {
	allowed = strings.ToUpper(allowed)
	for _, c := range strings.ToUpper(identity) {
		if !strings.ContainsRune(allowed, c) {
			return false
		}
	}
	return true
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
