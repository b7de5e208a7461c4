package repository

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// CollectionRepository handles the owned physical copies, one row per copy.
type CollectionRepository interface {
	// Insert adds one copy and returns its generated id.
	Insert(ctx context.Context, cardID, language string, locationID int64) (int64, error)

	// CountByCard returns the number of owned copies of a printing across all locations.
	CountByCard(ctx context.Context, cardID string) (int, error)

	// CountByLocation returns the number of copies stored at a location.
	CountByLocation(ctx context.Context, locationID int64) (int, error)

	// EntriesAt returns up to limit entry ids of a printing at a location, lowest id first.
	// A limit <= 0 returns all of them.
	EntriesAt(ctx context.Context, locationID int64, cardID string, limit int) ([]int64, error)

	// Relocate sets the location of the given entries. It returns the number of rows changed.
	Relocate(ctx context.Context, entryIDs []int64, locationID int64) (int64, error)

	// Delete removes the given entries. It returns the number of rows removed.
	Delete(ctx context.Context, entryIDs []int64) (int64, error)

	// Describe joins entries with their card and location for display.
	Describe(ctx context.Context, entryIDs []int64) ([]models.EntryDetail, error)

	// Coverage returns every owned copy whose card name is one of foldedNames,
	// ordered by location id then entry id.
	Coverage(ctx context.Context, foldedNames []string) ([]models.CoverageRow, error)

	// NamesAt returns which of foldedNames have at least one copy at the location.
	NamesAt(ctx context.Context, locationID int64, foldedNames []string) (map[string]bool, error)

	// LocationCounts returns per-location copy counts of every printing with the given name.
	LocationCounts(ctx context.Context, name string) ([]models.LocationCount, error)
}

type collectionRepository struct {
	db Querier
}

// NewCollectionRepository creates a new collection repository.
func NewCollectionRepository(db Querier) CollectionRepository {
	return &collectionRepository{db: db}
}

func (r *collectionRepository) Insert(ctx context.Context, cardID, language string, locationID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO collection (card_id, language, location_id) VALUES (?, ?, ?)`,
		cardID, language, locationID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert collection entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read collection entry id: %w", err)
	}
	return id, nil
}

func (r *collectionRepository) CountByCard(ctx context.Context, cardID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collection WHERE card_id = ?`, cardID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count copies of %s: %w", cardID, err)
	}
	return n, nil
}

func (r *collectionRepository) CountByLocation(ctx context.Context, locationID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collection WHERE location_id = ?`, locationID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count copies at location %d: %w", locationID, err)
	}
	return n, nil
}

func (r *collectionRepository) EntriesAt(ctx context.Context, locationID int64, cardID string, limit int) ([]int64, error) {
	query := `SELECT id FROM collection WHERE location_id = ? AND card_id = ? ORDER BY id`
	args := []any{locationID, cardID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entry id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return ids, nil
}

func (r *collectionRepository) Relocate(ctx context.Context, entryIDs []int64, locationID int64) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}

	query := `UPDATE collection SET location_id = ? WHERE id IN (` + placeholders(len(entryIDs)) + `)`
	args := append([]any{locationID}, int64Args(entryIDs)...)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to relocate entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *collectionRepository) Delete(ctx context.Context, entryIDs []int64) (int64, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}

	query := `DELETE FROM collection WHERE id IN (` + placeholders(len(entryIDs)) + `)`
	res, err := r.db.ExecContext(ctx, query, int64Args(entryIDs)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	return res.RowsAffected()
}

func (r *collectionRepository) Describe(ctx context.Context, entryIDs []int64) ([]models.EntryDetail, error) {
	if len(entryIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT collection.id, cards.name, collection.language, cards.set_code, cards.collector_number,
		       locations.id, locations.type, locations.reference
		FROM collection
		INNER JOIN cards ON cards.id = collection.card_id
		INNER JOIN locations ON locations.id = collection.location_id
		WHERE collection.id IN (` + placeholders(len(entryIDs)) + `)
		ORDER BY collection.id
	`

	rows, err := r.db.QueryContext(ctx, query, int64Args(entryIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to describe entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var details []models.EntryDetail
	for rows.Next() {
		var d models.EntryDetail
		if err := rows.Scan(&d.EntryID, &d.Name, &d.Language, &d.SetCode, &d.CollectorNumber,
			&d.LocationID, &d.Location.Type, &d.Location.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan entry detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry details: %w", err)
	}
	return details, nil
}

func (r *collectionRepository) Coverage(ctx context.Context, foldedNames []string) ([]models.CoverageRow, error) {
	if len(foldedNames) == 0 {
		return nil, nil
	}

	query := `
		SELECT locations.id, locations.type, locations.reference, cards.name_folded, collection.id, cards.id
		FROM collection
		INNER JOIN cards ON cards.id = collection.card_id
		INNER JOIN locations ON locations.id = collection.location_id
		WHERE cards.name_folded IN (` + placeholders(len(foldedNames)) + `)
		ORDER BY locations.id, collection.id
	`

	rows, err := r.db.QueryContext(ctx, query, stringArgs(foldedNames)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var coverage []models.CoverageRow
	for rows.Next() {
		var row models.CoverageRow
		if err := rows.Scan(&row.Location.ID, &row.Location.Type, &row.Location.Reference,
			&row.NameFolded, &row.EntryID, &row.CardID); err != nil {
			return nil, fmt.Errorf("failed to scan coverage row: %w", err)
		}
		coverage = append(coverage, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coverage: %w", err)
	}
	return coverage, nil
}

func (r *collectionRepository) NamesAt(ctx context.Context, locationID int64, foldedNames []string) (map[string]bool, error) {
	present := make(map[string]bool)
	if len(foldedNames) == 0 {
		return present, nil
	}

	query := `
		SELECT DISTINCT cards.name_folded
		FROM collection
		INNER JOIN cards ON cards.id = collection.card_id
		WHERE collection.location_id = ? AND cards.name_folded IN (` + placeholders(len(foldedNames)) + `)
	`
	args := append([]any{locationID}, stringArgs(foldedNames)...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query names at location %d: %w", locationID, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating names: %w", err)
	}
	return present, nil
}

func (r *collectionRepository) LocationCounts(ctx context.Context, name string) ([]models.LocationCount, error) {
	query := `
		SELECT locations.id, locations.type, locations.reference, COUNT(*)
		FROM collection
		INNER JOIN cards ON cards.id = collection.card_id
		INNER JOIN locations ON locations.id = collection.location_id
		WHERE cards.name_folded = ?
		GROUP BY locations.id
		ORDER BY locations.id
	`

	rows, err := r.db.QueryContext(ctx, query, models.FoldName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to query location counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []models.LocationCount
	for rows.Next() {
		var lc models.LocationCount
		if err := rows.Scan(&lc.Location.ID, &lc.Location.Type, &lc.Location.Reference, &lc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan location count: %w", err)
		}
		counts = append(counts, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating location counts: %w", err)
	}
	return counts, nil
}
