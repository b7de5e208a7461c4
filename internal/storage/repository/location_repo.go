package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// LocationRepository maps (type, reference) keys to location ids.
type LocationRepository interface {
	// GetByKey looks a location up by its composite key. Returns nil if not found.
	GetByKey(ctx context.Context, key models.LocationKey) (*models.Location, error)

	// GetByID retrieves a location by id. Returns nil if not found.
	GetByID(ctx context.Context, id int64) (*models.Location, error)

	// GetOrCreate returns the location with the given key, inserting it if
	// needed. created is false when the row already existed, including when a
	// concurrent writer inserted it first.
	GetOrCreate(ctx context.Context, key models.LocationKey) (loc *models.Location, created bool, err error)

	// Delete removes a location row.
	Delete(ctx context.Context, id int64) error

	// List returns every location ordered by id.
	List(ctx context.Context) ([]*models.Location, error)
}

type locationRepository struct {
	db Querier
}

// NewLocationRepository creates a new location repository.
func NewLocationRepository(db Querier) LocationRepository {
	return &locationRepository{db: db}
}

func (r *locationRepository) GetByKey(ctx context.Context, key models.LocationKey) (*models.Location, error) {
	loc := &models.Location{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, type, reference FROM locations WHERE type = ? AND reference = ?`,
		key.Type, key.Reference,
	).Scan(&loc.ID, &loc.Type, &loc.Reference)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location %s: %w", key, err)
	}
	return loc, nil
}

func (r *locationRepository) GetByID(ctx context.Context, id int64) (*models.Location, error) {
	loc := &models.Location{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, type, reference FROM locations WHERE id = ?`, id,
	).Scan(&loc.ID, &loc.Type, &loc.Reference)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location %d: %w", id, err)
	}
	return loc, nil
}

func (r *locationRepository) GetOrCreate(ctx context.Context, key models.LocationKey) (*models.Location, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO locations (type, reference) VALUES (?, ?)
		ON CONFLICT(type, reference) DO NOTHING
		RETURNING id
	`, key.Type, key.Reference).Scan(&id)

	switch {
	case err == nil:
		return &models.Location{ID: id, Type: key.Type, Reference: key.Reference}, true, nil
	case errors.Is(err, sql.ErrNoRows):
		loc, err := r.GetByKey(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if loc == nil {
			return nil, false, fmt.Errorf("location %s vanished after insert conflict", key)
		}
		return loc, false, nil
	default:
		return nil, false, fmt.Errorf("failed to create location %s: %w", key, err)
	}
}

func (r *locationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete location %d: %w", id, err)
	}
	return nil
}

func (r *locationRepository) List(ctx context.Context) ([]*models.Location, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, type, reference FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var locations []*models.Location
	for rows.Next() {
		loc := &models.Location{}
		if err := rows.Scan(&loc.ID, &loc.Type, &loc.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}
