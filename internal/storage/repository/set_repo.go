package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// SetRepository stores expansion codes and names.
type SetRepository interface {
	// Upsert inserts or renames a set.
	Upsert(ctx context.Context, set *models.Set) error

	// Get retrieves a set by code (case-insensitive). Returns nil if not found.
	Get(ctx context.Context, code string) (*models.Set, error)
}

type setRepository struct {
	db Querier
}

// NewSetRepository creates a new set repository.
func NewSetRepository(db Querier) SetRepository {
	return &setRepository{db: db}
}

func (r *setRepository) Upsert(ctx context.Context, set *models.Set) error {
	query := `
		INSERT INTO sets (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	if _, err := r.db.ExecContext(ctx, query, strings.ToLower(set.Code), set.Name); err != nil {
		return fmt.Errorf("failed to upsert set %s: %w", set.Code, err)
	}
	return nil
}

func (r *setRepository) Get(ctx context.Context, code string) (*models.Set, error) {
	var set models.Set
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM sets WHERE id = ?`, strings.ToLower(code)).
		Scan(&set.Code, &set.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get set: %w", err)
	}
	return &set, nil
}
