package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// ImageRepository stores the small card images fetched by the image pass.
type ImageRepository interface {
	// SetURI records the image uri of a card. A changed uri drops any
	// previously fetched image so the next pass downloads the new one.
	SetURI(ctx context.Context, cardID string, uri *string) error

	// Pending returns cards with a uri but no image data, ordered by card id.
	Pending(ctx context.Context) ([]*models.Image, error)

	// SaveData stores fetched image bytes.
	SaveData(ctx context.Context, cardID string, data []byte) error

	// Get retrieves the image row of a card. Returns nil if not found.
	Get(ctx context.Context, cardID string) (*models.Image, error)
}

type imageRepository struct {
	db Querier
}

// NewImageRepository creates a new image repository.
func NewImageRepository(db Querier) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) SetURI(ctx context.Context, cardID string, uri *string) error {
	query := `
		INSERT INTO images (id, uri, image) VALUES (?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			image = CASE WHEN images.uri IS excluded.uri THEN images.image ELSE NULL END,
			uri = excluded.uri
	`
	if _, err := r.db.ExecContext(ctx, query, cardID, uri); err != nil {
		return fmt.Errorf("failed to set image uri for %s: %w", cardID, err)
	}
	return nil
}

func (r *imageRepository) Pending(ctx context.Context) ([]*models.Image, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, uri FROM images WHERE image IS NULL AND uri IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending images: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var images []*models.Image
	for rows.Next() {
		img := &models.Image{}
		if err := rows.Scan(&img.CardID, &img.URI); err != nil {
			return nil, fmt.Errorf("failed to scan pending image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending images: %w", err)
	}
	return images, nil
}

func (r *imageRepository) SaveData(ctx context.Context, cardID string, data []byte) error {
	res, err := r.db.ExecContext(ctx, `UPDATE images SET image = ? WHERE id = ?`, data, cardID)
	if err != nil {
		return fmt.Errorf("failed to save image for %s: %w", cardID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no image row for card %s", cardID)
	}
	return nil
}

func (r *imageRepository) Get(ctx context.Context, cardID string) (*models.Image, error) {
	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, `SELECT id, uri, image FROM images WHERE id = ?`, cardID).
		Scan(&img.CardID, &img.URI, &img.Data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}
