package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ramonehamilton/mtg-collection/internal/cards/scryfall"
)

// ImageStats summarizes an image pass.
type ImageStats struct {
	Pending int
	Fetched int
	Failed  []ImageFailure
}

// ImageFailure records a card whose image could not be fetched.
type ImageFailure struct {
	CardID string
	URI    string
	Err    error
}

// ImageFetcher downloads the small image of every catalog card that has a
// uri but no stored image.
type ImageFetcher struct {
	client *scryfall.Client
	store  Store
	logger *slog.Logger

	// Progress is called after each card with the number handled so far.
	Progress func(done, total int)
}

// NewImageFetcher creates an image fetcher.
func NewImageFetcher(client *scryfall.Client, store Store, logger *slog.Logger) *ImageFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageFetcher{client: client, store: store, logger: logger}
}

// Run fetches pending images. A failed download is recorded and skipped; only
// storage errors and cancellation abort the pass.
func (f *ImageFetcher) Run(ctx context.Context) (*ImageStats, error) {
	images := f.store.Repos().Images
	pending, err := images.Pending(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ImageStats{Pending: len(pending)}
	for i, img := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		data, err := f.client.FetchImage(ctx, *img.URI)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			f.logger.Warn("Failed to fetch image", "card", img.CardID, "uri", *img.URI, "error", err)
			stats.Failed = append(stats.Failed, ImageFailure{CardID: img.CardID, URI: *img.URI, Err: err})
		} else {
			if err := images.SaveData(ctx, img.CardID, data); err != nil {
				return stats, fmt.Errorf("failed to store image: %w", err)
			}
			stats.Fetched++
		}

		if f.Progress != nil {
			f.Progress(i+1, len(pending))
		}
	}

	f.logger.Info("Image pass complete", "fetched", stats.Fetched, "failed", len(stats.Failed))
	return stats, nil
}
