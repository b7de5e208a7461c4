// Package importer builds the local catalog from Scryfall bulk data and
// fills in card images.
package importer

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/mtg-collection/internal/cards/scryfall"
	"github.com/ramonehamilton/mtg-collection/internal/storage"
	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// Store gives access to repositories inside one transaction.
// *storage.DB implements it.
type Store interface {
	Repos() *storage.Repositories
	InTx(ctx context.Context, fn func(*storage.Repositories) error) error
}

// BulkImporter handles importing card data from Scryfall bulk files.
type BulkImporter struct {
	client  *scryfall.Client
	store   Store
	options BulkImportOptions
}

// BulkImportOptions configures the bulk import process.
type BulkImportOptions struct {
	// BatchSize is the number of cards to insert per transaction.
	BatchSize int

	// DataDir is the directory to store downloaded bulk files.
	DataDir string

	// Progress is an optional callback for progress reporting.
	// Receives the number of cards processed so far after each batch.
	Progress func(processed int)

	Logger *slog.Logger
}

// DefaultBulkImportOptions returns sensible default options.
func DefaultBulkImportOptions() BulkImportOptions {
	return BulkImportOptions{
		BatchSize: 500,
		DataDir:   filepath.Join(os.TempDir(), "mtg-collection", "bulk"),
	}
}

// NewBulkImporter creates a new bulk importer. client may be nil when only
// local files are imported.
func NewBulkImporter(client *scryfall.Client, store Store, options BulkImportOptions) *BulkImporter {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBulkImportOptions().BatchSize
	}
	if options.DataDir == "" {
		options.DataDir = DefaultBulkImportOptions().DataDir
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &BulkImporter{client: client, store: store, options: options}
}

// ImportStats contains statistics about the import process.
type ImportStats struct {
	TotalCards    int
	ImportedCards int
	SkippedCards  int // digital-only printings
	ErrorCards    int // entries with an invalid id
	Sets          int
	Duration      time.Duration
	BulkFile      string
}

// Download fetches the default_cards bulk file into DataDir and returns its path.
func (bi *BulkImporter) Download(ctx context.Context) (string, error) {
	if bi.client == nil {
		return "", fmt.Errorf("download needs a scryfall client")
	}
	if err := os.MkdirAll(bi.options.DataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(bi.options.DataDir, "bulk-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	bulk, err := bi.client.DownloadBulk(ctx, scryfall.DefaultCardsType, tmpFile)
	if closeErr := tmpFile.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	name := filepath.Base(bulk.DownloadURI)
	if name == "" || name == "." || name == "/" {
		name = "default-cards.json"
	}
	filePath := filepath.Join(bi.options.DataDir, name)
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	bi.options.Logger.Info("Downloaded bulk file", "path", filePath, "updated", bulk.UpdatedAt)
	return filePath, nil
}

// ImportFile imports a bulk JSON file. Gzip-compressed files are detected by
// their magic bytes.
func (bi *BulkImporter) ImportFile(ctx context.Context, path string) (*ImportStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	buffered := bufio.NewReaderSize(file, 64*1024)
	var r io.Reader = buffered
	if magic, err := buffered.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gzReader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer func() { _ = gzReader.Close() }()
		r = gzReader
	}

	stats, err := bi.Import(ctx, r)
	if stats != nil {
		stats.BulkFile = path
	}
	return stats, err
}

// Import streams a JSON array of Scryfall cards into the catalog.
// Digital-only cards are skipped and entries whose id is not a UUID are
// counted as errors. Cards, their sets and image uris are written in batches,
// one transaction per batch.
func (bi *BulkImporter) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	start := time.Now()
	stats := &ImportStats{}

	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read bulk file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("bulk file must be a JSON array")
	}

	batch := make([]*scryfall.Card, 0, bi.options.BatchSize)
	seenSets := make(map[string]bool)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		sets, err := bi.insertBatch(ctx, batch, seenSets)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		stats.ImportedCards += len(batch)
		stats.Sets += sets
		if bi.options.Progress != nil {
			bi.options.Progress(stats.TotalCards)
		}
		batch = batch[:0]
		return nil
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var card scryfall.Card
		if err := dec.Decode(&card); err != nil {
			return stats, fmt.Errorf("failed to parse card %d: %w", stats.TotalCards+1, err)
		}
		stats.TotalCards++

		if card.Digital {
			stats.SkippedCards++
			continue
		}
		if _, err := uuid.Parse(card.ID); err != nil {
			stats.ErrorCards++
			bi.options.Logger.Warn("Skipping card with invalid id", "id", card.ID, "name", card.Name)
			continue
		}

		batch = append(batch, &card)
		if len(batch) >= bi.options.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	if _, err := dec.Token(); err != nil {
		return stats, fmt.Errorf("failed to read end of bulk file: %w", err)
	}

	stats.Duration = time.Since(start)
	bi.options.Logger.Info("Import complete",
		"total", stats.TotalCards,
		"imported", stats.ImportedCards,
		"skipped", stats.SkippedCards,
		"errors", stats.ErrorCards,
		"duration", stats.Duration)
	return stats, nil
}

// insertBatch writes cards, image uris and sets not seen before. It returns
// the number of new sets.
func (bi *BulkImporter) insertBatch(ctx context.Context, cards []*scryfall.Card, seenSets map[string]bool) (int, error) {
	var batchSets map[string]bool
	err := bi.store.InTx(ctx, func(repos *storage.Repositories) error {
		batchSets = make(map[string]bool)
		for _, card := range cards {
			if err := repos.Cards.Upsert(ctx, ConvertToModelCard(card)); err != nil {
				return err
			}
			if err := repos.Images.SetURI(ctx, card.ID, card.SmallImageURI()); err != nil {
				return err
			}

			code := strings.ToLower(card.SetCode)
			if seenSets[code] || batchSets[code] {
				continue
			}
			if err := repos.Sets.Upsert(ctx, &models.Set{Code: code, Name: card.SetName}); err != nil {
				return err
			}
			batchSets[code] = true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	// only mark sets once the transaction committed
	for code := range batchSets {
		seenSets[code] = true
	}
	return len(batchSets), nil
}

// ConvertToModelCard converts a Scryfall card to a catalog card.
func ConvertToModelCard(card *scryfall.Card) *models.Card {
	return &models.Card{
		ID:              card.ID,
		CardmarketID:    card.CardmarketID,
		Layout:          card.Layout,
		ScryfallURI:     card.ScryfallURI,
		URI:             card.URI,
		Rarity:          card.Rarity,
		ColorIdentity:   strings.Join(card.ColorIdentity, ""),
		ManaCost:        card.ManaCost,
		Name:            card.Name,
		SetCode:         strings.ToLower(card.SetCode),
		CollectorNumber: card.CollectorNumber,
		Legalities:      card.Legalities,
		Digital:         card.Digital,
	}
}
