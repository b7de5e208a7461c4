package repository_test

import (
	"context"
	"testing"

	"github.com/ramonehamilton/mtg-collection/internal/storage"
	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

// setupTestDB opens a migrated in-memory database.
func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()
	config := storage.DefaultConfig(storage.MemoryPath)
	config.AutoMigrate = true
	db, err := storage.Open(config)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCard(t *testing.T, db *storage.DB, id, name, set, number string) *models.Card {
	t.Helper()
	card := &models.Card{
		ID:              id,
		Layout:          "normal",
		ScryfallURI:     "https://scryfall.com/card/" + set + "/" + number,
		URI:             "https://api.scryfall.com/cards/" + id,
		Rarity:          "common",
		Name:            name,
		SetCode:         set,
		CollectorNumber: number,
		Legalities:      map[string]string{"commander": "legal", "standard": "not_legal"},
	}
	if err := db.Repos().Cards.Upsert(context.Background(), card); err != nil {
		t.Fatalf("failed to seed card %s: %v", id, err)
	}
	return card
}

func seedLocation(t *testing.T, db *storage.DB, typ, ref string) *models.Location {
	t.Helper()
	loc, _, err := db.Repos().Locations.GetOrCreate(context.Background(), models.LocationKey{Type: typ, Reference: ref})
	if err != nil {
		t.Fatalf("failed to seed location %s[%s]: %v", typ, ref, err)
	}
	return loc
}

func seedCopies(t *testing.T, db *storage.DB, cardID string, loc *models.Location, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := db.Repos().Collection.Insert(context.Background(), cardID, "en", loc.ID)
		if err != nil {
			t.Fatalf("failed to seed copy of %s: %v", cardID, err)
		}
		ids = append(ids, id)
	}
	return ids
}
