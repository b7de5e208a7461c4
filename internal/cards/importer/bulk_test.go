package importer

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ramonehamilton/mtg-collection/internal/cards/scryfall"
	"github.com/ramonehamilton/mtg-collection/internal/storage"
)

const bulkJSON = `[
  {"id": "11111111-1111-1111-1111-111111111111", "name": "Lightning Bolt", "layout": "normal",
   "set": "LEA", "set_name": "Limited Edition Alpha", "collector_number": "161", "rarity": "common",
   "color_identity": ["R"], "mana_cost": "{R}", "legalities": {"commander": "legal", "standard": "not_legal"},
   "image_uris": {"small": "https://img.example/bolt.jpg"}},
  {"id": "22222222-2222-2222-2222-222222222222", "name": "Delver of Secrets // Insectile Aberration",
   "layout": "transform", "set": "isd", "set_name": "Innistrad", "collector_number": "51", "rarity": "common",
   "color_identity": ["U"], "legalities": {"commander": "legal"},
   "card_faces": [{"name": "Delver of Secrets", "image_uris": {"small": "https://img.example/delver.jpg"}},
                  {"name": "Insectile Aberration", "image_uris": {"small": "https://img.example/insect.jpg"}}]},
  {"id": "33333333-3333-3333-3333-333333333333", "name": "Arena Only", "layout": "normal",
   "set": "ymid", "set_name": "Alchemy", "collector_number": "1", "digital": true},
  {"id": "not-a-uuid", "name": "Broken", "layout": "normal", "set": "lea", "collector_number": "999"},
  {"id": "44444444-4444-4444-4444-444444444444", "name": "Ponder", "layout": "normal",
   "set": "lea", "set_name": "Limited Edition Alpha", "collector_number": "70", "rarity": "common",
   "color_identity": ["U"], "legalities": {"commander": "legal"}}
]`

func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()
	cfg := storage.DefaultConfig(storage.MemoryPath)
	cfg.AutoMigrate = true
	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	var progress []int
	bi := NewBulkImporter(nil, db, BulkImportOptions{
		BatchSize: 2,
		Progress:  func(n int) { progress = append(progress, n) },
	})

	stats, err := bi.Import(ctx, strings.NewReader(bulkJSON))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if stats.TotalCards != 5 {
		t.Errorf("Expected 5 total cards, got %d", stats.TotalCards)
	}
	if stats.ImportedCards != 3 {
		t.Errorf("Expected 3 imported cards, got %d", stats.ImportedCards)
	}
	if stats.SkippedCards != 1 {
		t.Errorf("Expected 1 skipped card, got %d", stats.SkippedCards)
	}
	if stats.ErrorCards != 1 {
		t.Errorf("Expected 1 error card, got %d", stats.ErrorCards)
	}
	if stats.Sets != 2 {
		t.Errorf("Expected 2 sets, got %d", stats.Sets)
	}
	if len(progress) == 0 {
		t.Error("Expected progress callbacks")
	}

	repos := db.Repos()
	n, err := repos.Cards.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count cards: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 cards in catalog, got %d", n)
	}

	bolt, err := repos.Cards.GetByID(ctx, "11111111-1111-1111-1111-111111111111")
	if err != nil {
		t.Fatalf("Failed to get card: %v", err)
	}
	if bolt == nil {
		t.Fatal("Expected Lightning Bolt in catalog")
	}
	if bolt.SetCode != "lea" {
		t.Errorf("Expected set code lea, got %s", bolt.SetCode)
	}
	if bolt.ColorIdentity != "R" {
		t.Errorf("Expected color identity R, got %s", bolt.ColorIdentity)
	}
	if !bolt.IsLegal("commander") || bolt.IsLegal("standard") {
		t.Errorf("Unexpected legalities: %v", bolt.Legalities)
	}

	set, err := repos.Sets.Get(ctx, "LEA")
	if err != nil {
		t.Fatalf("Failed to get set: %v", err)
	}
	if set == nil || set.Name != "Limited Edition Alpha" {
		t.Errorf("Expected Limited Edition Alpha, got %v", set)
	}

	img, err := repos.Images.Get(ctx, "22222222-2222-2222-2222-222222222222")
	if err != nil {
		t.Fatalf("Failed to get image: %v", err)
	}
	if img == nil || img.URI == nil || *img.URI != "https://img.example/delver.jpg" {
		t.Errorf("Expected front face image uri, got %+v", img)
	}

	digital, err := repos.Cards.GetByID(ctx, "33333333-3333-3333-3333-333333333333")
	if err != nil {
		t.Fatalf("Failed to get card: %v", err)
	}
	if digital != nil {
		t.Error("Digital cards must not be imported")
	}
}

func TestImport_CountsEachSetOncePerBatch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	// the default batch size holds every card, so both LEA cards share a batch
	stats, err := NewBulkImporter(nil, db, BulkImportOptions{}).Import(ctx, strings.NewReader(bulkJSON))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if stats.ImportedCards != 3 {
		t.Errorf("Expected 3 imported cards, got %d", stats.ImportedCards)
	}
	if stats.Sets != 2 {
		t.Errorf("Expected 2 distinct sets, got %d", stats.Sets)
	}

	for _, code := range []string{"lea", "isd"} {
		set, err := db.Repos().Sets.Get(ctx, code)
		if err != nil {
			t.Fatalf("Failed to get set %s: %v", code, err)
		}
		if set == nil {
			t.Errorf("Expected set %s to be stored", code)
		}
	}
}

func TestImport_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	bi := NewBulkImporter(nil, db, BulkImportOptions{})

	for i := 0; i < 2; i++ {
		if _, err := bi.Import(ctx, strings.NewReader(bulkJSON)); err != nil {
			t.Fatalf("Import %d failed: %v", i, err)
		}
	}

	n, err := db.Repos().Cards.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count cards: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 cards after reimport, got %d", n)
	}
}

func TestImport_RejectsNonArray(t *testing.T) {
	bi := NewBulkImporter(nil, setupTestDB(t), BulkImportOptions{})

	_, err := bi.Import(context.Background(), strings.NewReader(`{"object": "list"}`))
	if err == nil || !strings.Contains(err.Error(), "JSON array") {
		t.Errorf("Expected JSON array error, got %v", err)
	}
}

func TestImport_MalformedEntry(t *testing.T) {
	bi := NewBulkImporter(nil, setupTestDB(t), BulkImportOptions{})

	stats, err := bi.Import(context.Background(), strings.NewReader(`[{"id": 1}]`))
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if stats == nil {
		t.Fatal("Expected partial stats with the error")
	}
	if stats.ImportedCards != 0 {
		t.Errorf("Expected 0 imported cards, got %d", stats.ImportedCards)
	}
}

func TestImportFile_Gzip(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(bulkJSON)); err != nil {
		t.Fatalf("Failed to gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to gzip: %v", err)
	}

	path := filepath.Join(t.TempDir(), "cards.json.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	stats, err := NewBulkImporter(nil, db, BulkImportOptions{}).ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if stats.ImportedCards != 3 {
		t.Errorf("Expected 3 imported cards, got %d", stats.ImportedCards)
	}
	if stats.BulkFile != path {
		t.Errorf("Expected bulk file %s, got %s", path, stats.BulkFile)
	}
}

func TestImportFile_Missing(t *testing.T) {
	bi := NewBulkImporter(nil, setupTestDB(t), BulkImportOptions{})

	if _, err := bi.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDownload(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/bulk-data", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"object": "list", "data": [
			{"type": "oracle_cards", "download_uri": "%[1]s/files/oracle.json"},
			{"type": "default_cards", "download_uri": "%[1]s/files/default-cards.json"}
		]}`, server.URL)
	})
	mux.HandleFunc("/files/default-cards.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bulkJSON))
	})

	client := scryfall.NewClientWithOptions(scryfall.Options{BaseURL: server.URL, RequestsPerSecond: 1000})
	dir := t.TempDir()
	bi := NewBulkImporter(client, setupTestDB(t), BulkImportOptions{DataDir: dir})

	path, err := bi.Download(context.Background())
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if want := filepath.Join(dir, "default-cards.json"); path != want {
		t.Errorf("Expected %s, got %s", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read download: %v", err)
	}
	if string(data) != bulkJSON {
		t.Error("Downloaded file differs from served bulk data")
	}
}

func TestDownload_NeedsClient(t *testing.T) {
	bi := NewBulkImporter(nil, setupTestDB(t), BulkImportOptions{DataDir: t.TempDir()})

	if _, err := bi.Download(context.Background()); err == nil {
		t.Error("Expected error without a Scryfall client")
	}
}

func TestConvertToModelCard(t *testing.T) {
	cost := "{1}{U}"
	card := ConvertToModelCard(&scryfall.Card{
		ID:            "55555555-5555-5555-5555-555555555555",
		Name:          "Counterspell",
		SetCode:       "MH2",
		ColorIdentity: []string{"U", "W"},
		ManaCost:      &cost,
	})

	if card.SetCode != "mh2" {
		t.Errorf("Expected set code mh2, got %s", card.SetCode)
	}
	if card.ColorIdentity != "UW" {
		t.Errorf("Expected color identity UW, got %s", card.ColorIdentity)
	}
	if card.ManaCost != &cost {
		t.Errorf("Expected mana cost to be carried over")
	}
}
