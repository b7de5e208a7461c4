package repository_test

import (
	"bytes"
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
	"github.com/ramonehamilton/mtg-collection/internal/storage/repository"
)

func TestCardRepository_Lookup(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := db.Repos().Cards

	seedCard(t, db, "b2", "Lightning Bolt", "m10", "146")
	seedCard(t, db, "a1", "Lightning Bolt", "lea", "161")

	card, err := repo.LookupByName(ctx, "  lightning BOLT ")
	if err != nil {
		t.Fatalf("failed to look up by name: %v", err)
	}
	if card == nil {
		t.Fatal("expected card, got nil")
	}
	// lowest id wins among printings
	if card.ID != "a1" {
		t.Errorf("expected card a1, got %s", card.ID)
	}
	if !card.IsLegal("commander") || card.IsLegal("standard") {
		t.Errorf("unexpected legalities: %v", card.Legalities)
	}

	card, err = repo.LookupBySetAndNumber(ctx, "M10", "146")
	if err != nil {
		t.Fatalf("failed to look up by set and number: %v", err)
	}
	if card == nil || card.ID != "b2" {
		t.Errorf("expected card b2, got %v", card)
	}

	missing, err := repo.LookupByName(ctx, "Lightning Helix")
	if err != nil {
		t.Fatalf("failed to look up by name: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown name, got %v", missing)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count cards: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cards, got %d", n)
	}
}

func TestCardRepository_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := db.Repos().Cards

	card := seedCard(t, db, "x", "Opt", "xln", "65")
	cost := "{U}"
	card.ManaCost = &cost
	card.Rarity = "uncommon"
	if err := repo.Upsert(ctx, card); err != nil {
		t.Fatalf("failed to upsert card: %v", err)
	}

	got, err := repo.GetByID(ctx, "x")
	if err != nil {
		t.Fatalf("failed to get card: %v", err)
	}
	if got == nil {
		t.Fatal("expected card, got nil")
	}
	if got.Rarity != "uncommon" {
		t.Errorf("expected rarity uncommon, got %s", got.Rarity)
	}
	if got.ManaCost == nil || *got.ManaCost != "{U}" {
		t.Errorf("expected mana cost {U}, got %v", got.ManaCost)
	}
}

func TestCardRepository_NamesLike(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	seedCard(t, db, "1", "Lightning Bolt", "lea", "161")
	seedCard(t, db, "2", "Lightning Helix", "rav", "213")
	seedCard(t, db, "3", "Opt", "xln", "65")
	seedCard(t, db, "4", "100% Pure", "zzz", "1")

	tests := []struct {
		prefix string
		want   []string
	}{
		{"light", []string{"Lightning Bolt", "Lightning Helix"}},
		{"100%", []string{"100% Pure"}},
	}
	for _, tt := range tests {
		names, err := db.Repos().Cards.NamesLike(ctx, tt.prefix, 10)
		if err != nil {
			t.Fatalf("failed to query names like %q: %v", tt.prefix, err)
		}
		if !reflect.DeepEqual(names, tt.want) {
			t.Errorf("NamesLike(%q) = %v, want %v", tt.prefix, names, tt.want)
		}
	}
}

func TestCardRepository_Names(t *testing.T) {
	db := setupTestDB(t)

	seedCard(t, db, "1", "Opt", "xln", "65")
	seedCard(t, db, "2", "Lightning Bolt", "lea", "161")
	seedCard(t, db, "3", "Lightning Bolt", "m10", "146")

	names, err := db.Repos().Cards.Names(context.Background())
	if err != nil {
		t.Fatalf("failed to list names: %v", err)
	}
	if want := []string{"Lightning Bolt", "Opt"}; !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestCardRepository_SearchOwned(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := db.Repos().Cards

	bolt := seedCard(t, db, "1", "Lightning Bolt", "lea", "161")
	bolt.ColorIdentity = "R"
	if err := repo.Upsert(ctx, bolt); err != nil {
		t.Fatalf("failed to upsert card: %v", err)
	}
	helix := seedCard(t, db, "2", "Lightning Helix", "rav", "213")
	helix.ColorIdentity = "RW"
	helix.Legalities = map[string]string{"commander": "not_legal"}
	if err := repo.Upsert(ctx, helix); err != nil {
		t.Fatalf("failed to upsert card: %v", err)
	}
	seedCard(t, db, "3", "Lightning Bolt", "m10", "146")

	box := seedLocation(t, db, "box", "1")
	seedCopies(t, db, "1", box, 2)
	seedCopies(t, db, "3", box, 1)
	seedCopies(t, db, "2", box, 1)

	hits, err := repo.SearchOwned(ctx, repository.SearchFilter{NameParts: []string{"light"}})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Name != "Lightning Bolt" || hits[0].Count != 3 {
		t.Errorf("expected 3 owned Lightning Bolt, got %+v", hits[0])
	}
	ids := append([]string(nil), hits[0].CardIDs...)
	sort.Strings(ids)
	if !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Errorf("expected both printings, got %v", ids)
	}

	hits, err = repo.SearchOwned(ctx, repository.SearchFilter{LegalIn: "commander"})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "Lightning Bolt" {
		t.Errorf("expected only Lightning Bolt to be commander legal, got %+v", hits)
	}

	mono := "r"
	hits, err = repo.SearchOwned(ctx, repository.SearchFilter{NameParts: []string{"lightning"}, ColorIdentity: &mono})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "Lightning Bolt" {
		t.Errorf("expected only mono-red Lightning Bolt, got %+v", hits)
	}

	if !(repository.SearchFilter{}).IsEmpty() {
		t.Error("expected zero filter to be empty")
	}
}

func TestSetAndImageRepositories(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repos := db.Repos()

	if err := repos.Sets.Upsert(ctx, &models.Set{Code: "LEA", Name: "Limited Edition Alpha"}); err != nil {
		t.Fatalf("failed to upsert set: %v", err)
	}
	set, err := repos.Sets.Get(ctx, "lea")
	if err != nil {
		t.Fatalf("failed to get set: %v", err)
	}
	if set == nil || set.Name != "Limited Edition Alpha" {
		t.Errorf("expected Limited Edition Alpha, got %v", set)
	}

	seedCard(t, db, "1", "Lightning Bolt", "lea", "161")
	uri := "https://img/1.jpg"
	if err := repos.Images.SetURI(ctx, "1", &uri); err != nil {
		t.Fatalf("failed to set image uri: %v", err)
	}

	pending, err := repos.Images.Pending(ctx)
	if err != nil {
		t.Fatalf("failed to list pending images: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending image, got %d", len(pending))
	}

	if err := repos.Images.SaveData(ctx, "1", []byte{1, 2, 3}); err != nil {
		t.Fatalf("failed to save image data: %v", err)
	}
	pending, err = repos.Images.Pending(ctx)
	if err != nil {
		t.Fatalf("failed to list pending images: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending images, got %d", len(pending))
	}

	// same uri keeps the data
	if err := repos.Images.SetURI(ctx, "1", &uri); err != nil {
		t.Fatalf("failed to set image uri: %v", err)
	}
	img, err := repos.Images.Get(ctx, "1")
	if err != nil {
		t.Fatalf("failed to get image: %v", err)
	}
	if !bytes.Equal(img.Data, []byte{1, 2, 3}) {
		t.Errorf("expected image data to be kept, got %v", img.Data)
	}

	// new uri drops it
	other := "https://img/1b.jpg"
	if err := repos.Images.SetURI(ctx, "1", &other); err != nil {
		t.Fatalf("failed to set image uri: %v", err)
	}
	img, err = repos.Images.Get(ctx, "1")
	if err != nil {
		t.Fatalf("failed to get image: %v", err)
	}
	if img.Data != nil {
		t.Errorf("expected image data to be dropped, got %v", img.Data)
	}

	if err := repos.Images.SaveData(ctx, "missing", []byte{1}); err == nil {
		t.Error("expected error saving data for unknown card")
	}
}
