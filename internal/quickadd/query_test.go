package quickadd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/mtg-collection/internal/storage"
	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

func setupParser(t *testing.T) (*Parser, *storage.DB) {
	t.Helper()
	config := storage.DefaultConfig(storage.MemoryPath)
	config.AutoMigrate = true
	db, err := storage.Open(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	repos := db.Repos()
	require.NoError(t, repos.Sets.Upsert(ctx, &models.Set{Code: "lea", Name: "Limited Edition Alpha"}))
	require.NoError(t, repos.Sets.Upsert(ctx, &models.Set{Code: "m10", Name: "Magic 2010"}))
	require.NoError(t, repos.Cards.Upsert(ctx, &models.Card{
		ID: "bolt", Layout: "normal", Name: "Lightning Bolt", SetCode: "lea", CollectorNumber: "161",
	}))

	p, err := NewParser(Config{
		Sets:       repos.Sets,
		Cards:      repos.Cards,
		Locations:  repos.Locations,
		Collection: repos.Collection,
	})
	require.NoError(t, err)
	return p, db
}

func TestParse(t *testing.T) {
	p, _ := setupParser(t)
	box := &models.LocationKey{Type: "box", Reference: "3"}

	tests := []struct {
		name  string
		input string
		want  *Query
	}{
		{
			name:  "full query",
			input: "lea 161 2 de box[3]",
			want:  &Query{SetCode: "lea", CollectorNumber: "161", Amount: 2, Language: "de", Location: box},
		},
		{
			name:  "any order",
			input: "box[3] de 161 lea 2",
			want:  &Query{SetCode: "lea", CollectorNumber: "161", Amount: 2, Language: "de", Location: box},
		},
		{
			name:  "defaults",
			input: "LEA 161",
			want:  &Query{SetCode: "lea", CollectorNumber: "161", Amount: 1, Language: "en"},
		},
		{
			name:  "non numeric collector number",
			input: "m10 146a fr",
			want:  &Query{SetCode: "m10", CollectorNumber: "146a", Amount: 1, Language: "fr"},
		},
		{
			name:  "empty",
			input: "   ",
			want:  &Query{Amount: 1, Language: "en"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	p, _ := setupParser(t)

	_, err := p.Parse(context.Background(), "lea 161 box[")
	assert.ErrorIs(t, err, models.ErrLocationParse)

	_, err = p.Parse(context.Background(), "lea 161 0")
	assert.Error(t, err)
}

func TestParse_ConfiguredLanguages(t *testing.T) {
	_, db := setupParser(t)
	p, err := NewParser(Config{Sets: db.Repos().Sets, Languages: []string{"DE", "en"}})
	require.NoError(t, err)

	q, err := p.Parse(context.Background(), "lea 161")
	require.NoError(t, err)
	assert.Equal(t, "de", q.Language)

	q, err = p.Parse(context.Background(), "lea 161 fr")
	require.NoError(t, err)
	assert.Equal(t, "fr", q.CollectorNumber, "unknown language codes are collector numbers")
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	p, db := setupParser(t)

	q, err := p.Parse(ctx, "lea 161 box[1]")
	require.NoError(t, err)
	assert.True(t, q.Complete())

	pv, err := p.Preview(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "bolt", pv.Card.ID)
	assert.True(t, pv.NewLocation)
	assert.Zero(t, pv.Owned)
	assert.Equal(t, "Lightning Bolt (LEA 161, Limited Edition Alpha) owned 0", pv.String())

	loc, _, err := db.Repos().Locations.GetOrCreate(ctx, *q.Location)
	require.NoError(t, err)
	_, err = db.Repos().Collection.Insert(ctx, "bolt", "en", loc.ID)
	require.NoError(t, err)

	pv, err = p.Preview(ctx, q)
	require.NoError(t, err)
	assert.False(t, pv.NewLocation)
	assert.Equal(t, 1, pv.AtLocation)
	assert.Equal(t, 1, pv.Owned)
}

func TestPreview_Errors(t *testing.T) {
	ctx := context.Background()
	p, _ := setupParser(t)

	_, err := p.Preview(ctx, &Query{SetCode: "lea"})
	assert.ErrorIs(t, err, ErrIncomplete)

	_, err = p.Preview(ctx, &Query{SetCode: "lea", CollectorNumber: "999"})
	assert.Error(t, err)
}
