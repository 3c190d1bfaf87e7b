package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-publisher/internal/storage/models"
)

type memoryStore struct {
	cards   []*models.ReferenceCard
	sets    []*models.Set
	batches int
	failOn  int
}

func (s *memoryStore) SaveCards(_ context.Context, rows []*models.ReferenceCard) error {
	s.batches++
	if s.failOn > 0 && s.batches == s.failOn {
		return errors.New("disk full")
	}
	for _, r := range rows {
		c := *r
		s.cards = append(s.cards, &c)
	}
	return nil
}

func (s *memoryStore) SaveSets(_ context.Context, sets []*models.Set) error {
	s.sets = append(s.sets, sets...)
	return nil
}

const sampleCSV = `id,name,set,type,rarity,mana_cost,rating,artist,code_mtgnet,code_gatherer
191089,Lightning Bolt,M10,Instant,C,{R},4.5,Christopher Moeller,M2010,
191076,Ajani Goldmane,M10,Planeswalker,mythic,{2}{W}{W},,Aleksi Briclot,,M10
195630,Goblin Guide,ZEN,Creature - Goblin Scout,Rare,{R},3.9,Warren Mahy,,
abc,Broken Row,ZEN,,C,,,,,
195631,Bad Rarity,ZEN,,X,,,,,
195632,Bad Rating,ZEN,,C,,7,,,
`

func TestDefaultImportOptions(t *testing.T) {
	opts := DefaultImportOptions()

	if opts.BatchSize != 500 {
		t.Errorf("Expected batch size 500, got %d", opts.BatchSize)
	}
	if opts.Progress != nil {
		t.Error("Expected no progress callback by default")
	}
}

func TestCSVImporter_Import(t *testing.T) {
	store := &memoryStore{}
	imp := NewCSVImporter(store, DefaultImportOptions(), nil)

	stats, err := imp.Import(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 6, stats.TotalRows)
	assert.Equal(t, 3, stats.ImportedCards)
	assert.Equal(t, 3, stats.SkippedRows)
	assert.Equal(t, 2, stats.Sets)

	require.Len(t, store.cards, 3)
	bolt := store.cards[0]
	assert.Equal(t, 191089, bolt.ID)
	assert.Equal(t, "Lightning Bolt", bolt.Name)
	require.NotNil(t, bolt.Rating)
	assert.InDelta(t, 4.5, *bolt.Rating, 0.0001)
	require.NotNil(t, bolt.Rarity)
	assert.Equal(t, "C", *bolt.Rarity)

	ajani := store.cards[1]
	assert.Nil(t, ajani.Rating)
	require.NotNil(t, ajani.Rarity)
	assert.Equal(t, "M", *ajani.Rarity)

	guide := store.cards[2]
	assert.Equal(t, "R", *guide.Rarity)

	require.Len(t, store.sets, 2)
	m10 := store.sets[0]
	assert.Equal(t, "M10", m10.Code)
	require.NotNil(t, m10.MtgNetCode)
	assert.Equal(t, "M2010", *m10.MtgNetCode)
	require.NotNil(t, m10.GathererCode)
	assert.Equal(t, "M10", *m10.GathererCode)
	assert.Nil(t, store.sets[1].MtgNetCode)
}

func TestCSVImporter_Batches(t *testing.T) {
	store := &memoryStore{}
	var progress []int
	imp := NewCSVImporter(store, ImportOptions{
		BatchSize: 2,
		Progress:  func(n int) { progress = append(progress, n) },
	}, nil)

	_, err := imp.Import(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 2, store.batches)
	assert.Equal(t, []int{2, 3}, progress)
}

func TestCSVImporter_StoreError(t *testing.T) {
	store := &memoryStore{failOn: 1}
	imp := NewCSVImporter(store, ImportOptions{BatchSize: 1}, nil)

	_, err := imp.Import(context.Background(), strings.NewReader(sampleCSV))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	imp := NewCSVImporter(&memoryStore{}, DefaultImportOptions(), nil)

	_, err := imp.Import(context.Background(), strings.NewReader("id,name\n1,Bolt\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestCSVImporter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	imp := NewCSVImporter(&memoryStore{}, DefaultImportOptions(), nil)
	_, err := imp.Import(ctx, strings.NewReader(sampleCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVImporter_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	store := &memoryStore{}
	stats, err := NewCSVImporter(store, DefaultImportOptions(), nil).ImportFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ImportedCards)

	_, err = NewCSVImporter(store, DefaultImportOptions(), nil).ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestNormalizeRarity(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"M", "M", true},
		{"mythic", "M", true},
		{"Mythic Rare", "M", true},
		{"rare", "R", true},
		{"u", "U", true},
		{"Common", "C", true},
		{"special", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeRarity(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeRarity(%q) = %q, %v, want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
