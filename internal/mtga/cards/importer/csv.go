package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/storage/models"
)

// Column names recognised in the header row. Matching is case-insensitive.
const (
	ColumnID           = "id"
	ColumnName         = "name"
	ColumnSet          = "set"
	ColumnType         = "type"
	ColumnRarity       = "rarity"
	ColumnManaCost     = "mana_cost"
	ColumnRating       = "rating"
	ColumnArtist       = "artist"
	ColumnMtgNetCode   = "code_mtgnet"
	ColumnGathererCode = "code_gatherer"
)

var requiredColumns = []string{ColumnID, ColumnName, ColumnSet}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Store receives imported reference rows.
type Store interface {
	SaveCards(ctx context.Context, rows []*models.ReferenceCard) error
	SaveSets(ctx context.Context, sets []*models.Set) error
}

// ImportOptions configures the import process.
type ImportOptions struct {
	// BatchSize is the number of cards to insert per transaction.
	BatchSize int

	// Progress is an optional callback receiving the number of cards imported
	// after each batch.
	Progress func(imported int)
}

// DefaultImportOptions returns sensible default options.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		BatchSize: 500,
	}
}

// ImportStats contains statistics about the import process.
type ImportStats struct {
	TotalRows     int
	ImportedCards int
	SkippedRows   int
	Sets          int
	Duration      time.Duration
}

// CSVImporter loads card reference rows from a CSV export into the card
// database.
type CSVImporter struct {
	store   Store
	options ImportOptions
	logger  *zap.Logger
}

// NewCSVImporter creates a new CSV importer.
func NewCSVImporter(store Store, options ImportOptions, logger *zap.Logger) *CSVImporter {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultImportOptions().BatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{store: store, options: options, logger: logger}
}

// ImportFile imports the CSV file at path.
func (ci *CSVImporter) ImportFile(ctx context.Context, path string) (*ImportStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ci.Import(ctx, file)
}

// Import reads reference rows from r. Malformed rows are skipped and counted;
// only header and storage failures abort the import.
func (ci *CSVImporter) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	start := time.Now()
	stats := &ImportStats{}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	sets := make(map[string]*models.Set)
	var setOrder []string
	batch := make([]*models.ReferenceCard, 0, ci.options.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ci.store.SaveCards(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		stats.ImportedCards += len(batch)
		if ci.options.Progress != nil {
			ci.options.Progress(stats.ImportedCards)
		}
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			stats.SkippedRows++
			ci.logger.Warn("Skipping unreadable CSV row", zap.Int("line", line), zap.Error(err))
			continue
		}
		stats.TotalRows++

		card, set, err := cols.convert(record)
		if err != nil {
			stats.SkippedRows++
			ci.logger.Warn("Skipping invalid CSV row", zap.Int("line", line), zap.Error(err))
			continue
		}

		if existing, ok := sets[set.Code]; ok {
			if set.MtgNetCode != nil {
				existing.MtgNetCode = set.MtgNetCode
			}
			if set.GathererCode != nil {
				existing.GathererCode = set.GathererCode
			}
		} else {
			sets[set.Code] = set
			setOrder = append(setOrder, set.Code)
		}

		batch = append(batch, card)
		if len(batch) >= ci.options.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	setRows := make([]*models.Set, 0, len(setOrder))
	for _, code := range setOrder {
		setRows = append(setRows, sets[code])
	}
	if err := ci.store.SaveSets(ctx, setRows); err != nil {
		return stats, fmt.Errorf("failed to save sets: %w", err)
	}
	stats.Sets = len(setRows)

	if err := flush(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	ci.logger.Info("Card import complete",
		zap.Int("rows", stats.TotalRows),
		zap.Int("imported", stats.ImportedCards),
		zap.Int("skipped", stats.SkippedRows),
		zap.Int("sets", stats.Sets),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// columns maps column names to record indices; -1 marks an absent column.
type columns map[string]int

func parseHeader(header []string) (columns, error) {
	cols := columns{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) optional(record []string, name string) *string {
	if v := c.get(record, name); v != "" {
		return &v
	}
	return nil
}

func (c columns) convert(record []string) (*models.ReferenceCard, *models.Set, error) {
	id, err := strconv.Atoi(c.get(record, ColumnID))
	if err != nil || id <= 0 {
		return nil, nil, fmt.Errorf("invalid id %q", c.get(record, ColumnID))
	}

	name := c.get(record, ColumnName)
	setCode := c.get(record, ColumnSet)
	if name == "" || setCode == "" {
		return nil, nil, fmt.Errorf("row %d has an empty name or set", id)
	}

	card := &models.ReferenceCard{
		ID:       id,
		Name:     name,
		SetCode:  setCode,
		Type:     c.optional(record, ColumnType),
		ManaCost: c.optional(record, ColumnManaCost),
		Artist:   c.optional(record, ColumnArtist),
	}

	if raw := c.get(record, ColumnRarity); raw != "" {
		code, ok := NormalizeRarity(raw)
		if !ok {
			return nil, nil, fmt.Errorf("unknown rarity %q", raw)
		}
		card.Rarity = &code
	}

	if raw := c.get(record, ColumnRating); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil || rating < 0 || rating > 5 {
			return nil, nil, fmt.Errorf("invalid rating %q", raw)
		}
		card.Rating = &rating
	}

	set := &models.Set{
		Code:         setCode,
		MtgNetCode:   c.optional(record, ColumnMtgNetCode),
		GathererCode: c.optional(record, ColumnGathererCode),
	}

	return card, set, nil
}

// NormalizeRarity maps a rarity code or word ("R", "rare", "Mythic Rare") to
// the single-letter code stored in the database.
func NormalizeRarity(raw string) (string, bool) {
	if r := cards.ParseRarity(raw); r != cards.RarityUnknown {
		return r.Code(), true
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "mythic", "mythic rare":
		return cards.RarityMythic.Code(), true
	case "r", "rare":
		return cards.RarityRare.Code(), true
	case "u", "uncommon":
		return cards.RarityUncommon.Code(), true
	case "c", "common":
		return cards.RarityCommon.Code(), true
	}
	return "", false
}
