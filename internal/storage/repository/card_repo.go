package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/storage/models"
)

// lookupBatchSize bounds the number of (name, set) pairs per lookup query.
const lookupBatchSize = 200

// CardRepository resolves deck entries against the card reference tables.
type CardRepository interface {
	// LookupCards returns metadata for every identity found in the reference
	// table. Identities without a row are absent from the map.
	LookupCards(ctx context.Context, ids []cards.Identity) (map[cards.Identity]cards.Metadata, error)

	// SaveCards inserts or updates reference cards in one transaction.
	SaveCards(ctx context.Context, rows []*models.ReferenceCard) error

	// SaveSets inserts or updates set alias rows in one transaction.
	SaveSets(ctx context.Context, sets []*models.Set) error

	// CountCards returns the number of reference cards.
	CountCards(ctx context.Context) (int, error)

	// CardNames returns the distinct reference card names in name order.
	CardNames(ctx context.Context) ([]string, error)
}

type cardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new card reference repository.
func NewCardRepository(db *sql.DB) CardRepository {
	return &cardRepository{db: db}
}

// LookupCards resolves identities in batches with row-value IN queries.
func (r *cardRepository) LookupCards(ctx context.Context, ids []cards.Identity) (map[cards.Identity]cards.Metadata, error) {
	result := make(map[cards.Identity]cards.Metadata, len(ids))

	unique := make([]cards.Identity, 0, len(ids))
	seen := make(map[cards.Identity]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	for start := 0; start < len(unique); start += lookupBatchSize {
		end := min(start+lookupBatchSize, len(unique))
		if err := r.lookupBatch(ctx, unique[start:end], result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (r *cardRepository) lookupBatch(ctx context.Context, ids []cards.Identity, out map[cards.Identity]cards.Metadata) error {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)*2)
	for i, id := range ids {
		placeholders[i] = "(?, ?)"
		args = append(args, id.Name, id.SetCode)
	}

	query := `
		SELECT c.id, c.name, c.set_code, c.type, c.rarity, c.mana_cost, c.rating, c.artist,
			s.code_mtgnet, s.code_gatherer
		FROM cards c
		LEFT JOIN sets s ON s.code = c.set_code
		WHERE (c.name, c.set_code) IN (VALUES ` + strings.Join(placeholders, ", ") + `)
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id                             int
			name, setCode                  string
			cardType, rarity, mana, artist sql.NullString
			rating                         sql.NullFloat64
			mtgnet, gatherer               sql.NullString
		)
		if err := rows.Scan(&id, &name, &setCode, &cardType, &rarity, &mana, &rating, &artist, &mtgnet, &gatherer); err != nil {
			return fmt.Errorf("failed to scan card: %w", err)
		}

		meta := cards.Metadata{
			ID:       cards.Ptr(id),
			Type:     nullString(cardType),
			Rarity:   nullString(rarity),
			ManaCost: nullString(mana),
			Artist:   nullString(artist),
		}
		if rating.Valid {
			meta.Rating = cards.Ptr(math.Round(rating.Float64*10) / 10)
		}
		if mtgnet.Valid || gatherer.Valid {
			meta.Aliases = make(map[string]string)
			if mtgnet.Valid {
				meta.Aliases[cards.AliasMtgNet] = mtgnet.String
			}
			if gatherer.Valid {
				meta.Aliases[cards.AliasGatherer] = gatherer.String
			}
		}

		out[cards.Identity{Name: name, SetCode: setCode}] = meta
	}

	return rows.Err()
}

// SaveCards upserts reference cards keyed by multiverse id.
func (r *cardRepository) SaveCards(ctx context.Context, rows []*models.ReferenceCard) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (id, name, set_code, type, rarity, mana_cost, rating, artist)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			set_code = excluded.set_code,
			type = excluded.type,
			rarity = excluded.rarity,
			mana_cost = excluded.mana_cost,
			rating = excluded.rating,
			artist = excluded.artist
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare card insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range rows {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.SetCode, c.Type, c.Rarity, c.ManaCost, c.Rating, c.Artist); err != nil {
			return fmt.Errorf("failed to save card %s [%s]: %w", c.Name, c.SetCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cards: %w", err)
	}
	return nil
}

// SaveSets upserts set alias rows keyed by set code.
func (r *cardRepository) SaveSets(ctx context.Context, sets []*models.Set) error {
	if len(sets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range sets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sets (code, name, code_mtgnet, code_gatherer)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(code) DO UPDATE SET
				name = COALESCE(excluded.name, sets.name),
				code_mtgnet = COALESCE(excluded.code_mtgnet, sets.code_mtgnet),
				code_gatherer = COALESCE(excluded.code_gatherer, sets.code_gatherer)
		`, s.Code, s.Name, s.MtgNetCode, s.GathererCode)
		if err != nil {
			return fmt.Errorf("failed to save set %s: %w", s.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sets: %w", err)
	}
	return nil
}

// CountCards returns the number of reference cards.
func (r *cardRepository) CountCards(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

// CardNames returns the distinct reference card names.
func (r *cardRepository) CardNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT name FROM cards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card names: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan card name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
