// Package publisher runs the deck pipeline: parse a deck file, enrich its
// cards from the reference database, look up market prices, render the
// preview page and publish the auction.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-publisher/internal/allegro"
	"github.com/ramonehamilton/deck-publisher/internal/charts"
	"github.com/ramonehamilton/deck-publisher/internal/metrics"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/cards/fuzzy"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
	"github.com/ramonehamilton/deck-publisher/internal/mtgnet"
	"github.com/ramonehamilton/deck-publisher/internal/render"
)

// MetadataLookup resolves card identities to reference metadata.
type MetadataLookup interface {
	LookupCards(ctx context.Context, ids []cards.Identity) (map[cards.Identity]cards.Metadata, error)
}

// NameSource lists every known card name. A MetadataLookup that also
// implements NameSource gets spelling suggestions for unresolved cards.
type NameSource interface {
	CardNames(ctx context.Context) ([]string, error)
}

// PriceLookup returns the aggregated market offer for a card name. A nil
// summary means the card is not offered.
type PriceLookup interface {
	SearchAggregated(ctx context.Context, name, artist string) (*mtgnet.Summary, error)
}

// AuctionPublisher creates marketplace offers.
type AuctionPublisher interface {
	CreateDeckAuction(ctx context.Context, a allegro.Auction) (*allegro.Result, error)
}

// Options configures a Service.
type Options struct {
	// Parser normalizes deck files. Nil uses deckfile.DefaultOptions.
	Parser *deckfile.Options

	// Template renders pages. Nil uses the embedded template.
	Template *render.Template

	// DeckExtension and PageExtension name the preview file.
	DeckExtension string
	PageExtension string

	// TitleTag is appended to auction titles.
	TitleTag string
}

// BuildOptions selects what Build produces.
type BuildOptions struct {
	ShowRating bool
	ShowPrices bool
	Chart      bool
}

// Build is a parsed, enriched deck and the files written for it.
type Build struct {
	Deck        *deckfile.Deck
	DeckPath    string
	PreviewPath string
	ChartPath   string

	HeaderAdded bool
	Warnings    []string

	// Resolved is the number of cards found in the reference database.
	Resolved int
	// Unresolved lists cards without reference data.
	Unresolved []cards.Identity
	// Suggestions holds close reference names for misspelled unresolved cards.
	Suggestions map[cards.Identity][]string
}

// Service runs the pipeline. Metadata and Prices may be nil, in which case
// the corresponding step is skipped.
type Service struct {
	parser   *deckfile.Parser
	metadata MetadataLookup
	prices   PriceLookup
	tmpl     *render.Template
	logger   *zap.Logger

	deckExt  string
	pageExt  string
	titleTag string

	priceCache map[string]*mtgnet.Summary
	names      []string
	metrics    *metrics.Pipeline
}

// NewService creates a pipeline service.
func NewService(metadata MetadataLookup, prices PriceLookup, opts Options, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl := opts.Template
	if tmpl == nil {
		var err error
		if tmpl, err = render.New(); err != nil {
			return nil, err
		}
	}

	pageExt := opts.PageExtension
	if pageExt == "" {
		pageExt = ".html"
	}

	return &Service{
		parser:     deckfile.NewParser(opts.Parser),
		metadata:   metadata,
		prices:     prices,
		tmpl:       tmpl,
		logger:     logger,
		deckExt:    opts.DeckExtension,
		pageExt:    pageExt,
		titleTag:   opts.TitleTag,
		priceCache: make(map[string]*mtgnet.Summary),
		metrics:    metrics.NewPipeline(),
	}, nil
}

// Metrics returns the pipeline metrics of the service.
func (s *Service) Metrics() *metrics.Pipeline {
	return s.metrics
}

// Load parses a deck file.
func (s *Service) Load(path string) (*deckfile.ParseResult, error) {
	result, err := s.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	if result.HeaderAdded {
		s.logger.Info("Added tag header to deck file", zap.String("path", path))
	}
	for _, w := range result.Warnings {
		s.logger.Warn("Deck file warning", zap.String("path", path), zap.String("warning", w))
	}
	return result, nil
}

// Enrich resolves the cards of both lists with one bulk lookup. It returns
// the identities that were not found.
func (s *Service) Enrich(ctx context.Context, deck *deckfile.Deck) (int, []cards.Identity, error) {
	if s.metadata == nil {
		return 0, nil, nil
	}

	all := deck.AllCards()
	start := time.Now()
	records, err := s.metadata.LookupCards(ctx, all.Identities())
	s.metrics.LookupLatency.Since(start)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to look up cards: %w", err)
	}

	resolved := deck.Main.ApplyMetadata(records) + deck.Sideboard.ApplyMetadata(records)

	var missing []cards.Identity
	for _, id := range all.Identities() {
		if _, ok := records[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		s.logger.Warn("Cards missing from reference database", zap.Int("count", len(missing)))
		for _, id := range missing {
			s.logger.Debug("Unresolved card", zap.String("card", id.String()))
		}
	}

	return resolved, missing, nil
}

// Suggest returns up to three similarly spelled reference names for each
// unresolved card. Cards whose name is known but not in the given set get no
// suggestion. Failures only cost the suggestions and are logged.
func (s *Service) Suggest(ctx context.Context, missing []cards.Identity) map[cards.Identity][]string {
	source, ok := s.metadata.(NameSource)
	if !ok || len(missing) == 0 {
		return nil
	}

	if s.names == nil {
		names, err := source.CardNames(ctx)
		if err != nil {
			s.logger.Warn("Failed to load card names", zap.Error(err))
			return nil
		}
		s.names = names
	}

	suggestions := make(map[cards.Identity][]string)
	for _, id := range missing {
		var matches []string
		for _, name := range fuzzy.Names(fuzzy.Search(id.Name, s.names, fuzzy.DefaultSearchOptions())) {
			if strings.EqualFold(name, id.Name) {
				matches = nil
				break
			}
			matches = append(matches, name)
		}
		if len(matches) > 0 {
			suggestions[id] = matches
			s.logger.Debug("Spelling suggestions", zap.String("card", id.String()), zap.Strings("names", matches))
		}
	}
	return suggestions
}

// Prices looks up the market price of every distinct card name of the deck.
// Results are memoized for the lifetime of the Service. A failed lookup is
// logged and the card is left without a price.
func (s *Service) Prices(ctx context.Context, deck *deckfile.Deck) (map[string]render.Price, error) {
	prices := make(map[string]render.Price)
	if s.prices == nil {
		return prices, nil
	}

	for _, c := range deck.AllCards().Cards() {
		name := c.Name()
		if _, done := prices[name]; done {
			continue
		}

		summary, cached := s.priceCache[name]
		if cached {
			s.metrics.PriceCacheHits.Add(1)
		} else {
			s.metrics.PriceCacheMisses.Add(1)
			s.metrics.PriceRequests.Add(1)

			start := time.Now()
			var err error
			summary, err = s.prices.SearchAggregated(ctx, name, "")
			s.metrics.PriceLatency.Since(start)
			if err != nil {
				s.metrics.PriceErrors.Add(1)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				s.logger.Warn("Price lookup failed", zap.String("card", name), zap.Error(err))
				continue
			}
			s.priceCache[name] = summary
		}

		if summary != nil {
			prices[name] = render.Price{Value: summary.Price, Stock: summary.Count}
		}
	}
	return prices, nil
}

// PreviewPath returns the page path for a deck file: the deck extension is
// replaced by the page extension, or the page extension is appended.
func (s *Service) PreviewPath(deckPath string) string {
	ext := filepath.Ext(deckPath)
	if ext != "" && (s.deckExt == "" || strings.EqualFold(ext, s.deckExt)) {
		return strings.TrimSuffix(deckPath, ext) + s.pageExt
	}
	return deckPath + s.pageExt
}

// ChartPath returns the rarity chart page path for a deck file.
func (s *Service) ChartPath(deckPath string) string {
	preview := s.PreviewPath(deckPath)
	return strings.TrimSuffix(preview, s.pageExt) + ".chart" + s.pageExt
}

// Build parses and enriches a deck and writes its preview page, plus the
// rarity chart when requested.
func (s *Service) Build(ctx context.Context, path string, opts BuildOptions) (*Build, error) {
	result, err := s.Load(path)
	if err != nil {
		return nil, err
	}
	deck := result.Deck

	resolved, missing, err := s.Enrich(ctx, deck)
	if err != nil {
		return nil, err
	}

	renderOpts := render.Options{ShowRating: opts.ShowRating, ShowPrices: opts.ShowPrices}
	if opts.ShowPrices {
		if renderOpts.Prices, err = s.Prices(ctx, deck); err != nil {
			return nil, err
		}
	}

	build := &Build{
		Deck:        deck,
		DeckPath:    path,
		PreviewPath: s.PreviewPath(path),
		HeaderAdded: result.HeaderAdded,
		Warnings:    result.Warnings,
		Resolved:    resolved,
		Unresolved:  missing,
		Suggestions: s.Suggest(ctx, missing),
	}

	start := time.Now()
	if err := s.tmpl.RenderFile(build.PreviewPath, deck, renderOpts); err != nil {
		return nil, err
	}
	s.metrics.RenderLatency.Since(start)
	s.logger.Info("Preview written",
		zap.String("path", build.PreviewPath),
		zap.Int("cards", deck.CardCount()),
		zap.Int("resolved", resolved))

	if opts.Chart {
		build.ChartPath = s.ChartPath(path)
		if err := charts.RenderRarityChartFile(build.ChartPath, deck, charts.DefaultChartConfig()); err != nil {
			return nil, err
		}
		s.logger.Info("Rarity chart written", zap.String("path", build.ChartPath))
	}

	s.metrics.Builds.Add(1)
	s.logger.Debug("Pipeline metrics", s.metrics.Field())
	return build, nil
}

// Description renders the auction description: the deck page without the
// rating and price columns.
func (s *Service) Description(deck *deckfile.Deck) (string, error) {
	return s.tmpl.RenderString(deck, render.Options{})
}

// Title returns the auction title of deck.
func (s *Service) Title(deck *deckfile.Deck) string {
	return deck.TitleWithTag(s.titleTag)
}

// Publish creates the auction for a built deck.
func (s *Service) Publish(ctx context.Context, pub AuctionPublisher, build *Build) (*allegro.Result, error) {
	if pub == nil {
		return nil, errors.New("no auction publisher")
	}
	if build == nil || build.Deck == nil {
		return nil, errors.New("nothing to publish")
	}

	runID := uuid.New().String()
	logger := s.logger.With(zap.String("run_id", runID))

	description, err := s.Description(build.Deck)
	if err != nil {
		return nil, err
	}

	auction := allegro.Auction{
		Title:       s.Title(build.Deck),
		Price:       build.Deck.Price,
		Description: description,
		Photos:      build.Deck.Photos,
		PhotoDir:    filepath.Dir(build.DeckPath),
	}

	logger.Info("Publishing deck",
		zap.String("title", auction.Title),
		zap.String("price", auction.Price),
		zap.Int("photos", len(auction.Photos)))

	result, err := pub.CreateDeckAuction(ctx, auction)
	if err != nil {
		logger.Error("Publishing failed", zap.Error(err))
		return nil, fmt.Errorf("failed to publish deck %q: %w", build.Deck.Name, err)
	}

	logger.Info("Deck published", zap.Int64("item_id", result.ItemID), zap.String("fee", result.ItemInfo))
	return result, nil
}
