// Package mtgnet searches the MtgNet marketplace for card listings and
// aggregates them into a single price summary per card.
package mtgnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultSearchURL is the ajax endpoint behind the MtgNet search page.
	DefaultSearchURL = "http://www.mtgnet.pl/ajax_wyszukiwarka.php"

	defaultRequestInterval = 500 * time.Millisecond
	defaultTimeout         = 30 * time.Second
	defaultMaxRetries      = 3
	initialBackoff         = 1 * time.Second
	maxBackoff             = 16 * time.Second
	perPage                = 50
)

// Options configures the MtgNet client.
type Options struct {
	SearchURL       string
	RequestInterval time.Duration
	Timeout         time.Duration
	MaxRetries      int
	UserAgent       string

	// InitialBackoff is the first retry delay; it doubles up to 16s.
	InitialBackoff time.Duration
}

// DefaultOptions returns the options used against the public service.
func DefaultOptions() Options {
	return Options{
		SearchURL:       DefaultSearchURL,
		RequestInterval: defaultRequestInterval,
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		UserAgent:       "deck-publisher/1.0",
		InitialBackoff:  initialBackoff,
	}
}

// Client is a rate limited MtgNet search client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	opts        Options
	logger      *zap.Logger
}

// NewClient creates a new MtgNet client. Zero option fields take their
// defaults.
func NewClient(opts Options, logger *zap.Logger) *Client {
	def := DefaultOptions()
	if opts.SearchURL == "" {
		opts.SearchURL = def.SearchURL
	}
	if opts.RequestInterval <= 0 {
		opts.RequestInterval = def.RequestInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(opts.RequestInterval), 1),
		opts:        opts,
		logger:      logger,
	}
}

// Query describes one search.
type Query struct {
	Name    string
	Edition string // MtgNet set code, empty for all sets
	Artist  string // narrows to one illustration when set
	Foil    bool   // true returns only foil listings, false only non-foil
}

// Listing is one offer row of a search result.
type Listing struct {
	Name      string
	Set       string
	Number    string
	Rarity    string
	Artist    string
	Type      string
	Mana      string
	Language  string
	Condition string
	Foil      bool
	Count     int
	Price     float64
}

// Summary aggregates the listings of one card across every set.
type Summary struct {
	Name     string
	Set      string // set of the first listing
	Artist   string
	Price    float64 // average price, rounded to 2 decimals
	Count    int     // total stock
	Listings int
}

// SearchCard returns the listings matching q, filtered to foil or non-foil
// offers.
func (c *Client) SearchCard(ctx context.Context, q Query) ([]Listing, error) {
	body, err := c.doRequest(ctx, searchForm(q))
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", q.Name, err)
	}

	rows, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results for %q: %w", q.Name, err)
	}

	listings := make([]Listing, 0, len(rows))
	for _, row := range rows {
		l := listingFromRow(row)
		if l.Foil == q.Foil {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

// SearchAggregated searches non-foil listings of name in every set and folds
// them into one Summary. A search without listings returns nil.
func (c *Client) SearchAggregated(ctx context.Context, name, artist string) (*Summary, error) {
	listings, err := c.SearchCard(ctx, Query{Name: name, Artist: artist})
	if err != nil {
		return nil, err
	}

	summary := Aggregate(listings)
	if summary == nil {
		c.logger.Debug("No MtgNet listings", zap.String("card", name))
	}
	return summary, nil
}

// Aggregate folds listings into a Summary, or returns nil when there are none.
func Aggregate(listings []Listing) *Summary {
	if len(listings) == 0 {
		return nil
	}

	var priceTotal float64
	var countTotal int
	for _, l := range listings {
		priceTotal += l.Price
		countTotal += l.Count
	}

	first := listings[0]
	return &Summary{
		Name:     first.Name,
		Set:      first.Set,
		Artist:   first.Artist,
		Price:    roundPrice(priceTotal / float64(len(listings))),
		Count:    countTotal,
		Listings: len(listings),
	}
}

func searchForm(q Query) url.Values {
	search := q.Name
	illustrator := "0"
	if q.Artist != "" {
		search += " " + q.Artist
		illustrator = "1"
	}

	return url.Values{
		"colBlack":    {"1"},
		"colBlue":     {"1"},
		"colGreen":    {"1"},
		"colLess":     {"1"},
		"colRed":      {"1"},
		"colWhite":    {"1"},
		"editions":    {q.Edition},
		"page":        {"0"},
		"perPage":     {strconv.Itoa(perPage)},
		"rarCommon":   {"1"},
		"rarRare":     {"1"},
		"rarUncommon": {"1"},
		"rgnFlavor":   {"0"},
		"rgnIllustr":  {illustrator},
		"rgnName":     {"1"},
		"rgnText":     {"0"},
		"rgnType":     {"0"},
		"sortBy":      {"price"},
		"sortOrder":   {"asc"},
		"string":      {search},
		"world":       {"0"},
	}
}

// doRequest posts the search form with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, form url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.opts.InitialBackoff
	encoded := form.Encode()

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("Retrying MtgNet search",
				zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))
			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff = min(backoff*2, maxBackoff)
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.SearchURL, strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.opts.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			lastErr = &StatusError{Code: resp.StatusCode}
			continue
		default:
			return nil, &StatusError{Code: resp.StatusCode}
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
