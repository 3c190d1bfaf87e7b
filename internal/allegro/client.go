// Package allegro publishes deck offers through the Allegro WebAPI SOAP
// service.
package allegro

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrMissingCredentials is returned when login, password or WebAPI key
	// is empty.
	ErrMissingCredentials = errors.New("missing marketplace credentials")

	// ErrInvalidPrice is returned when the deck price is not a positive
	// amount.
	ErrInvalidPrice = errors.New("invalid buy-now price")
)

// Environment is one WebAPI deployment, e.g. the sandbox or production.
type Environment struct {
	Name      string
	Endpoint  string
	Namespace string
}

// Credentials authenticate the seller account.
type Credentials struct {
	Login     string
	Password  string
	WebAPIKey string
}

// Config configures a Client.
type Config struct {
	Environment Environment
	Credentials Credentials
	Offer       Offer
	FieldIDs    FieldIDs

	Timeout       time.Duration
	PhotoInterval time.Duration
}

// Auction is a deck offer ready to publish.
type Auction struct {
	Title       string
	Price       string // verbatim deck price, "49.99" or "49,99"
	Description string // HTML
	Photos      []string
	PhotoDir    string // base for relative photo paths
}

// Result is the outcome of a created auction.
type Result struct {
	ItemID   int64
	ItemInfo string
}

// Client talks to one WebAPI environment. Login state is kept between calls.
type Client struct {
	httpClient *http.Client
	env        Environment
	creds      Credentials
	offer      Offer
	fids       FieldIDs
	photos     *PhotoLoader
	logger     *zap.Logger

	versionKey int64
	session    string
}

// NewClient creates a WebAPI client. It does not contact the service.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Credentials.Login == "" || cfg.Credentials.Password == "" || cfg.Credentials.WebAPIKey == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Environment.Endpoint == "" {
		return nil, fmt.Errorf("environment %q has no endpoint", cfg.Environment.Name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		httpClient: httpClient,
		env:        cfg.Environment,
		creds:      cfg.Credentials,
		offer:      cfg.Offer,
		fids:       cfg.FieldIDs,
		photos:     NewPhotoLoader(httpClient, cfg.PhotoInterval),
		logger:     logger.With(zap.String("environment", cfg.Environment.Name)),
	}, nil
}

type sysStatusRequest struct {
	XMLName   xml.Name
	SysVar    int    `xml:"sysvar"`
	CountryID int    `xml:"countryId"`
	WebAPIKey string `xml:"webapiKey"`
}

type sysStatusResponse struct {
	Info   string `xml:"info"`
	VerKey int64  `xml:"verKey"`
}

type loginRequest struct {
	XMLName      xml.Name
	Login        string `xml:"userLogin"`
	Password     string `xml:"userPassword"`
	CountryCode  int    `xml:"countryCode"`
	WebAPIKey    string `xml:"webapiKey"`
	LocalVersion int64  `xml:"localVersion"`
}

type loginResponse struct {
	SessionHandle string `xml:"sessionHandlePart"`
	UserID        int64  `xml:"userId"`
	ServerTime    int64  `xml:"serverTime"`
}

type newAuctionRequest struct {
	XMLName        xml.Name
	SessionHandle  string  `xml:"sessionHandle"`
	Fields         []Field `xml:"fields>item"`
	ItemTemplateID int     `xml:"itemTemplateId"`
	LocalID        int     `xml:"localId"`
	TemplateCreate struct {
		Option int    `xml:"itemTemplateOption"`
		Name   string `xml:"itemTemplateName"`
	} `xml:"itemTemplateCreate"`
}

type newAuctionResponse struct {
	ItemID   int64  `xml:"itemId"`
	ItemInfo string `xml:"itemInfo"`
}

func (c *Client) name(local string) xml.Name {
	return xml.Name{Space: c.env.Namespace, Local: local}
}

// VersionKey queries the WebAPI component version required by login.
func (c *Client) VersionKey(ctx context.Context) (int64, error) {
	c.logger.Debug("doQuerySysStatus")

	resp, err := call[sysStatusResponse](ctx, c, "doQuerySysStatus", &sysStatusRequest{
		XMLName:   c.name("DoQuerySysStatusRequest"),
		SysVar:    1,
		CountryID: c.offer.Country,
		WebAPIKey: c.creds.WebAPIKey,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query version key: %w", err)
	}
	return resp.VerKey, nil
}

// Login fetches the version key and opens a session.
func (c *Client) Login(ctx context.Context) error {
	verKey, err := c.VersionKey(ctx)
	if err != nil {
		return err
	}
	c.versionKey = verKey

	c.logger.Debug("doLogin", zap.String("login", c.creds.Login))
	resp, err := call[loginResponse](ctx, c, "doLogin", &loginRequest{
		XMLName:      c.name("DoLoginRequest"),
		Login:        c.creds.Login,
		Password:     c.creds.Password,
		CountryCode:  c.offer.Country,
		WebAPIKey:    c.creds.WebAPIKey,
		LocalVersion: verKey,
	})
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if resp.SessionHandle == "" {
		return fmt.Errorf("failed to log in: empty session handle")
	}

	c.session = resp.SessionHandle
	c.logger.Info("Logged in to marketplace", zap.Int64("user_id", resp.UserID))
	return nil
}

// LoggedIn reports whether a session is open.
func (c *Client) LoggedIn() bool {
	return c.session != ""
}

// NewAuction creates an offer from a prepared field list.
func (c *Client) NewAuction(ctx context.Context, fields []Field) (*Result, error) {
	if !c.LoggedIn() {
		return nil, fmt.Errorf("not logged in")
	}

	c.logger.Debug("doNewAuctionExt", zap.Int("fields", len(fields)))
	resp, err := call[newAuctionResponse](ctx, c, "doNewAuctionExt", &newAuctionRequest{
		XMLName:       c.name("DoNewAuctionExtRequest"),
		SessionHandle: c.session,
		Fields:        fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	return &Result{ItemID: resp.ItemID, ItemInfo: resp.ItemInfo}, nil
}

// CreateDeckAuction logs in when needed, loads the photos and creates the
// deck offer.
func (c *Client) CreateDeckAuction(ctx context.Context, a Auction) (*Result, error) {
	price, err := ParsePrice(a.Price)
	if err != nil {
		return nil, err
	}

	photos, err := c.photos.LoadAll(ctx, a.Photos, a.PhotoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load photos: %w", err)
	}

	if !c.LoggedIn() {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	fields := buildFields(c.fids, c.offer, a.Title, price, a.Description, photos)
	result, err := c.NewAuction(ctx, fields)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Auction created",
		zap.Int64("item_id", result.ItemID),
		zap.String("fee", result.ItemInfo),
		zap.String("title", a.Title))
	return result, nil
}

// ParsePrice converts a deck price to an amount. A decimal comma is
// accepted.
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return v, nil
}
