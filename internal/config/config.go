package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/deck-publisher/internal/allegro"
	"github.com/ramonehamilton/deck-publisher/internal/mtga/deckfile"
	"github.com/ramonehamilton/deck-publisher/internal/mtgnet"
	"github.com/ramonehamilton/deck-publisher/internal/secrets"
	"github.com/ramonehamilton/deck-publisher/internal/storage"
)

// Keys read from an environment's .env file.
const (
	EnvLogin     = "WEBAPI_LOGIN"
	EnvPassword  = "WEBAPI_PASSWORD"
	EnvWebAPIKey = "WEBAPI_KEY"

	// PassphraseVar unlocks an encrypted WEBAPI_PASSWORD.
	PassphraseVar = "DECK_PUBLISHER_PASSPHRASE"
)

// Names of the built-in marketplace environments.
const (
	EnvTest = "test"
	EnvProd = "prod"
)

const dirName = ".deck-publisher"

// ErrUnknownEnvironment is returned for an environment missing from the
// marketplace section.
var ErrUnknownEnvironment = errors.New("unknown marketplace environment")

// Config represents the application configuration.
type Config struct {
	// Deck file handling
	Deck DeckConfig `toml:"deck"`

	// Card reference database
	Database DatabaseConfig `toml:"database"`

	// MtgNet price lookups
	Pricing PricingConfig `toml:"pricing"`

	// Preview page rendering
	Render RenderConfig `toml:"render"`

	// Auction publishing
	Marketplace MarketplaceConfig `toml:"marketplace"`
}

// DeckConfig contains deck file settings.
type DeckConfig struct {
	Extension     string `toml:"extension"`      // Deck file extension (".mwDeck")
	PageExtension string `toml:"page_extension"` // Preview page extension (".html")
	HeaderFile    string `toml:"header_file"`    // Custom header block, empty for the built-in one
	RewriteFile   bool   `toml:"rewrite_file"`   // Write the header back into the deck file
	TitleTag      string `toml:"title_tag"`      // Appended to auction titles
}

// DatabaseConfig contains card database settings.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // SQLite file
	BusyTimeout string `toml:"busy_timeout"` // e.g. "5s"
	JournalMode string `toml:"journal_mode"` // WAL, DELETE, ...
	AutoMigrate bool   `toml:"auto_migrate"` // Apply migrations on open
}

// PricingConfig contains MtgNet client settings.
type PricingConfig struct {
	SearchURL       string `toml:"search_url"`
	RequestInterval string `toml:"request_interval"` // e.g. "500ms"
	Timeout         string `toml:"timeout"`
	MaxRetries      int    `toml:"max_retries"`
}

// RenderConfig contains preview page overrides.
type RenderConfig struct {
	TemplateFile string `toml:"template_file"`
	StyleFile    string `toml:"style_file"`
}

// MarketplaceConfig contains offer constants and WebAPI environments.
type MarketplaceConfig struct {
	Timeout       string                       `toml:"timeout"`
	PhotoInterval string                       `toml:"photo_interval"`
	Offer         allegro.Offer                `toml:"offer"`
	FieldIDs      allegro.FieldIDs             `toml:"field_ids"`
	Environments  map[string]EnvironmentConfig `toml:"environments"`
}

// EnvironmentConfig describes one WebAPI deployment. EnvFile holds its
// credentials; a relative path is resolved against the config directory.
type EnvironmentConfig struct {
	Endpoint  string `toml:"endpoint"`
	Namespace string `toml:"namespace"`
	EnvFile   string `toml:"env_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Deck: DeckConfig{
			Extension:     ".mwDeck",
			PageExtension: ".html",
			HeaderFile:    "",
			RewriteFile:   true,
			TitleTag:      "[redienss]",
		},
		Database: DatabaseConfig{
			Path:        "cards.db",
			BusyTimeout: "5s",
			JournalMode: "WAL",
			AutoMigrate: true,
		},
		Pricing: PricingConfig{
			SearchURL:       mtgnet.DefaultSearchURL,
			RequestInterval: "500ms",
			Timeout:         "30s",
			MaxRetries:      3,
		},
		Marketplace: MarketplaceConfig{
			Timeout:       "60s",
			PhotoInterval: "200ms",
			Offer: allegro.Offer{
				Category:      6066,
				Duration:      3,
				ItemCount:     1,
				Country:       1,
				State:         6,
				ShipmentPayer: 1,
				PaymentForm:   1,
				OfferType:     1,
				ShipmentCost:  6.0,
			},
			FieldIDs: allegro.DefaultFieldIDs(),
			Environments: map[string]EnvironmentConfig{
				EnvTest: {
					Endpoint:  "https://webapi.allegro.pl.webapisandbox.pl/service.php",
					Namespace: "https://webapi.allegro.pl.webapisandbox.pl/service.php",
					EnvFile:   "test.env",
				},
				EnvProd: {
					Endpoint:  "https://webapi.allegro.pl/service.php",
					Namespace: "https://webapi.allegro.pl/service.php",
					EnvFile:   "prod.env",
				},
			},
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, dirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return configDir, nil
}

// DefaultPath returns the path to the configuration file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path. Returns the default config if
// the file doesn't exist. Keys missing from the file keep their defaults, and
// relative paths are resolved against the file's directory.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()
	base := filepath.Dir(path)

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	config.resolvePaths(base)
	return config, nil
}

func (c *Config) resolvePaths(base string) {
	c.Deck.HeaderFile = resolve(base, c.Deck.HeaderFile)
	c.Database.Path = resolve(base, c.Database.Path)
	c.Render.TemplateFile = resolve(base, c.Render.TemplateFile)
	c.Render.StyleFile = resolve(base, c.Render.StyleFile)
	for name, env := range c.Marketplace.Environments {
		env.EnvFile = resolve(base, env.EnvFile)
		c.Marketplace.Environments[name] = env
	}
}

func resolve(base, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

var journalModes = map[string]bool{
	"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true,
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Deck.Extension, ".") {
		return fmt.Errorf("deck extension must start with a dot: %q", c.Deck.Extension)
	}
	if !strings.HasPrefix(c.Deck.PageExtension, ".") {
		return fmt.Errorf("page extension must start with a dot: %q", c.Deck.PageExtension)
	}
	if strings.EqualFold(c.Deck.Extension, c.Deck.PageExtension) {
		return fmt.Errorf("page extension cannot equal deck extension %q", c.Deck.Extension)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if !journalModes[strings.ToUpper(c.Database.JournalMode)] {
		return fmt.Errorf("invalid journal mode %q", c.Database.JournalMode)
	}

	durations := []struct {
		name, value string
	}{
		{"database busy timeout", c.Database.BusyTimeout},
		{"pricing request interval", c.Pricing.RequestInterval},
		{"pricing timeout", c.Pricing.Timeout},
		{"marketplace timeout", c.Marketplace.Timeout},
		{"marketplace photo interval", c.Marketplace.PhotoInterval},
	}
	for _, d := range durations {
		if _, err := parseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
	}

	if c.Pricing.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", c.Pricing.MaxRetries)
	}

	offer := c.Marketplace.Offer
	if offer.Duration <= 0 || offer.ItemCount <= 0 {
		return fmt.Errorf("offer duration and item count must be positive")
	}
	if offer.ShipmentCost < 0 {
		return fmt.Errorf("shipment cost cannot be negative: %v", offer.ShipmentCost)
	}

	for name, env := range c.Marketplace.Environments {
		if env.Endpoint == "" {
			return fmt.Errorf("environment %q has no endpoint", name)
		}
	}

	return nil
}

// parseDuration treats an empty value as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// StorageConfig returns the database settings for storage.Open.
func (c *Config) StorageConfig() (*storage.Config, error) {
	cfg := storage.DefaultConfig(c.Database.Path)
	busy, err := parseDuration(c.Database.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid busy timeout: %w", err)
	}
	if busy > 0 {
		cfg.BusyTimeout = busy
	}
	if c.Database.JournalMode != "" {
		cfg.JournalMode = strings.ToUpper(c.Database.JournalMode)
	}
	cfg.AutoMigrate = c.Database.AutoMigrate && c.Database.Path != ":memory:"
	return cfg, nil
}

// ParserOptions returns the deck parser settings, reading the custom header
// file when one is configured.
func (c *Config) ParserOptions() (*deckfile.Options, error) {
	opts := deckfile.DefaultOptions()
	opts.RewriteFile = c.Deck.RewriteFile
	if c.Deck.HeaderFile != "" {
		data, err := os.ReadFile(c.Deck.HeaderFile)
		if err != nil {
			return nil, fmt.Errorf("read header file: %w", err)
		}
		opts.Header = string(data)
	}
	return opts, nil
}

// MtgNetOptions returns the price client settings.
func (c *Config) MtgNetOptions() (mtgnet.Options, error) {
	opts := mtgnet.DefaultOptions()
	if c.Pricing.SearchURL != "" {
		opts.SearchURL = c.Pricing.SearchURL
	}
	interval, err := parseDuration(c.Pricing.RequestInterval)
	if err != nil {
		return opts, fmt.Errorf("invalid request interval: %w", err)
	}
	timeout, err := parseDuration(c.Pricing.Timeout)
	if err != nil {
		return opts, fmt.Errorf("invalid pricing timeout: %w", err)
	}
	if interval > 0 {
		opts.RequestInterval = interval
	}
	if timeout > 0 {
		opts.Timeout = timeout
	}
	opts.MaxRetries = c.Pricing.MaxRetries
	return opts, nil
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Marketplace.Environments))
	for name := range c.Marketplace.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environment returns the named WebAPI deployment.
func (c *Config) Environment(name string) (EnvironmentConfig, error) {
	env, ok := c.Marketplace.Environments[name]
	if !ok {
		return EnvironmentConfig{}, fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
	}
	return env, nil
}

// LoadCredentials reads the named environment's .env file. Variables already
// set in the process environment take precedence over the file. An encrypted
// password is unlocked with the passphrase from PassphraseVar.
func (c *Config) LoadCredentials(name string) (allegro.Credentials, error) {
	env, err := c.Environment(name)
	if err != nil {
		return allegro.Credentials{}, err
	}

	values := map[string]string{}
	if env.EnvFile != "" {
		values, err = godotenv.Read(env.EnvFile)
		if err != nil && !os.IsNotExist(err) {
			return allegro.Credentials{}, fmt.Errorf("read env file %s: %w", env.EnvFile, err)
		}
		if values == nil {
			values = map[string]string{}
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return values[key]
	}

	creds := allegro.Credentials{
		Login:     lookup(EnvLogin),
		Password:  lookup(EnvPassword),
		WebAPIKey: lookup(EnvWebAPIKey),
	}

	if secrets.IsEncrypted(creds.Password) {
		password, err := secrets.Decrypt(creds.Password, os.Getenv(PassphraseVar))
		if err != nil {
			return allegro.Credentials{}, fmt.Errorf("unlock %s: %w", EnvPassword, err)
		}
		creds.Password = password
	}

	if creds.Login == "" || creds.Password == "" || creds.WebAPIKey == "" {
		return allegro.Credentials{}, fmt.Errorf("%w for environment %q (expected %s, %s and %s)",
			allegro.ErrMissingCredentials, name, EnvLogin, EnvPassword, EnvWebAPIKey)
	}
	return creds, nil
}

// AllegroConfig assembles the WebAPI client settings for an environment.
func (c *Config) AllegroConfig(name string, creds allegro.Credentials) (allegro.Config, error) {
	env, err := c.Environment(name)
	if err != nil {
		return allegro.Config{}, err
	}
	timeout, err := parseDuration(c.Marketplace.Timeout)
	if err != nil {
		return allegro.Config{}, fmt.Errorf("invalid marketplace timeout: %w", err)
	}
	interval, err := parseDuration(c.Marketplace.PhotoInterval)
	if err != nil {
		return allegro.Config{}, fmt.Errorf("invalid photo interval: %w", err)
	}

	return allegro.Config{
		Environment: allegro.Environment{
			Name:      name,
			Endpoint:  env.Endpoint,
			Namespace: env.Namespace,
		},
		Credentials:   creds,
		Offer:         c.Marketplace.Offer,
		FieldIDs:      c.Marketplace.FieldIDs,
		Timeout:       timeout,
		PhotoInterval: interval,
	}, nil
}
