package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ramonehamilton/deck-publisher/internal/allegro"
	"github.com/ramonehamilton/deck-publisher/internal/secrets"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Deck.Extension != ".mwDeck" {
		t.Errorf("Deck.Extension = %q, want .mwDeck", cfg.Deck.Extension)
	}
	if cfg.Deck.PageExtension != ".html" {
		t.Errorf("Deck.PageExtension = %q, want .html", cfg.Deck.PageExtension)
	}
	if !cfg.Deck.RewriteFile {
		t.Error("Deck.RewriteFile should default to true")
	}
	if cfg.Deck.TitleTag != "[redienss]" {
		t.Errorf("Deck.TitleTag = %q", cfg.Deck.TitleTag)
	}
	if got := cfg.EnvironmentNames(); !cmp.Equal(got, []string{"prod", "test"}) {
		t.Errorf("EnvironmentNames() = %v", got)
	}
	if cfg.Marketplace.FieldIDs != allegro.DefaultFieldIDs() {
		t.Error("FieldIDs should default to the WebAPI numbering")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "valid", modify: func(c *Config) {}, wantErr: false},
		{name: "extension without dot", modify: func(c *Config) { c.Deck.Extension = "mwDeck" }, wantErr: true},
		{name: "page extension equals deck", modify: func(c *Config) { c.Deck.PageExtension = ".MWDECK" }, wantErr: true},
		{name: "empty database path", modify: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "bad journal mode", modify: func(c *Config) { c.Database.JournalMode = "FAST" }, wantErr: true},
		{name: "lowercase journal mode", modify: func(c *Config) { c.Database.JournalMode = "wal" }, wantErr: false},
		{name: "bad interval", modify: func(c *Config) { c.Pricing.RequestInterval = "soon" }, wantErr: true},
		{name: "empty interval", modify: func(c *Config) { c.Pricing.RequestInterval = "" }, wantErr: false},
		{name: "negative retries", modify: func(c *Config) { c.Pricing.MaxRetries = -1 }, wantErr: true},
		{name: "zero duration", modify: func(c *Config) { c.Marketplace.Offer.Duration = 0 }, wantErr: true},
		{name: "negative shipment", modify: func(c *Config) { c.Marketplace.Offer.ShipmentCost = -1 }, wantErr: true},
		{
			name: "environment without endpoint",
			modify: func(c *Config) {
				c.Marketplace.Environments["local"] = EnvironmentConfig{Namespace: "urn:x"}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Database.Path != filepath.Join(dir, "cards.db") {
		t.Errorf("Database.Path = %q, want it resolved against the config dir", cfg.Database.Path)
	}
	if cfg.Marketplace.Environments[EnvTest].EnvFile != filepath.Join(dir, "test.env") {
		t.Errorf("test EnvFile = %q", cfg.Marketplace.Environments[EnvTest].EnvFile)
	}
}

func TestLoadFromPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[deck]
title_tag = "[shop]"
rewrite_file = false

[database]
path = "/var/lib/cards.db"

[pricing]
max_retries = 5

[marketplace.offer]
city = "Kraków"
post_code = "30-001"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Deck.TitleTag != "[shop]" || cfg.Deck.RewriteFile {
		t.Errorf("Deck = %+v", cfg.Deck)
	}
	if cfg.Deck.Extension != ".mwDeck" {
		t.Errorf("unset keys should keep defaults, Extension = %q", cfg.Deck.Extension)
	}
	if cfg.Database.Path != "/var/lib/cards.db" {
		t.Errorf("absolute Database.Path changed to %q", cfg.Database.Path)
	}
	if cfg.Pricing.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Pricing.MaxRetries)
	}
	if cfg.Marketplace.Offer.City != "Kraków" || cfg.Marketplace.Offer.Category != 6066 {
		t.Errorf("Offer = %+v", cfg.Marketplace.Offer)
	}
}

func TestLoadFromInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[deck\nbroken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should fail on invalid TOML")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "db", "cards.db")
	cfg.Marketplace.Offer.City = "Gdańsk"
	cfg.Marketplace.FieldIDs.ShipmentCost = 41
	for name, env := range cfg.Marketplace.Environments {
		env.EnvFile = filepath.Join(dir, name+".env")
		cfg.Marketplace.Environments[name] = env
	}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestStorageConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Database.Path = "/tmp/cards.db"
	cfg.Database.BusyTimeout = "10s"
	cfg.Database.JournalMode = "delete"

	sc, err := cfg.StorageConfig()
	if err != nil {
		t.Fatalf("StorageConfig() error = %v", err)
	}
	if sc.Path != "/tmp/cards.db" || sc.BusyTimeout != 10*time.Second || sc.JournalMode != "DELETE" {
		t.Errorf("StorageConfig() = %+v", sc)
	}
	if !sc.AutoMigrate {
		t.Error("AutoMigrate should follow the config")
	}

	cfg.Database.Path = ":memory:"
	sc, err = cfg.StorageConfig()
	if err != nil {
		t.Fatalf("StorageConfig() error = %v", err)
	}
	if sc.AutoMigrate {
		t.Error("AutoMigrate should be off for in-memory databases")
	}
}

func TestParserOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Deck.RewriteFile = false

	opts, err := cfg.ParserOptions()
	if err != nil {
		t.Fatalf("ParserOptions() error = %v", err)
	}
	if opts.RewriteFile {
		t.Error("RewriteFile should follow the config")
	}
	if opts.Header == "" {
		t.Error("Header should default to the built-in block")
	}

	headerPath := filepath.Join(t.TempDir(), "header.txt")
	if err := os.WriteFile(headerPath, []byte("// @name\n"), 0o644); err != nil {
		t.Fatalf("write header: %v", err)
	}
	cfg.Deck.HeaderFile = headerPath
	opts, err = cfg.ParserOptions()
	if err != nil {
		t.Fatalf("ParserOptions() error = %v", err)
	}
	if opts.Header != "// @name\n" {
		t.Errorf("Header = %q", opts.Header)
	}

	cfg.Deck.HeaderFile = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := cfg.ParserOptions(); err == nil {
		t.Error("ParserOptions() should fail for a missing header file")
	}
}

func TestMtgNetOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pricing.SearchURL = "http://localhost/search"
	cfg.Pricing.RequestInterval = "1s"
	cfg.Pricing.Timeout = ""
	cfg.Pricing.MaxRetries = 0

	opts, err := cfg.MtgNetOptions()
	if err != nil {
		t.Fatalf("MtgNetOptions() error = %v", err)
	}
	if opts.SearchURL != "http://localhost/search" || opts.RequestInterval != time.Second || opts.MaxRetries != 0 {
		t.Errorf("MtgNetOptions() = %+v", opts)
	}
	if opts.Timeout <= 0 {
		t.Error("empty timeout should keep the client default")
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func configWithEnvFile(path string) *Config {
	cfg := DefaultConfig()
	env := cfg.Marketplace.Environments[EnvTest]
	env.EnvFile = path
	cfg.Marketplace.Environments[EnvTest] = env
	return cfg
}

func TestLoadCredentials(t *testing.T) {
	path := writeEnvFile(t, "WEBAPI_LOGIN=seller\nWEBAPI_PASSWORD=\"s3cret\"\nWEBAPI_KEY=abc123\n")
	cfg := configWithEnvFile(path)

	creds, err := cfg.LoadCredentials(EnvTest)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	want := allegro.Credentials{Login: "seller", Password: "s3cret", WebAPIKey: "abc123"}
	if creds != want {
		t.Errorf("LoadCredentials() = %+v, want %+v", creds, want)
	}
}

func TestLoadCredentialsProcessEnvWins(t *testing.T) {
	path := writeEnvFile(t, "WEBAPI_LOGIN=seller\nWEBAPI_PASSWORD=s3cret\nWEBAPI_KEY=abc123\n")
	cfg := configWithEnvFile(path)
	t.Setenv(EnvLogin, "override")

	creds, err := cfg.LoadCredentials(EnvTest)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.Login != "override" {
		t.Errorf("Login = %q, want override", creds.Login)
	}
}

func TestLoadCredentialsEncryptedPassword(t *testing.T) {
	token, err := secrets.Encrypt("s3cret", "unlock-me")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	path := writeEnvFile(t, "WEBAPI_LOGIN=seller\nWEBAPI_PASSWORD="+token+"\nWEBAPI_KEY=abc123\n")
	cfg := configWithEnvFile(path)

	t.Setenv(PassphraseVar, "unlock-me")
	creds, err := cfg.LoadCredentials(EnvTest)
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.Password != "s3cret" {
		t.Errorf("Password = %q, want decrypted value", creds.Password)
	}

	t.Setenv(PassphraseVar, "wrong")
	if _, err := cfg.LoadCredentials(EnvTest); err == nil {
		t.Error("LoadCredentials() should fail with a wrong passphrase")
	}
}

func TestLoadCredentialsErrors(t *testing.T) {
	cfg := configWithEnvFile(writeEnvFile(t, "WEBAPI_LOGIN=seller\n"))

	_, err := cfg.LoadCredentials(EnvTest)
	if !errors.Is(err, allegro.ErrMissingCredentials) {
		t.Errorf("LoadCredentials() error = %v, want ErrMissingCredentials", err)
	}

	_, err = cfg.LoadCredentials("staging")
	if !errors.Is(err, ErrUnknownEnvironment) {
		t.Errorf("LoadCredentials() error = %v, want ErrUnknownEnvironment", err)
	}

	missing := configWithEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	_, err = missing.LoadCredentials(EnvTest)
	if !errors.Is(err, allegro.ErrMissingCredentials) {
		t.Errorf("missing env file should report missing credentials, got %v", err)
	}
}

func TestAllegroConfig(t *testing.T) {
	cfg := DefaultConfig()
	creds := allegro.Credentials{Login: "a", Password: "b", WebAPIKey: "c"}

	ac, err := cfg.AllegroConfig(EnvProd, creds)
	if err != nil {
		t.Fatalf("AllegroConfig() error = %v", err)
	}
	if ac.Environment.Name != EnvProd || ac.Environment.Endpoint != "https://webapi.allegro.pl/service.php" {
		t.Errorf("Environment = %+v", ac.Environment)
	}
	if ac.Credentials != creds || ac.Timeout != 60*time.Second || ac.PhotoInterval != 200*time.Millisecond {
		t.Errorf("AllegroConfig() = %+v", ac)
	}

	if _, err := cfg.AllegroConfig("nowhere", creds); !errors.Is(err, ErrUnknownEnvironment) {
		t.Errorf("AllegroConfig() error = %v, want ErrUnknownEnvironment", err)
	}
}
