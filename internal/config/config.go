// Package config provides configuration management for the concert sync worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingRootURL           = errors.New("listing.root_url is required")
	ErrMissingExpandText        = errors.New("listing.expand_text is required")
	ErrMissingCardSelector      = errors.New("listing.card_selector is required")
	ErrInvalidMaxExpansions     = errors.New("listing.max_expansions must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("fetch.retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("fetch.retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("fetch.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("fetch.retry.timeout_sec must be at least 1")
	ErrInvalidMaxChars          = errors.New("normalizer.max_chars must be at least 1")
	ErrInvalidFragmentBounds    = errors.New("normalizer.min_fragment_len must be below normalizer.max_fragment_len")
	ErrMissingModel             = errors.New("extraction.model is required")
	ErrInvalidMaxRetries        = errors.New("extraction.max_retries must be non-negative")
	ErrMissingLedgerPath        = errors.New("ledger.path is required")
	ErrInvalidSheetsBackend     = errors.New("sheets.backend must be one of: google, sqlite, none")
	ErrMissingSpreadsheetID     = errors.New("sheets.spreadsheet_id is required for the google backend")
	ErrMissingSQLitePath        = errors.New("sheets.sqlite_path is required for the sqlite backend")
	ErrMissingSheetName         = errors.New("sheets.sheet_name is required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be text or json")
)

// Sheets backends.
const (
	BackendGoogle = "google"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Environment variables that override secrets in the file.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvSheetsToken    = "GIGSYNC_SHEETS_TOKEN"
	EnvSpreadsheetID  = "GIGSYNC_SPREADSHEET_ID"
	EnvSMTPPassword   = "GIGSYNC_SMTP_PASSWORD"
	DefaultConfigPath = "configs/gigsync.yaml"
)

// Config represents the complete worker configuration.
type Config struct {
	Listing    ListingConfig    `yaml:"listing"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Sheets     SheetsConfig     `yaml:"sheets"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// ListingConfig describes the paginated listing the candidates are discovered on.
type ListingConfig struct {
	RootURL          string `yaml:"root_url"`
	ExpandText       string `yaml:"expand_text"`
	CardSelector     string `yaml:"card_selector"`
	LinkSelector     string `yaml:"link_selector"`
	TitleSelector    string `yaml:"title_selector"`
	MaxExpansions    int    `yaml:"max_expansions"`
	SettleTimeoutMs  int    `yaml:"settle_timeout_ms"`
	ContentSettleMs  int    `yaml:"content_settle_ms"`
	CandidateDelayMs int    `yaml:"candidate_delay_ms"`
}

// SettleTimeout is the bounded wait for network settling after an expansion.
func (l *ListingConfig) SettleTimeout() time.Duration {
	return time.Duration(l.SettleTimeoutMs) * time.Millisecond
}

// ContentSettleDelay is the fixed wait after an expansion.
func (l *ListingConfig) ContentSettleDelay() time.Duration {
	return time.Duration(l.ContentSettleMs) * time.Millisecond
}

// CandidateDelay is the pause between two detail pages.
func (l *ListingConfig) CandidateDelay() time.Duration {
	return time.Duration(l.CandidateDelayMs) * time.Millisecond
}

// FetchConfig controls page fetching.
type FetchConfig struct {
	UserAgent    string      `yaml:"user_agent"`
	Retry        RetryPolicy `yaml:"retry"`
	BufferSizeKb int         `yaml:"buffer_size_kb"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// NormalizerConfig bounds the text excerpt handed to the extraction step.
type NormalizerConfig struct {
	MaxChars       int      `yaml:"max_chars"`
	MaxFragments   int      `yaml:"max_fragments"`
	MinFragmentLen int      `yaml:"min_fragment_len"`
	MaxFragmentLen int      `yaml:"max_fragment_len"`
	Boilerplate    []string `yaml:"boilerplate"`
}

// ExtractionConfig configures the language-model extraction step.
type ExtractionConfig struct {
	CityAliases     map[string]string `yaml:"city_aliases"`
	Endpoint        string            `yaml:"endpoint"`
	Model           string            `yaml:"model"`
	APIKey          string            `yaml:"api_key"`
	CanonicalCities []string          `yaml:"canonical_cities"`
	MaxRetries      int               `yaml:"max_retries"`
	TimeoutSec      int               `yaml:"timeout_sec"`
	Temperature     float64           `yaml:"temperature"`
}

// Timeout returns the per-request timeout.
func (e *ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// LedgerConfig locates the local ledger and the error side-channel.
type LedgerConfig struct {
	Path     string `yaml:"path"`
	ErrorLog string `yaml:"error_log"`
	Report   string `yaml:"report"`
}

// SheetsConfig configures the remote tabular store.
type SheetsConfig struct {
	Backend       string `yaml:"backend"`
	Endpoint      string `yaml:"endpoint"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`
	AccessToken   string `yaml:"access_token"`
	SQLitePath    string `yaml:"sqlite_path"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// Timeout returns the per-request timeout of the remote store.
func (s *SheetsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig configures the optional failure summary e-mail.
type NotifyConfig struct {
	SMTPServer string   `yaml:"smtp_server"`
	From       string   `yaml:"from"`
	Password   string   `yaml:"password"`
	To         []string `yaml:"to"`
	SMTPPort   int      `yaml:"smtp_port"`
}

// Enabled reports whether a failure summary should be sent.
func (n *NotifyConfig) Enabled() bool {
	return n.SMTPServer != "" && n.From != "" && len(n.To) > 0
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Listing: ListingConfig{
			ExpandText:       "meer laden",
			CardSelector:     "article",
			LinkSelector:     "a[href]",
			TitleSelector:    "h2, h3, .title",
			MaxExpansions:    10,
			SettleTimeoutMs:  5000,
			ContentSettleMs:  1500,
			CandidateDelayMs: 2000,
		},
		Fetch: FetchConfig{
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				MaxDelayMs:        30000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        30,
			},
			BufferSizeKb: 4096,
		},
		Normalizer: NormalizerConfig{
			MaxChars:       6000,
			MaxFragments:   50,
			MinFragmentLen: 10,
			MaxFragmentLen: 500,
			Boilerplate:    []string{"cookie", "menu", "navigation", "footer", "header"},
		},
		Extraction: ExtractionConfig{
			Endpoint:   "https://api.openai.com/v1",
			Model:      "gpt-4o-mini",
			MaxRetries: 3,
			TimeoutSec: 60,
			CanonicalCities: []string{
				"Brussel", "Antwerpen", "Gent", "Brugge", "Leuven", "Hasselt", "Kortrijk", "Mechelen", "Oostende", "Luik",
			},
			CityAliases: map[string]string{
				"brussels":  "Brussel",
				"bruxelles": "Brussel",
				"antwerp":   "Antwerpen",
				"anvers":    "Antwerpen",
				"ghent":     "Gent",
				"gand":      "Gent",
				"bruges":    "Brugge",
				"louvain":   "Leuven",
				"courtrai":  "Kortrijk",
				"malines":   "Mechelen",
				"ostend":    "Oostende",
				"liège":     "Luik",
				"liege":     "Luik",
			},
		},
		Ledger: LedgerConfig{
			Path:     "data/concerts.json",
			ErrorLog: "data/errors.log",
			Report:   "data/concerts.md",
		},
		Sheets: SheetsConfig{
			Backend:    BackendNone,
			Endpoint:   "https://sheets.googleapis.com",
			SheetName:  "Concerts",
			SQLitePath: "data/sheets.db",
			TimeoutSec: 30,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Notify:  NotifyConfig{SMTPPort: 587},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default(). A sibling
// "<name>.local.<ext>" file, when present, overrides values from the main file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	localData, err := os.ReadFile(LocalPath(path))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read local config file: %w", err)
	}

	if len(localData) > 0 {
		var override Config
		if err := yaml.Unmarshal(localData, &override); err != nil {
			return nil, fmt.Errorf("failed to parse local YAML: %w", err)
		}

		if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge local config: %w", err)
		}
	}

	cfg.ApplyEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LocalPath returns the override file path for path: "a/b.yaml" -> "a/b.local.yaml".
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// ApplyEnv copies secrets from the environment over the file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.Extraction.APIKey = v
	}

	if v := os.Getenv(EnvSheetsToken); v != "" {
		c.Sheets.AccessToken = v
	}

	if v := os.Getenv(EnvSpreadsheetID); v != "" {
		c.Sheets.SpreadsheetID = v
	}

	if v := os.Getenv(EnvSMTPPassword); v != "" {
		c.Notify.Password = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Listing.RootURL == "" {
		return ErrMissingRootURL
	}

	if strings.TrimSpace(c.Listing.ExpandText) == "" {
		return ErrMissingExpandText
	}

	if c.Listing.CardSelector == "" {
		return ErrMissingCardSelector
	}

	if c.Listing.MaxExpansions < 0 {
		return ErrInvalidMaxExpansions
	}

	// Validate retry policy
	if c.Fetch.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Fetch.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Fetch.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Fetch.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Normalizer.MaxChars < 1 {
		return ErrInvalidMaxChars
	}

	if c.Normalizer.MinFragmentLen >= c.Normalizer.MaxFragmentLen {
		return ErrInvalidFragmentBounds
	}

	if c.Extraction.Model == "" {
		return ErrMissingModel
	}

	if c.Extraction.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.Ledger.Path == "" {
		return ErrMissingLedgerPath
	}

	switch c.Sheets.Backend {
	case BackendGoogle:
		if c.Sheets.SpreadsheetID == "" {
			return ErrMissingSpreadsheetID
		}
	case BackendSQLite:
		if c.Sheets.SQLitePath == "" {
			return ErrMissingSQLitePath
		}
	case BackendNone:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSheetsBackend, c.Sheets.Backend)
	}

	if c.Sheets.Backend != BackendNone && c.Sheets.SheetName == "" {
		return ErrMissingSheetName
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String summarises the settings logged at startup. Secrets are left out.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Root: %s, MaxExpansions: %d, Model: %s, Ledger: %s, Sheets: %s}",
		c.Listing.RootURL,
		c.Listing.MaxExpansions,
		c.Extraction.Model,
		c.Ledger.Path,
		c.Sheets.Backend,
	)
}
