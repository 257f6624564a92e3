package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig stores content as a config file in a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "gigsync.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return configPath
}

// validConfigYAML sets every required key.
const validConfigYAML = `
listing:
  root_url: "https://example.com/concerten"
  expand_text: "Meer laden"
  card_selector: ".concert-card"
  max_expansions: 4
fetch:
  retry:
    max_attempts: 2
    initial_delay_ms: 100
    max_delay_ms: 5000
    backoff_multiplier: 2.0
    timeout_sec: 15
extraction:
  model: "gpt-4o-mini"
  api_key: "file-key"
sheets:
  backend: "sqlite"
  sqlite_path: "./out/sheets.db"
  sheet_name: "Concerten"
logging:
  level: "debug"
`

func validConfig() *Config {
	cfg := Default()
	cfg.Listing.RootURL = "https://example.com/concerten"

	return cfg
}

func TestLoadConfig_Valid(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")

	configPath := writeConfig(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Listing.MaxExpansions != 4 {
		t.Errorf("Expected MaxExpansions 4, got %d", cfg.Listing.MaxExpansions)
	}

	if cfg.Sheets.SheetName != "Concerten" {
		t.Errorf("Expected sheet name 'Concerten', got '%s'", cfg.Sheets.SheetName)
	}

	// Defaults survive for fields the file leaves out.
	if cfg.Normalizer.MaxFragments != 50 {
		t.Errorf("Expected default MaxFragments 50, got %d", cfg.Normalizer.MaxFragments)
	}

	if cfg.Extraction.APIKey != "file-key" {
		t.Errorf("Expected api key from file, got '%s'", cfg.Extraction.APIKey)
	}
}

func TestLoadConfig_LocalOverride(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "")

	configPath := writeConfig(t, validConfigYAML)

	local := `
listing:
  max_expansions: 9
logging:
  level: "warn"
`
	if err := os.WriteFile(LocalPath(configPath), []byte(local), 0644); err != nil {
		t.Fatalf("Failed to write local override: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Listing.MaxExpansions != 9 {
		t.Errorf("Expected overridden MaxExpansions 9, got %d", cfg.Listing.MaxExpansions)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected overridden level 'warn', got '%s'", cfg.Logging.Level)
	}

	if cfg.Listing.RootURL != "https://example.com/concerten" {
		t.Errorf("Expected root url from main file, got '%s'", cfg.Listing.RootURL)
	}
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "env-key")
	t.Setenv(EnvSheetsToken, "env-token")

	cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Extraction.APIKey != "env-key" {
		t.Errorf("Expected api key from env, got '%s'", cfg.Extraction.APIKey)
	}

	if cfg.Sheets.AccessToken != "env-token" {
		t.Errorf("Expected sheets token from env, got '%s'", cfg.Sheets.AccessToken)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/gigsync.yaml")
	if err == nil {
		t.Fatal("LoadConfig() on a missing file returned nil error")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("LoadConfig() on broken YAML returned nil error")
	}
}

func TestLocalPath(t *testing.T) {
	if got := LocalPath("configs/gigsync.yaml"); got != "configs/gigsync.local.yaml" {
		t.Errorf("LocalPath = %s", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "Valid", mutate: func(_ *Config) {}},
		{name: "Missing root", mutate: func(c *Config) { c.Listing.RootURL = "" }, wantErr: ErrMissingRootURL},
		{name: "Blank expand text", mutate: func(c *Config) { c.Listing.ExpandText = "  " }, wantErr: ErrMissingExpandText},
		{name: "Negative expansions", mutate: func(c *Config) { c.Listing.MaxExpansions = -1 }, wantErr: ErrInvalidMaxExpansions},
		{name: "Zero attempts", mutate: func(c *Config) { c.Fetch.Retry.MaxAttempts = 0 }, wantErr: ErrInvalidMaxAttempts},
		{name: "Backoff below one", mutate: func(c *Config) { c.Fetch.Retry.BackoffMultiplier = 0.5 }, wantErr: ErrInvalidBackoffMultiplier},
		{name: "Fragment bounds", mutate: func(c *Config) { c.Normalizer.MinFragmentLen = 600 }, wantErr: ErrInvalidFragmentBounds},
		{name: "Negative retries", mutate: func(c *Config) { c.Extraction.MaxRetries = -1 }, wantErr: ErrInvalidMaxRetries},
		{name: "Google without id", mutate: func(c *Config) { c.Sheets.Backend = BackendGoogle }, wantErr: ErrMissingSpreadsheetID},
		{name: "Unknown backend", mutate: func(c *Config) { c.Sheets.Backend = "excel" }, wantErr: ErrInvalidSheetsBackend},
		{name: "Bad level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: ErrInvalidLogLevel},
		{name: "Bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate returned unexpected error: %v", err)
				}

				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_GetRetryDelay(t *testing.T) {
	rp := RetryPolicy{InitialDelayMs: 100, MaxDelayMs: 1000, BackoffMultiplier: 2.0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 0},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 6, want: 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := rp.GetRetryDelay(tt.attempt); got != tt.want {
			t.Errorf("GetRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestConfig_StringOmitsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Extraction.APIKey = "sk-secret"

	got := cfg.String()
	if !strings.Contains(got, cfg.Listing.RootURL) || strings.Contains(got, "sk-secret") {
		t.Errorf("String() = %q", got)
	}
}

func TestNotifyConfig_Enabled(t *testing.T) {
	n := NotifyConfig{SMTPServer: "smtp.example.com", From: "bot@example.com"}
	if n.Enabled() {
		t.Error("Expected notify disabled without recipients")
	}

	n.To = []string{"ops@example.com"}
	if !n.Enabled() {
		t.Error("Expected notify enabled")
	}
}
