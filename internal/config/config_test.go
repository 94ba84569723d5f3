package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
)

var configEnvKeys = []string{
	"PORT", "SERVER_PORT", "API_BASE_URL", "PUBLIC_BASE_URL", "MAX_FILE_SIZE", "MAX_TEXT_SIZE",
	"LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOW_ORIGINS", "SUPABASE_URL", "SUPABASE_ANON_KEY",
	"SLOT_COUNT", "CONVERT_TIMEOUT", "COMBINE_TIMEOUT", "FETCH_TIMEOUT", "MAX_CONCURRENT_CONVERTS",
	"SESSION_IDLE_TTL", "MAX_SESSIONS",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestNewConfig_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := NewConfig()

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetMaxFileSize() != defaultMaxFileSize {
		t.Fatalf("expected default max file size %d, got %d", defaultMaxFileSize, cfg.GetMaxFileSize())
	}
	if cfg.GetMaxTextSize() != defaultMaxTextSize {
		t.Fatalf("expected default max text size %d, got %d", defaultMaxTextSize, cfg.GetMaxTextSize())
	}
	if cfg.GetLogLevel() != "info" || cfg.GetLogFormat() != "text" {
		t.Fatalf("unexpected log defaults %s/%s", cfg.GetLogLevel(), cfg.GetLogFormat())
	}
	if cfg.GetAPIBaseURL() != "" {
		t.Fatalf("expected empty api base url, got %s", cfg.GetAPIBaseURL())
	}
	if cfg.GetPublicBaseURL() != "http://localhost:8080" {
		t.Fatalf("unexpected public base url %s", cfg.GetPublicBaseURL())
	}
	if got := cfg.GetCORSAllowOrigins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected wildcard CORS default, got %v", got)
	}
	if cfg.GetSlotCount() != 3 || cfg.GetMaxConcurrentConverts() != 4 {
		t.Fatalf("unexpected slot defaults %d/%d", cfg.GetSlotCount(), cfg.GetMaxConcurrentConverts())
	}
	if cfg.GetConvertTimeout() != 60*time.Second || cfg.GetCombineTimeout() != 60*time.Second || cfg.GetFetchTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout defaults")
	}
	if cfg.GetSessionIdleTTL() != 30*time.Minute || cfg.GetMaxSessions() != 1000 {
		t.Fatalf("unexpected session defaults %s/%d", cfg.GetSessionIdleTTL(), cfg.GetMaxSessions())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("MAX_FILE_SIZE", "12345")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CONVERT_TIMEOUT", "90s")
	t.Setenv("COMBINE_TIMEOUT", "45")
	t.Setenv("FETCH_TIMEOUT", "bogus")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetMaxFileSize() != 12345 {
		t.Fatalf("expected max file size 12345, got %d", cfg.GetMaxFileSize())
	}
	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.GetLogLevel())
	}
	origins := cfg.GetCORSAllowOrigins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", origins)
	}
	if cfg.GetConvertTimeout() != 90*time.Second {
		t.Fatalf("expected 90s convert timeout, got %s", cfg.GetConvertTimeout())
	}
	if cfg.GetCombineTimeout() != 45*time.Second {
		t.Fatalf("expected bare number to mean seconds, got %s", cfg.GetCombineTimeout())
	}
	if cfg.GetFetchTimeout() != 30*time.Second {
		t.Fatalf("expected invalid duration to keep default, got %s", cfg.GetFetchTimeout())
	}
}

func TestLoadConfig_YAMLFileThenEnv(t *testing.T) {
	clearConfigEnv(t)
	path := writeFile(t, "textpress.yaml", `
server_port: "9000"
public_base_url: https://textpress.example
slot_count: 5
convert_timeout: 2m
cors_allow_origins:
  - https://app.example
`)
	t.Setenv("SLOT_COUNT", "4")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ServerPort != "9000" || cfg.PublicBaseURL != "https://textpress.example" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.SlotCount != 4 {
		t.Fatalf("expected env to win over file, got %d", cfg.SlotCount)
	}
	if cfg.ConvertTimeout != 2*time.Minute {
		t.Fatalf("expected 2m convert timeout, got %s", cfg.ConvertTimeout)
	}
	if len(cfg.CORSAllowOrigins) != 1 || cfg.CORSAllowOrigins[0] != "https://app.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigins)
	}
	if cfg.MaxFileSize != defaultMaxFileSize {
		t.Fatalf("unset keys must keep defaults, got %d", cfg.MaxFileSize)
	}
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeFile(t, "textpress.toml", `
log_format = "json"
max_concurrent_converts = 2
combine_timeout = "15s"
session_idle_ttl = "5m"
max_sessions = 50
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogFormat != "json" || cfg.MaxConcurrentConverts != 2 || cfg.CombineTimeout != 15*time.Second {
		t.Fatalf("toml values not applied: %+v", cfg)
	}
	if cfg.SessionIdleTTL != 5*time.Minute || cfg.MaxSessions != 50 {
		t.Fatalf("session limits not applied: %s/%d", cfg.SessionIdleTTL, cfg.MaxSessions)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	clearConfigEnv(t)

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadConfig(writeFile(t, "textpress.ini", "x=1")); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := LoadConfig(writeFile(t, "bad.yaml", "convert_timeout: soon")); err == nil {
		t.Fatalf("expected error for bad duration")
	}

	t.Setenv("SLOT_COUNT", "1")
	_, err := LoadConfig("")
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Field != "slot_count" {
		t.Fatalf("expected slot_count validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"Defaults are valid", func(*AppConfig) {}, ""},
		{"Bad port", func(c *AppConfig) { c.ServerPort = "http" }, "server_port"},
		{"Relative public url", func(c *AppConfig) { c.PublicBaseURL = "/d" }, "public_base_url"},
		{"Relative api url", func(c *AppConfig) { c.APIBaseURL = "api" }, "api_base_url"},
		{"Unknown log format", func(c *AppConfig) { c.LogFormat = "xml" }, "log_format"},
		{"Too many slots", func(c *AppConfig) { c.SlotCount = 11 }, "slot_count"},
		{"Zero timeout", func(c *AppConfig) { c.FetchTimeout = 0 }, "timeouts"},
		{"Eviction disabled", func(c *AppConfig) { c.SessionIdleTTL = 0 }, ""},
		{"Negative idle ttl", func(c *AppConfig) { c.SessionIdleTTL = -time.Second }, "session_idle_ttl"},
		{"Negative session cap", func(c *AppConfig) { c.MaxSessions = -1 }, "max_sessions"},
		{"Half supabase config", func(c *AppConfig) { c.SupabaseURL = "http://localhost:54321" }, "supabase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) || validationErr.Field != tt.field {
				t.Fatalf("Validate() error = %v, want field %s", err, tt.field)
			}
		})
	}
}
