package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxFileSize = 15 * 1024 * 1024
	defaultMaxTextSize = 2 * 1024 * 1024
	maxSlotCount       = 10
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort            string        `yaml:"server_port" toml:"server_port"`
	APIBaseURL            string        `yaml:"api_base_url" toml:"api_base_url"`
	PublicBaseURL         string        `yaml:"public_base_url" toml:"public_base_url"`
	MaxFileSize           int64         `yaml:"max_file_size" toml:"max_file_size"`
	MaxTextSize           int64         `yaml:"max_text_size" toml:"max_text_size"`
	LogLevel              string        `yaml:"log_level" toml:"log_level"`
	LogFormat             string        `yaml:"log_format" toml:"log_format"`
	CORSAllowOrigins      []string      `yaml:"cors_allow_origins" toml:"cors_allow_origins"`
	SupabaseURL           string        `yaml:"supabase_url" toml:"supabase_url"`
	SupabaseKey           string        `yaml:"supabase_anon_key" toml:"supabase_anon_key"`
	SlotCount             int           `yaml:"slot_count" toml:"slot_count"`
	ConvertTimeout        time.Duration `yaml:"-" toml:"-"`
	CombineTimeout        time.Duration `yaml:"-" toml:"-"`
	FetchTimeout          time.Duration `yaml:"-" toml:"-"`
	MaxConcurrentConverts int           `yaml:"max_concurrent_converts" toml:"max_concurrent_converts"`
	SessionIdleTTL        time.Duration `yaml:"-" toml:"-"`
	MaxSessions           int           `yaml:"max_sessions" toml:"max_sessions"`
}

// durations are read from files as strings such as "60s".
type fileDurations struct {
	ConvertTimeout string `yaml:"convert_timeout" toml:"convert_timeout"`
	CombineTimeout string `yaml:"combine_timeout" toml:"combine_timeout"`
	FetchTimeout   string `yaml:"fetch_timeout" toml:"fetch_timeout"`
	SessionIdleTTL string `yaml:"session_idle_ttl" toml:"session_idle_ttl"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		ServerPort:            "8080",
		PublicBaseURL:         "http://localhost:8080",
		MaxFileSize:           defaultMaxFileSize,
		MaxTextSize:           defaultMaxTextSize,
		LogLevel:              "info",
		LogFormat:             "text",
		CORSAllowOrigins:      []string{"*"},
		SlotCount:             3,
		ConvertTimeout:        60 * time.Second,
		CombineTimeout:        60 * time.Second,
		FetchTimeout:          30 * time.Second,
		MaxConcurrentConverts: 4,
		SessionIdleTTL:        30 * time.Minute,
		MaxSessions:           1000,
	}
}

// NewConfig creates a configuration from defaults and environment variables only.
func NewConfig() domain.Config {
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// Load builds the configuration: defaults, then the optional file named by
// CONFIG_FILE (.yaml, .yml or .toml), then environment variables.
func Load() (*AppConfig, error) {
	return LoadConfig(os.Getenv("CONFIG_FILE"))
}

// LoadConfig is Load with an explicit file path; an empty path skips the file.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}

	var durations fileDurations
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if err := yaml.Unmarshal(data, &durations); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if _, err := toml.Decode(string(data), &durations); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}

	for _, d := range []struct {
		raw    string
		target *time.Duration
		name   string
	}{
		{durations.ConvertTimeout, &c.ConvertTimeout, "convert_timeout"},
		{durations.CombineTimeout, &c.CombineTimeout, "combine_timeout"},
		{durations.FetchTimeout, &c.FetchTimeout, "fetch_timeout"},
		{durations.SessionIdleTTL, &c.SessionIdleTTL, "session_idle_ttl"},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config parse failed (%s): %s: %w", path, d.name, err)
		}
		*d.target = parsed
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// Keep SERVER_PORT for local/dev compatibility.
	c.ServerPort = getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", c.ServerPort))
	c.APIBaseURL = getEnvOrDefault("API_BASE_URL", c.APIBaseURL)
	c.PublicBaseURL = getEnvOrDefault("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.MaxFileSize = getEnvInt64OrDefault("MAX_FILE_SIZE", c.MaxFileSize)
	c.MaxTextSize = getEnvInt64OrDefault("MAX_TEXT_SIZE", c.MaxTextSize)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.CORSAllowOrigins = getEnvListOrDefault("CORS_ALLOW_ORIGINS", c.CORSAllowOrigins)
	c.SupabaseURL = getEnvOrDefault("SUPABASE_URL", c.SupabaseURL)
	c.SupabaseKey = getEnvOrDefault("SUPABASE_ANON_KEY", c.SupabaseKey)
	c.SlotCount = int(getEnvInt64OrDefault("SLOT_COUNT", int64(c.SlotCount)))
	c.ConvertTimeout = getEnvDurationOrDefault("CONVERT_TIMEOUT", c.ConvertTimeout)
	c.CombineTimeout = getEnvDurationOrDefault("COMBINE_TIMEOUT", c.CombineTimeout)
	c.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", c.FetchTimeout)
	c.MaxConcurrentConverts = int(getEnvInt64OrDefault("MAX_CONCURRENT_CONVERTS", int64(c.MaxConcurrentConverts)))
	c.SessionIdleTTL = getEnvDurationOrDefault("SESSION_IDLE_TTL", c.SessionIdleTTL)
	c.MaxSessions = int(getEnvInt64OrDefault("MAX_SESSIONS", int64(c.MaxSessions)))
}

// Validate checks value ranges and formats.
func (c *AppConfig) Validate() error {
	if port, err := strconv.Atoi(c.ServerPort); err != nil || port <= 0 || port > 65535 {
		return &domain.ValidationError{Field: "server_port", Message: fmt.Sprintf("invalid port %q", c.ServerPort)}
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &domain.ValidationError{Field: "public_base_url", Message: "must be an absolute URL"}
	}
	if c.APIBaseURL != "" {
		if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return &domain.ValidationError{Field: "api_base_url", Message: "must be an absolute URL"}
		}
	}
	if c.MaxFileSize <= 0 {
		return &domain.ValidationError{Field: "max_file_size", Message: "must be positive"}
	}
	if c.MaxTextSize <= 0 {
		return &domain.ValidationError{Field: "max_text_size", Message: "must be positive"}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &domain.ValidationError{Field: "log_format", Message: "must be text or json"}
	}
	if c.SlotCount < 2 || c.SlotCount > maxSlotCount {
		return &domain.ValidationError{Field: "slot_count", Message: fmt.Sprintf("must be between 2 and %d", maxSlotCount)}
	}
	if c.ConvertTimeout <= 0 || c.CombineTimeout <= 0 || c.FetchTimeout <= 0 {
		return &domain.ValidationError{Field: "timeouts", Message: "must be positive durations"}
	}
	if c.MaxConcurrentConverts <= 0 {
		return &domain.ValidationError{Field: "max_concurrent_converts", Message: "must be positive"}
	}
	if c.SessionIdleTTL < 0 {
		return &domain.ValidationError{Field: "session_idle_ttl", Message: "must not be negative (0 disables eviction)"}
	}
	if c.MaxSessions < 0 {
		return &domain.ValidationError{Field: "max_sessions", Message: "must not be negative (0 means unlimited)"}
	}
	if (c.SupabaseURL == "") != (c.SupabaseKey == "") {
		return &domain.ValidationError{Field: "supabase", Message: "SUPABASE_URL and SUPABASE_ANON_KEY must be set together"}
	}
	return nil
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetAPIBaseURL returns the remote backend API root; empty means in-process.
func (c *AppConfig) GetAPIBaseURL() string {
	return c.APIBaseURL
}

// GetPublicBaseURL returns the root used to build document links
func (c *AppConfig) GetPublicBaseURL() string {
	return c.PublicBaseURL
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetMaxTextSize returns the maximum allowed pasted text size
func (c *AppConfig) GetMaxTextSize() int64 {
	return c.MaxTextSize
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

func (c *AppConfig) GetLogFormat() string {
	return c.LogFormat
}

func (c *AppConfig) GetCORSAllowOrigins() []string {
	return c.CORSAllowOrigins
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

func (c *AppConfig) GetSlotCount() int {
	return c.SlotCount
}

func (c *AppConfig) GetConvertTimeout() time.Duration {
	return c.ConvertTimeout
}

func (c *AppConfig) GetCombineTimeout() time.Duration {
	return c.CombineTimeout
}

func (c *AppConfig) GetFetchTimeout() time.Duration {
	return c.FetchTimeout
}

func (c *AppConfig) GetMaxConcurrentConverts() int {
	return c.MaxConcurrentConverts
}

func (c *AppConfig) GetSessionIdleTTL() time.Duration {
	return c.SessionIdleTTL
}

func (c *AppConfig) GetMaxSessions() int {
	return c.MaxSessions
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare numbers are seconds.
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma-separated value; "*" alone means any origin.
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if value == "*" {
		return []string{"*"}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
