package domain

import "time"

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetAPIBaseURL() string
	GetPublicBaseURL() string
	GetMaxFileSize() int64
	GetMaxTextSize() int64
	GetLogLevel() string
	GetLogFormat() string
	GetCORSAllowOrigins() []string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSlotCount() int
	GetConvertTimeout() time.Duration
	GetCombineTimeout() time.Duration
	GetFetchTimeout() time.Duration
	GetMaxConcurrentConverts() int
	GetSessionIdleTTL() time.Duration
	GetMaxSessions() int
}
