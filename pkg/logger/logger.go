package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"

	"github.com/rs/zerolog"
)

// AppLogger implements the domain.Logger interface
type AppLogger struct {
	logger zerolog.Logger
}

// NewLogger creates a new logger instance writing human-readable lines to stdout
func NewLogger(levelStr string) domain.Logger {
	return New(levelStr, "text", os.Stdout)
}

// New creates a logger with an explicit format ("json" or "text") and output.
func New(levelStr, format string, out io.Writer) *AppLogger {
	if out == nil {
		out = os.Stdout
	}
	if !strings.EqualFold(format, "json") {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	l := zerolog.New(out).
		Level(parseLogLevel(levelStr)).
		With().
		Timestamp().
		Str("app", "textpress").
		Logger()

	return &AppLogger{logger: l}
}

// Info logs an info message
func (l *AppLogger) Info(msg string, fields ...interface{}) {
	l.logger.Info().Fields(pairs(fields)).Msg(msg)
}

// Error logs an error message
func (l *AppLogger) Error(msg string, err error, fields ...interface{}) {
	l.logger.Error().Err(err).Fields(pairs(fields)).Msg(msg)
}

// Debug logs a debug message
func (l *AppLogger) Debug(msg string, fields ...interface{}) {
	l.logger.Debug().Fields(pairs(fields)).Msg(msg)
}

// Warn logs a warning message
func (l *AppLogger) Warn(msg string, fields ...interface{}) {
	l.logger.Warn().Fields(pairs(fields)).Msg(msg)
}

// pairs drops a trailing key without a value.
func pairs(fields []interface{}) []interface{} {
	if len(fields)%2 != 0 {
		return fields[:len(fields)-1]
	}
	return fields
}

// parseLogLevel converts string log level to a zerolog level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
