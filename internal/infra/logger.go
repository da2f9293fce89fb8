package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. Development writes human readable lines to
// stderr so CLI output on stdout stays clean. levelName overrides the
// environment default when it parses.
func NewLogger(appEnv, levelName string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelName))); err == nil && levelName != "" {
		level = parsed
	}

	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "storyreel").
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// Logger aliases the zerolog.Logger so callers outside the infra package can
// depend on the logging contract without importing the third-party module
// directly.
type Logger = zerolog.Logger

// LoggerOrDiscard returns l, or a logger writing nowhere when l is nil.
func LoggerOrDiscard(l *Logger) *Logger {
	if l != nil {
		return l
	}
	discard := zerolog.New(io.Discard)
	return &discard
}
