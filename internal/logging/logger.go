// Package logging builds the structured logger used across zonegraph.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured level when set
const EnvLogLevel = "LOG_LEVEL"

// New returns a console logger writing to w at level. An unknown level
// falls back to info.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(w),
	}).With().Timestamp().Logger()

	if env := os.Getenv(EnvLogLevel); env != "" {
		level = env
	}
	return logger.Level(ParseLevel(level))
}

// ParseLevel parses a level name, defaulting to info
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
