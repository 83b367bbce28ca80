// Package util holds small shared helpers: logger construction.
package util

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger at the requested level, falling back to
// info when the level string is unrecognized.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// ComponentLogger derives a child logger tagged with the component name.
func ComponentLogger(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
