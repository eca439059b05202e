package shared

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// SetupLogger configures zerolog with pretty console output on stderr.
// debug forces the debug level; otherwise level is parsed, falling back to
// info when it is empty or unknown.
func SetupLogger(level string, debug bool) zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, level, debug)
}

// SetupStructuredLogger configures zerolog for JSON output on stderr.
func SetupStructuredLogger(level string, debug bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return newLogger(os.Stderr, level, debug)
}

func newLogger(w io.Writer, level string, debug bool) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level, debug)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel resolves the effective log level.
func ParseLevel(level string, debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
