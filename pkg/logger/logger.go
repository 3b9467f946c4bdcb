package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. level is any zerolog level name; unknown
// names fall back to info. pretty switches to console output for local runs.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return base(w, level).
		With().
		Caller().
		Str("service", "value-ledger").
		Logger()
}

// NewWithWriter builds a logger over w, mainly for tests.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return base(w, level)
}

func base(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// Network tags every record with the ledger network mode, so MAINNET and
// TESTNET streams can share a sink.
func Network(log zerolog.Logger, mode string) zerolog.Logger {
	return log.With().Str("network", mode).Logger()
}

// Component returns a child logger tagged with the emitting component.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Security returns an event flagged for the security stream. Signature
// failures, replayed nonces and rejected authority keys go through here.
func Security(log *zerolog.Logger) *zerolog.Event {
	return log.Warn().Bool("security_event", true)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
