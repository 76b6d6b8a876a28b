// Package logger builds the process logger. Records are JSON on stderr so
// that stdout stays free for accepted messages, and levels are named the way
// Senzing messages name them.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/V4T54L/szmessage/pkg/typedef"
)

// New returns a JSON logger writing to stderr at the given level.
func New(level string) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter returns a JSON logger writing to w.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, HandlerOptions(ParseLevel(level))))
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Senzing names are
// accepted in any case; anything unrecognised yields INFO.
func ParseLevel(level string) slog.Level {
	if parsed, ok := typedef.ParseLevel(level); ok {
		return parsed.Slog()
	}
	if strings.EqualFold(strings.TrimSpace(level), "warning") {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}

// HandlerOptions renames the extra Senzing levels (TRACE, FATAL, PANIC) in
// emitted records. slog would otherwise print them as DEBUG-4, ERROR+4 and ERROR+8.
func HandlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 || a.Key != slog.LevelKey {
				return a
			}
			l, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			if name, known := typedef.LevelFromSlog(l); known {
				a.Value = slog.StringValue(name.String())
			}
			return a
		},
	}
}
