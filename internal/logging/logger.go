package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Redacted replaces the value of sensitive attributes.
const Redacted = "***"

// SensitiveKeys are attribute keys that carry profile data or user text.
var SensitiveKeys = []string{"name", "age", "gender", "height", "weight", "health_issues", "query", "input"}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout flow UI/JSON-RPC).
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter builds the application logger on w.
// It standardizes common keys (e.g., "error" -> "err") and masks sensitive values.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr(SensitiveKeys),
	}))
}

func replaceAttr(keys []string) func(groups []string, a slog.Attr) slog.Attr {
	sensitive := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		sensitive[strings.ToLower(k)] = struct{}{}
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		// Standardize 'error' key to 'err'
		if a.Key == "error" {
			a.Key = "err"
		}
		if _, ok := sensitive[strings.ToLower(a.Key)]; ok && a.Value.Kind() != slog.KindGroup {
			return slog.String(a.Key, Redacted)
		}
		return a
	}
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
