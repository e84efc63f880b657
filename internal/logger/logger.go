// Package logger provides the daemon's structured logger and the
// supervisor log-capture pipeline applied to every managed model's child
// stdout/stderr (multiline joining, redaction, JSON parsing, level
// detection and filtering) before it reaches the per-model supervisor log
// file and in-memory ring buffer.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the daemon's root slog.Logger. format is "json" or "text";
// level is one of debug/info/warn/error.
func New(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseRootLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseRootLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
