// Package logging provides the slog.Logger factory used by the ghgrab apps.
//
// LOG_FORMAT selects the handler: "text" (or "console") for human-readable
// key=value output, anything else for structured JSON. LOG_LEVEL selects the
// minimum level (debug, info, warn, error; default info).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger configured from environment variables, writing to
// stderr so downloader output and shell pipelines stay clean.
func New() *slog.Logger {
	return NewWith(os.Stderr, parseLevel(os.Getenv("LOG_LEVEL")))
}

// NewWith returns a logger at an explicit level and destination. The format
// still follows LOG_FORMAT.
func NewWith(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "text", "console":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
