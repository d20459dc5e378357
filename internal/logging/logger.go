// Package logging provides structured logging configuration using log/slog.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Output goes to stderr: stdout is reserved for resolved schema JSON so it
// can be piped, edited, and fed back in.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
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

// WithResource returns a logger that carries the resource identifier, so
// every entry from one resource's run can be correlated in catalog-wide
// runs. A nil logger falls back to the default.
//
// Usage:
//
//	log := logging.WithResource(d.log, res.ID)
//	log.Info("processing resource", "url", res.URL)
//	// ... later ...
//	log.Info("upload complete", "rows", n)
func WithResource(logger *slog.Logger, resourceID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("resource", resourceID)
}
