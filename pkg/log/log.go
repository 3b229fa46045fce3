// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr at the requested level. Level names
// follow slog ("debug", "info", "warn", "error", case-insensitive, offsets
// like "info+2" included); anything unparseable falls back to info.
func Setup(logLevel string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with the subsystem name that
// appears as the "module" attribute on every record.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
