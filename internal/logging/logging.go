// Package logging builds the process logger from the command-line
// verbosity.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Config selects the logger's level and output format.
type Config struct {
	Verbosity int    // number of -v flags
	Format    string // text|json
}

// New returns a logger writing to w. Each level of verbosity lowers the
// threshold one step through ERROR, WARN, INFO and DEBUG.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(cfg.Verbosity)}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Level maps a -v count to a slog level, ERROR when zero.
func Level(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelError
	case verbosity == 1:
		return slog.LevelWarn
	case verbosity == 2:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
