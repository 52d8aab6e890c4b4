package config

import (
	"fmt"
	"io"
	"log/slog"
)

// SlogLevel parses Level. An empty level is info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", c.Level, err)
	}
	return level, nil
}

// NewLogger builds a text or JSON slog logger writing to w.
// An unparseable level falls back to info.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
