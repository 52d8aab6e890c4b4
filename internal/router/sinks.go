package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ConsoleSink prints each line's text on its own line.
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSink creates a sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) Name() string { return "console" }

// WriteLine writes line.Text followed by a newline.
func (s *ConsoleSink) WriteLine(line Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintln(s.w, line.Text)
	return err
}

// LogSink emits each line as a structured log record.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a sink logging at level.
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) WriteLine(line Line) error {
	s.logger.Log(context.Background(), s.level, "console line",
		"seq", line.Seq,
		"text", line.Text,
		"at", line.At,
	)
	return nil
}
