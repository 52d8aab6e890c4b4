package router

import "time"

// Line is one console log line as delivered to sinks.
type Line struct {
	Seq  uint64    // 1-based, in presentation order
	Text string    // exactly what the controller presented
	At   time.Time // when it was presented
}

// Sink is one destination for console lines. WriteLine is called from a single
// goroutine per sink, in sequence order.
type Sink interface {
	Name() string
	WriteLine(line Line) error
}

// RouterConfig holds configuration for the Router.
type RouterConfig struct {
	QueueCapacity int // Initial per-sink queue size. Default: 64
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueCapacity: 64,
	}
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	Presented int64
	Dropped   int64 // lines presented after Stop
	Sinks     []SinkStats
}

// SinkStats contains per-sink statistics.
type SinkStats struct {
	Name    string
	Written int64
	Failed  int64
	Queue   QueueStats
}
