package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Router is the console Presenter. It stamps each line and fans it out to
// every sink through a per-sink queue, so a slow or failing sink never blocks
// the caller or the other sinks.
type Router struct {
	cfg    RouterConfig
	logger *slog.Logger
	now    func() time.Time

	outputs []*output

	// Serializes stamping so queues see lines in Seq order.
	presentMu sync.Mutex
	seq       uint64

	wg      sync.WaitGroup
	started atomic.Bool

	presented atomic.Int64
	dropped   atomic.Int64
}

// output pairs a sink with its queue and counters.
type output struct {
	sink    Sink
	queue   *Queue[Line]
	written atomic.Int64
	failed  atomic.Int64
}

// NewRouter creates a Router for the given sinks.
func NewRouter(cfg RouterConfig, logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultRouterConfig().QueueCapacity
	}

	r := &Router{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		r.outputs = append(r.outputs, &output{
			sink:  s,
			queue: NewQueue[Line](cfg.QueueCapacity),
		})
	}
	return r
}

// Present queues text for every sink. It never blocks on a sink.
// Lines presented before Start are held until the sinks start draining.
func (r *Router) Present(text string) {
	r.presentMu.Lock()
	defer r.presentMu.Unlock()

	r.seq++
	line := Line{Seq: r.seq, Text: text, At: r.now()}
	r.presented.Add(1)

	for _, out := range r.outputs {
		if !out.queue.Push(line) {
			r.dropped.Add(1)
		}
	}
}

// Start launches one drain goroutine per sink. It fails without starting
// anything when ctx is already done.
func (r *Router) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.started.CompareAndSwap(false, true) {
		return nil
	}

	for _, out := range r.outputs {
		r.wg.Add(1)
		go r.drainLoop(out)
	}

	r.logger.Info("console router started", "sinks", len(r.outputs))
	return nil
}

// Stop closes the queues and waits for the sinks to write what is left.
func (r *Router) Stop(ctx context.Context) error {
	for _, out := range r.outputs {
		out.queue.Close()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debug("console router stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("console router stop timed out")
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		Presented: r.presented.Load(),
		Dropped:   r.dropped.Load(),
		Sinks:     make([]SinkStats, 0, len(r.outputs)),
	}
	for _, out := range r.outputs {
		stats.Sinks = append(stats.Sinks, SinkStats{
			Name:    out.sink.Name(),
			Written: out.written.Load(),
			Failed:  out.failed.Load(),
			Queue:   out.queue.Stats(),
		})
	}
	return stats
}

func (r *Router) drainLoop(out *output) {
	defer r.wg.Done()

	for {
		line, ok := out.queue.Pop()
		if !ok {
			return
		}
		if err := out.sink.WriteLine(line); err != nil {
			out.failed.Add(1)
			r.logger.Warn("sink write failed",
				"sink", out.sink.Name(),
				"seq", line.Seq,
				"error", err,
			)
			continue
		}
		out.written.Add(1)
	}
}
