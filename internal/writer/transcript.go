package writer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/wsconsole/internal/router"
)

// ErrWriterStopped is returned by WriteLine after Stop.
var ErrWriterStopped = errors.New("transcript writer stopped")

const insertTranscript = `
	INSERT INTO console_transcript (session_id, seq, logged_at, line)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (session_id, seq) DO NOTHING`

// TranscriptWriter batches console lines into console_transcript.
type TranscriptWriter struct {
	cfg       WriterConfig
	logger    *slog.Logger
	db        BatchSender
	sessionID uuid.UUID

	// Batching
	batch       []transcriptRow
	batchMu     sync.Mutex
	flushMu     sync.Mutex // one flush in flight
	flushTicker *time.Ticker
	stopped     bool

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewTranscriptWriter creates a writer for one console session.
func NewTranscriptWriter(cfg WriterConfig, db BatchSender, sessionID uuid.UUID, logger *slog.Logger) *TranscriptWriter {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultWriterConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TranscriptWriter{
		cfg:       cfg,
		logger:    logger.With("session_id", sessionID),
		db:        db,
		sessionID: sessionID,
		batch:     make([]transcriptRow, 0, cfg.BatchSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SessionID returns the id every row is written under.
func (w *TranscriptWriter) SessionID() uuid.UUID {
	return w.sessionID
}

// Name implements router.Sink.
func (w *TranscriptWriter) Name() string { return "transcript" }

// WriteLine implements router.Sink. It queues the line and flushes when the
// batch is full.
func (w *TranscriptWriter) WriteLine(line router.Line) error {
	w.batchMu.Lock()
	if w.stopped {
		w.batchMu.Unlock()
		return ErrWriterStopped
	}
	w.batch = append(w.batch, transcriptRow{
		Seq:      int64(line.Seq),
		LoggedAt: line.At,
		Line:     line.Text,
	})
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		return w.flush(w.ctx)
	}
	return nil
}

// Start begins periodic flushing.
func (w *TranscriptWriter) Start(ctx context.Context) error {
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop(ctx)

	w.logger.Info("transcript writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop stops the flush loop and writes whatever is still pending.
func (w *TranscriptWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping transcript writer")

	w.batchMu.Lock()
	w.stopped = true
	w.batchMu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// The final flush uses the caller's deadline rather than the writer context.
	err := w.flush(ctx)
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("transcript writer stopped")
	case <-ctx.Done():
		w.logger.Warn("transcript writer stop timed out")
	}

	return err
}

// Stats returns current metrics.
func (w *TranscriptWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// flushLoop periodically flushes the batch.
func (w *TranscriptWriter) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// flush writes the current batch to the database. Failed rows are dropped.
func (w *TranscriptWriter) flush(ctx context.Context) error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]transcriptRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return err
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed transcript",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return nil
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TranscriptWriter) batchInsert(ctx context.Context, rows []transcriptRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertTranscript, w.sessionID, r.Seq, r.LoggedAt, r.Line)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
