package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// WriterConfig holds batching settings.
type WriterConfig struct {
	BatchSize     int           // Flush when this many rows are pending. Default: 100
	FlushInterval time.Duration // Flush pending rows at least this often. Default: 1s
}

// DefaultWriterConfig returns default configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Second,
	}
}

// WriterMetrics contains writer counters.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// BatchSender sends a pgx batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// transcriptRow is one console_transcript row.
type transcriptRow struct {
	Seq      int64
	LoggedAt time.Time
	Line     string
}
