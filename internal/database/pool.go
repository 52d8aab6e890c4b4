package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/wsconsole/internal/config"
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Execer runs a statement without returning rows.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TranscriptSchema creates the transcript table.
const TranscriptSchema = `
CREATE TABLE IF NOT EXISTS console_transcript (
	session_id uuid        NOT NULL,
	seq        bigint      NOT NULL,
	logged_at  timestamptz NOT NULL,
	line       text        NOT NULL,
	PRIMARY KEY (session_id, seq)
)`

// EnsureSchema creates the tables the console writes to.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, TranscriptSchema); err != nil {
		return fmt.Errorf("create console_transcript: %w", err)
	}
	return nil
}
