// Package database provides PostgreSQL connection management and schema
// bootstrap using pgx.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"roomreserve/internal/config"
)

// DSN builds a libpq-compatible connection string from the config.
func DSN(cfg config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)
}

const maxConnectAttempts = 5

// connectRetryDelay is a variable so tests can shrink it.
var connectRetryDelay = 2 * time.Second

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				return pool, nil
			}
			pool.Close()
			err = pingErr
		}
		// No wait after the final attempt; fail straight away.
		if attempt < maxConnectAttempts {
			logger.Warn("db connect failed, retrying", "attempt", attempt, "error", err)
			time.Sleep(connectRetryDelay)
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// schema is the full DDL. The (room_id, date, slot, status) index serves the
// admission path's confirmed-count query.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    id         UUID        PRIMARY KEY,
    name       TEXT        NOT NULL,
    room_type  TEXT        NOT NULL,
    capacity   INT         NOT NULL CHECK (capacity > 0),
    slots      TEXT[]      NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
    id           UUID        PRIMARY KEY,
    room_id      UUID        NOT NULL REFERENCES rooms (id),
    requester_id TEXT        NOT NULL,
    date         TEXT        NOT NULL,
    slot         TEXT        NOT NULL,
    status       TEXT        NOT NULL CHECK (status IN ('Confirmed', 'Cancelled')),
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reservations_tuple
    ON reservations (room_id, date, slot, status);

CREATE INDEX IF NOT EXISTS idx_reservations_requester
    ON reservations (requester_id, created_at DESC);
`

// Migrate applies the schema. Idempotent; runs at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
