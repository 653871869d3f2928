// Package schema holds the relational DDL for the event store and
// outbox tables, applied at startup by cmd/migrate. Statements are kept
// as plain Go string constants and run in order, the same inline-DDL
// technique the teacher uses for its benchmark dataset cache table.
package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_id       UUID PRIMARY KEY,
		aggregate_id   UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		event_data     JSONB NOT NULL,
		version        INTEGER NOT NULL CHECK (version > 0),
		tenant_id      UUID NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (tenant_id, aggregate_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tenant_aggregate_version
		ON events (tenant_id, aggregate_id, version ASC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_type_created_at
		ON events (aggregate_type, created_at)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id             BIGSERIAL PRIMARY KEY,
		event_id       UUID NOT NULL,
		aggregate_id   UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		event_data     JSONB NOT NULL,
		tenant_id      UUID NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at     TIMESTAMPTZ,
		attempts       INTEGER NOT NULL DEFAULT 0,
		last_error     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_fifo ON outbox (created_at, id)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id             BIGSERIAL PRIMARY KEY,
		event_id       UUID NOT NULL,
		aggregate_id   UUID NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		event_data     JSONB NOT NULL,
		tenant_id      UUID NOT NULL,
		attempts       INTEGER NOT NULL,
		last_error     TEXT,
		created_at     TIMESTAMPTZ NOT NULL,
		quarantined_at TIMESTAMPTZ,
		next_retry_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_dlq_next_retry ON outbox_dlq (next_retry_at)`,
}

// Apply runs every DDL statement in order against pool. It is idempotent
// (every statement is an IF NOT EXISTS form) so it is safe to run on
// every process start, not only during an explicit migration step.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration statement %d: %w", i, err)
		}
	}
	return nil
}
