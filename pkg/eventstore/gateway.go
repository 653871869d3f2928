package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig configures the pooled connection acquirer. MinConns are kept
// warm; MaxConns is the hard cap. Acquisition blocks (with cancellation)
// once the pool is saturated — pgxpool enforces this natively.
type PoolConfig struct {
	DSN      string
	MinConns int32
	MaxConns int32
}

// NewPool parses dsn, applies the configured floor/ceiling, and pings the
// database so misconfiguration fails fast at startup rather than on the
// first request.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &StorageError{
			EventStoreError: EventStoreError{Op: "NewPool", Err: fmt.Errorf("parse dsn: %w", err)},
			Resource:        "database",
		}
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &StorageError{
			EventStoreError: EventStoreError{Op: "NewPool", Err: fmt.Errorf("create pool: %w", err)},
			Resource:        "database",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, &StorageError{
			EventStoreError: EventStoreError{Op: "NewPool", Err: fmt.Errorf("ping database: %w", err)},
			Resource:        "database",
		}
	}
	return pool, nil
}

// withDeadline derives a context from ctx that respects a caller-set
// deadline if present, otherwise applies defaultTimeout. Deriving from ctx
// (rather than context.Background()) means the caller's own cancellation —
// request abort, shutdown signal — still propagates into the query/append;
// only the effective deadline is adjusted.
func withDeadline(ctx context.Context, defaultTimeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

// WithTx runs fn inside a transaction at the given isolation level:
// BEGIN, fn, COMMIT, with an automatic ROLLBACK on any error, panic, or
// cancellation along the way (the deferred Rollback is a no-op once
// Commit has already succeeded).
func WithTx(ctx context.Context, pool *pgxpool.Pool, isoLevel pgx.TxIsoLevel, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel})
	if err != nil {
		return &StorageError{
			EventStoreError: EventStoreError{Op: "WithTx", Err: fmt.Errorf("begin transaction: %w", err)},
			Resource:        "database",
		}
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return &StorageError{
			EventStoreError: EventStoreError{Op: "WithTx", Err: fmt.Errorf("commit transaction: %w", err)},
			Resource:        "database",
		}
	}
	return nil
}
