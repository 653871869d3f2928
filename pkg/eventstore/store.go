package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config tunes EventStore behavior. Zero-value fields fall back to the
// defaults applied by NewEventStore.
type Config struct {
	MaxBatchSize    int
	AppendTimeout   time.Duration
	QueryTimeout    time.Duration
	AppendIsolation pgx.TxIsoLevel

	// OnAppend, if set, is called once after each successful commit of
	// new events. It exists so a caller can wire the Outbox Relay's
	// Notify() here and cut publish latency instead of waiting out the
	// rest of the Relay's poll interval. Must not block.
	OnAppend func()
}

func (c Config) withDefaults() Config {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = 1000
	}
	if c.AppendTimeout <= 0 {
		c.AppendTimeout = 10 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 15 * time.Second
	}
	if c.AppendIsolation == "" {
		c.AppendIsolation = pgx.ReadCommitted
	}
	return c
}

// EventStore is the authoritative, append-only log of domain facts per
// aggregate, scoped per tenant, with optimistic concurrency control.
type EventStore struct {
	pool   *pgxpool.Pool
	config Config
}

// NewEventStore validates connectivity and schema, then returns a ready
// EventStore. It fails fast if the events/outbox tables are missing.
func NewEventStore(ctx context.Context, pool *pgxpool.Pool, cfg Config) (*EventStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, &StorageError{
			EventStoreError: EventStoreError{Op: "NewEventStore", Err: fmt.Errorf("ping database: %w", err)},
			Resource:        "database",
		}
	}
	if err := validateTableExists(ctx, pool, "events"); err != nil {
		return nil, err
	}
	if err := validateTableExists(ctx, pool, "outbox"); err != nil {
		return nil, err
	}
	return &EventStore{pool: pool, config: cfg.withDefaults()}, nil
}

// GetConfig returns the EventStore's effective configuration.
func (es *EventStore) GetConfig() Config {
	return es.config
}

// GetPool exposes the underlying pool for advanced/internal use such as
// the Outbox Relay's own transactions. Regular callers should not need
// this — it bypasses AppendEvents'/LoadEvents' consistency guarantees.
func (es *EventStore) GetPool() *pgxpool.Pool {
	return es.pool
}

// AppendEvents appends new_events to the (tenant_id, aggregate_id)
// stream, enforcing optimistic concurrency against expected_version.
// It returns the new head version on success.
func (es *EventStore) AppendEvents(ctx context.Context, tenantID, aggregateID, aggregateType string, expectedVersion int, newEvents []InputEvent) (int, error) {
	if err := validateAppendArgs(tenantID, aggregateID, aggregateType, expectedVersion, newEvents); err != nil {
		return 0, err
	}
	if len(newEvents) > es.config.MaxBatchSize {
		return 0, &ValidationError{
			EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("batch of %d exceeds max batch size %d", len(newEvents), es.config.MaxBatchSize)},
			Field:           "new_events",
			Value:           fmt.Sprintf("%d", len(newEvents)),
		}
	}

	appendCtx, cancel := withDeadline(ctx, es.config.AppendTimeout)
	defer cancel()

	start := time.Now()
	defer func() { appendDuration.Observe(time.Since(start).Seconds()) }()

	newVersion := 0
	err := WithTx(appendCtx, es.pool, es.config.AppendIsolation, func(tx pgx.Tx) error {
		// Serialize concurrent appenders for the same (tenant, aggregate)
		// stream: an aggregate-scoped advisory lock held for the
		// transaction's lifetime, released automatically on commit or
		// rollback. This narrows the window the unique-index check below
		// still has to cover under weaker-than-serializable isolation.
		if _, err := tx.Exec(appendCtx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, tenantID+":"+aggregateID); err != nil {
			return &StorageError{
				EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("acquire aggregate lock: %w", err)},
				Resource:        "database",
			}
		}

		var currentVersion int
		err := tx.QueryRow(appendCtx, `
			SELECT COALESCE(MAX(version), 0) FROM events
			WHERE tenant_id = $1 AND aggregate_id = $2
		`, tenantID, aggregateID).Scan(&currentVersion)
		if err != nil {
			return &StorageError{
				EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("read current version: %w", err)},
				Resource:        "database",
			}
		}

		if currentVersion != expectedVersion {
			return &ConcurrencyError{
				EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("expected version %d but stream is at %d", expectedVersion, currentVersion)},
				AggregateID:     aggregateID,
				ExpectedVersion: expectedVersion,
				ActualVersion:   currentVersion,
			}
		}

		batch := &pgx.Batch{}
		now := time.Now().UTC()
		for i, e := range newEvents {
			version := currentVersion + i + 1
			_, _, meta, err := DecodeEnvelope(e.Data)
			if err != nil {
				return &DecodeError{
					EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("decode event envelope: %w", err)},
					Field:           "data",
				}
			}
			if meta.EventID == "" {
				return &ValidationError{
					EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("event metadata.event_id is empty")},
					Field:           "metadata.event_id",
					Value:           "",
				}
			}
			batch.Queue(`
				INSERT INTO events (event_id, aggregate_id, aggregate_type, event_type, event_data, version, tenant_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, meta.EventID, aggregateID, aggregateType, e.Type, e.Data, version, tenantID, meta.Timestamp)
			batch.Queue(`
				INSERT INTO outbox (event_id, aggregate_id, aggregate_type, event_type, event_data, tenant_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, meta.EventID, aggregateID, aggregateType, e.Type, e.Data, tenantID, now)
		}

		results := tx.SendBatch(appendCtx, batch)
		defer results.Close()
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				if isUniqueViolation(err) {
					return &ConcurrencyError{
						EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("unique violation on (tenant_id, aggregate_id, version) or event_id: %w", err)},
						AggregateID:     aggregateID,
						ExpectedVersion: expectedVersion,
						ActualVersion:   currentVersion,
					}
				}
				return &StorageError{
					EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("insert batch statement %d: %w", i, err)},
					Resource:        "database",
				}
			}
		}
		if err := results.Close(); err != nil {
			return &StorageError{
				EventStoreError: EventStoreError{Op: "AppendEvents", Err: fmt.Errorf("close batch results: %w", err)},
				Resource:        "database",
			}
		}

		newVersion = currentVersion + len(newEvents)
		return nil
	})
	if err != nil {
		if IsConcurrencyError(err) {
			appendConflictsCounter.Inc()
		}
		return 0, err
	}
	if es.config.OnAppend != nil {
		es.config.OnAppend()
	}
	return newVersion, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), the belt-and-braces anchor for the
// (tenant_id, aggregate_id, version) concurrency check under isolation
// levels weaker than serializable.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
