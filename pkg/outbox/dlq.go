package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQ holds outbox rows that failed delivery, retrying them on an
// exponential backoff schedule until maxAttempts is exhausted, at
// which point the row is quarantined for manual inspection.
type DLQ struct {
	pool        *pgxpool.Pool
	maxAttempts int
	baseDelay   time.Duration
}

// NewDLQ constructs a DLQ. maxAttempts and baseDelay fall back to 5
// and one minute respectively when zero.
func NewDLQ(pool *pgxpool.Pool, maxAttempts int, baseDelay time.Duration) *DLQ {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &DLQ{pool: pool, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

// Write records a failed delivery in outbox_dlq with the given reason,
// scheduled for its first retry after an exponential backoff delay.
func (q *DLQ) Write(ctx context.Context, m Message, reason string) error {
	attempts := m.Attempts + 1
	_, err := q.pool.Exec(ctx, `
		INSERT INTO outbox_dlq (event_id, aggregate_id, aggregate_type, event_type, event_data, tenant_id, attempts, last_error, created_at, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now() + $10::interval)
	`, m.EventID, m.AggregateID, m.AggregateType, m.EventType, m.EventData, m.TenantID, attempts, reason, m.CreatedAt, q.backoffDelay(attempts))
	return err
}

type dlqEntry struct {
	ID            int64
	EventID       string
	AggregateID   string
	AggregateType string
	EventType     string
	EventData     []byte
	TenantID      string
	Attempts      int
	CreatedAt     time.Time
}

// RetryDue requeues DLQ entries whose next_retry_at has elapsed back
// into the primary outbox table, or quarantines them once attempts
// reaches maxAttempts. It returns the number of entries requeued.
func (q *DLQ) RetryDue(ctx context.Context, batchSize int) (int, error) {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_id, aggregate_type, event_type, event_data, tenant_id, attempts, created_at
		FROM outbox_dlq
		WHERE quarantined_at IS NULL AND next_retry_at <= now()
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize)
	if err != nil {
		return 0, err
	}

	var entries []dlqEntry
	for rows.Next() {
		var e dlqEntry
		if err := rows.Scan(&e.ID, &e.EventID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.EventData, &e.TenantID, &e.Attempts, &e.CreatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	requeued := 0
	for _, e := range entries {
		if e.Attempts >= q.maxAttempts {
			if _, err := tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = now() WHERE id = $1`, e.ID); err != nil {
				return requeued, err
			}
			dlqQuarantinedCounter.WithLabelValues(e.AggregateType).Inc()
			continue
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO outbox (event_id, aggregate_id, aggregate_type, event_type, event_data, tenant_id, created_at, attempts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.EventID, e.AggregateID, e.AggregateType, e.EventType, e.EventData, e.TenantID, e.CreatedAt, e.Attempts); err != nil {
			return requeued, fmt.Errorf("requeue dlq entry %d: %w", e.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE id = $1`, e.ID); err != nil {
			return requeued, err
		}
		dlqRequeuedCounter.WithLabelValues(e.AggregateType).Inc()
		requeued++
	}

	if err := tx.Commit(ctx); err != nil {
		return requeued, err
	}
	return requeued, nil
}

// backoffDelay returns the exponential backoff duration for the given
// attempt count, doubling per attempt and capped at one hour.
func (q *DLQ) backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(1<<uint(attempts-1)) * q.baseDelay
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// UpdateBacklogGauge refreshes the dlq_queued_messages gauge from the
// current count of non-quarantined outbox_dlq rows. Intended to be called periodically by
// the relay's own poll loop.
func (q *DLQ) UpdateBacklogGauge(ctx context.Context) {
	var count int
	if err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklogGauge.Set(float64(count))
}
