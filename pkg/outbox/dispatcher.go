package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgerevents/pkg/bus"
)

// Dispatcher polls the outbox table and delivers claimed rows to a
// bus.Adapter, at least once. Delivery failures are routed to the DLQ
// rather than retried in place, so one slow or poisoned message never
// blocks the rest of the batch on the next poll.
type Dispatcher struct {
	pool         *pgxpool.Pool
	adapter      bus.Adapter
	dlq          *DLQ
	pollInterval time.Duration
	batchSize    int
	wake         chan struct{}
	done         chan struct{}
}

// NewDispatcher constructs a Dispatcher. batchSize bounds how many rows
// are claimed per poll; pollInterval is the idle wait between polls
// when Notify is not used to wake the loop early.
func NewDispatcher(pool *pgxpool.Pool, adapter bus.Adapter, dlq *DLQ, pollInterval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		pool:         pool,
		adapter:      adapter,
		dlq:          dlq,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Notify wakes the dispatcher loop immediately instead of waiting out
// the rest of its poll interval. Safe to call from another goroutine;
// non-blocking if a wake-up is already pending.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Start runs the polling loop until ctx is done. Call it in a
// goroutine; use Wait to block until it has exited.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.done)
	}()

	for {
		if _, err := d.ProcessOutbox(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("outbox dispatcher: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.wake:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

// ProcessOutbox claims a single batch of undelivered rows, publishes
// them, and deletes the delivered ones. It returns the number of rows
// successfully published. A claimed batch that fails to deliver is
// written to the DLQ and still removed from the outbox, so the relay
// does not wedge on a poisoned message.
func (d *Dispatcher) ProcessOutbox(ctx context.Context) (int, error) {
	start := time.Now()

	messages, err := d.fetchAndClaim(ctx)
	if err != nil {
		return 0, &ClaimError{Err: err}
	}
	if len(messages) == 0 {
		return 0, nil
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	delivered, failed := d.deliver(ctx, messages)

	if len(failed) > 0 {
		failedCounter.Add(float64(len(failed)))
		for _, f := range failed {
			log.Printf("outbox: delivery failure for row %d (event %s): %v", f.message.ID, f.message.EventID, f.err)
			if err := d.dlq.Write(ctx, f.message, f.err.Error()); err != nil {
				return len(delivered), fmt.Errorf("move message %s to dlq: %w", f.message.EventID, err)
			}
		}
	}

	all := make([]Message, 0, len(messages))
	all = append(all, delivered...)
	for _, f := range failed {
		all = append(all, f.message)
	}
	if err := d.markPublished(ctx, all); err != nil {
		return len(delivered), &MarkError{Err: err}
	}

	deliveredCounter.Add(float64(len(delivered)))
	return len(delivered), nil
}

func (d *Dispatcher) fetchAndClaim(ctx context.Context) ([]Message, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_id, aggregate_type, event_type, event_data, tenant_id, created_at, attempts
		FROM outbox
		WHERE claimed_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, d.batchSize)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, d.batchSize)
	ids := make([]int64, 0, d.batchSize)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.EventID, &m.AggregateID, &m.AggregateType, &m.EventType, &m.EventData, &m.TenantID, &m.CreatedAt, &m.Attempts); err != nil {
			rows.Close()
			return nil, err
		}
		messages = append(messages, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE outbox SET claimed_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	backlogGauge.Set(float64(len(messages)))
	return messages, nil
}

type deliveryFailure struct {
	message Message
	err     error
}

// deliver publishes every message to its derived topic, partitioned
// by aggregate id. It never aborts the whole batch on one failure:
// each message is attributed independently so a single bad payload
// does not stall its siblings.
func (d *Dispatcher) deliver(ctx context.Context, messages []Message) (delivered []Message, failed []deliveryFailure) {
	for _, m := range messages {
		if err := d.adapter.Publish(ctx, m.Topic(), m.PartitionKey(), m.EventData); err != nil {
			failed = append(failed, deliveryFailure{message: m, err: err})
			continue
		}
		delivered = append(delivered, m)
	}
	return delivered, failed
}

// markPublished deletes the given rows from the outbox table (both the
// delivered ones and those already written to the DLQ), one DELETE per
// tenant to keep each statement's lock footprint small.
func (d *Dispatcher) markPublished(ctx context.Context, messages []Message) error {
	byTenant := make(map[string][]int64)
	for _, m := range messages {
		byTenant[m.TenantID] = append(byTenant[m.TenantID], m.ID)
	}

	for tenantID, ids := range byTenant {
		if _, err := d.pool.Exec(ctx, `DELETE FROM outbox WHERE tenant_id = $1 AND id = ANY($2)`, tenantID, ids); err != nil {
			return err
		}
	}
	return nil
}
