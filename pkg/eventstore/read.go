package eventstore

import (
	"context"
	"fmt"
)

// LoadEvents returns an aggregate's full history ordered strictly by
// version ascending, never by created_at (timestamps can tie; versions
// cannot). Zero matching rows is AggregateNotFoundError: an aggregate
// only exists once its creation event has been appended.
//
// opts optionally narrows the read: FromVersion skips earlier versions
// and Limit caps the number of records returned. Passing nil loads the
// complete stream.
func (es *EventStore) LoadEvents(ctx context.Context, tenantID, aggregateID, aggregateType string, opts *ReadOptions) ([]EventRecord, error) {
	if err := validateLoadArgs(tenantID, aggregateID, aggregateType); err != nil {
		return nil, err
	}

	queryCtx, cancel := withDeadline(ctx, es.config.QueryTimeout)
	defer cancel()

	query := `
		SELECT event_id, event_type, event_data, version, created_at
		FROM events
		WHERE tenant_id = $1 AND aggregate_id = $2 AND aggregate_type = $3`
	args := []any{tenantID, aggregateID, aggregateType}

	if opts != nil && opts.FromVersion > 0 {
		query += fmt.Sprintf(" AND version >= $%d", len(args)+1)
		args = append(args, opts.FromVersion)
	}
	query += " ORDER BY version ASC"
	if opts != nil && opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}

	rows, err := es.pool.Query(queryCtx, query, args...)
	if err != nil {
		return nil, &StorageError{
			EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("query events: %w", err)},
			Resource:        "database",
		}
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.EventID, &r.EventType, &r.EventData, &r.Version, &r.CreatedAt); err != nil {
			return nil, &StorageError{
				EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("scan event row: %w", err)},
				Resource:        "database",
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{
			EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("iterate event rows: %w", err)},
			Resource:        "database",
		}
	}

	if len(records) == 0 {
		return nil, &AggregateNotFoundError{
			EventStoreError: EventStoreError{Op: "LoadEvents", Err: fmt.Errorf("no events for aggregate %s", aggregateID)},
			AggregateID:     aggregateID,
			AggregateType:   aggregateType,
		}
	}
	return records, nil
}
