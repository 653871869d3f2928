// Package outbox implements the relay half of the transactional outbox
// pattern: it drains rows written co-transactionally with event store
// appends and publishes them onto a bus.Adapter, retrying failures
// through a dead-letter queue with exponential backoff.
package outbox

import (
	"encoding/json"
	"strings"
	"time"
)

// Message is a single outbox row claimed for delivery.
type Message struct {
	ID            int64
	EventID       string
	AggregateID   string
	AggregateType string
	EventType     string
	EventData     json.RawMessage
	TenantID      string
	CreatedAt     time.Time
	Attempts      int
}

// Topic derives the destination topic for a message from its
// aggregate type: "finance.<aggregate_type>.events", lowercased.
func (m Message) Topic() string {
	return "finance." + strings.ToLower(m.AggregateType) + ".events"
}

// PartitionKey is the Kafka partition key for a message. Keying by
// aggregate_id keeps every event for one aggregate in the same
// partition, so a consumer reading a single partition sees that
// aggregate's events in append order.
func (m Message) PartitionKey() []byte {
	return []byte(m.AggregateID)
}
