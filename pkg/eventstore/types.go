package eventstore

import "time"

// Metadata is the envelope carried inside every encoded event payload.
// It round-trips byte-for-byte; the store treats it as opaque beyond
// the fields it needs for its own bookkeeping (EventID becomes the
// events.event_id column, Timestamp the events.created_at column).
type Metadata struct {
	EventID       string    `json:"event_id"`
	CorrelationID string    `json:"correlation_id"`
	CausationID   *string   `json:"causation_id,omitempty"`
	UserID        *string   `json:"user_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	SchemaVersion int       `json:"schema_version"`
}

// InputEvent is a caller-constructed fact awaiting assignment of a
// version and persistence. Data is the already-encoded payload produced
// by Encode; callers never hand-build the wire bytes themselves.
type InputEvent struct {
	Type string
	Data []byte
}

// EventRecord is a persisted event as returned by LoadEvents, ordered by
// Version ascending within one (tenant, aggregate) stream.
type EventRecord struct {
	EventID   string
	EventType string
	EventData []byte // stored envelope JSON ({type, metadata, data}), not decoded; see DecodeEnvelope
	Version   int
	CreatedAt time.Time
}

// ReadOptions narrows a LoadEvents read: FromVersion (inclusive) and
// Limit apply only when greater than zero.
type ReadOptions struct {
	FromVersion int
	Limit       int
}
