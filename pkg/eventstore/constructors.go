package eventstore

import (
	"time"

	"github.com/google/uuid"
)

// NewMetadata builds envelope metadata for a fresh causal chain: the
// correlation id is freshly minted and there is no causation id, since
// nothing produced this event in response to another.
func NewMetadata(schemaVersion int) Metadata {
	return Metadata{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		CorrelationID: uuid.Must(uuid.NewV7()).String(),
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
	}
}

// Caused returns metadata continuing the causal chain started by parent:
// the same correlation id, with causation id pointing at parent's event.
func Caused(parent Metadata, schemaVersion int) Metadata {
	causationID := parent.EventID
	return Metadata{
		EventID:       uuid.Must(uuid.NewV7()).String(),
		CorrelationID: parent.CorrelationID,
		CausationID:   &causationID,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
	}
}

// WithUser attaches the acting user id to metadata, returning the result
// (metadata is a value type; callers chain this onto NewMetadata/Caused).
func WithUser(m Metadata, userID string) Metadata {
	m.UserID = &userID
	return m
}

// NewInputEvent encodes data under eventType and metadata into a ready
// InputEvent for AppendEvents.
func NewInputEvent(eventType string, metadata Metadata, data any) (InputEvent, error) {
	payload, err := Encode(eventType, metadata, data)
	if err != nil {
		return InputEvent{}, err
	}
	return InputEvent{Type: eventType, Data: payload}, nil
}
