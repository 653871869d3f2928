// Package bus defines the thin contract the Outbox Relay publishes
// through, and a kafka-go backed implementation of it.
package bus

import (
	"context"
	"errors"
	"fmt"
)

// Adapter is a send-and-await-ack surface over a Kafka-style streaming
// bus. Publish returns only once the broker has acknowledged the
// message (or the context is done); implementations may retry
// internally but any such retries must be bounded — the Relay handles
// higher-level reattempts across polling iterations.
type Adapter interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// PublishError wraps a failed Publish call with the topic it targeted,
// so callers logging the failure don't need to parse the message.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// IsPublishError reports whether err is (or wraps) a PublishError.
func IsPublishError(err error) bool {
	var target *PublishError
	return errors.As(err, &target)
}
