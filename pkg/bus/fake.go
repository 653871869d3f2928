package bus

import (
	"context"
	"sync"
)

// FakeMessage is a captured Publish call, recorded by FakeAdapter.
type FakeMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

// FakeAdapter is an in-memory Adapter double for tests that don't need
// a running broker. FailTopics lets a test force Publish to fail for a
// given topic, to exercise the Relay's DLQ path.
type FakeAdapter struct {
	mu         sync.Mutex
	Messages   []FakeMessage
	FailTopics map[string]error
}

// NewFakeAdapter returns an empty FakeAdapter.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{FailTopics: make(map[string]error)}
}

// Publish records the message, or returns the configured failure for
// topic if one was set via FailTopics.
func (f *FakeAdapter) Publish(ctx context.Context, topic string, key, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.FailTopics[topic]; ok {
		return &PublishError{Topic: topic, Err: err}
	}
	f.Messages = append(f.Messages, FakeMessage{Topic: topic, Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
	return nil
}

// Close is a no-op for FakeAdapter.
func (f *FakeAdapter) Close() error {
	return nil
}

// Count returns how many messages have been published to topic.
func (f *FakeAdapter) Count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, m := range f.Messages {
		if m.Topic == topic {
			n++
		}
	}
	return n
}
