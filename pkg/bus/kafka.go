package bus

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaAdapter publishes outbox messages to a real Kafka cluster. It
// lazily creates one kafka.Writer per topic behind a mutex, rather than
// one writer per call, so repeated publishes to the same aggregate type
// reuse connections.
type KafkaAdapter struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaAdapter constructs a KafkaAdapter targeting brokers.
func NewKafkaAdapter(brokers []string) *KafkaAdapter {
	return &KafkaAdapter{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// Publish writes a single message to topic, waiting for
// RequiredAcks: kafka.RequireAll before returning, so a successful
// Publish means the message survived replication.
func (a *KafkaAdapter) Publish(ctx context.Context, topic string, key, value []byte) error {
	writer := a.writerForTopic(topic)
	err := writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return &PublishError{Topic: topic, Err: err}
	}
	return nil
}

func (a *KafkaAdapter) writerForTopic(topic string) *kafka.Writer {
	a.mu.Lock()
	defer a.mu.Unlock()

	if writer, ok := a.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(a.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	a.writers[topic] = writer
	return writer
}

// Close releases every writer this adapter has opened.
func (a *KafkaAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for topic, writer := range a.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(a.writers, topic)
	}
	return firstErr
}
