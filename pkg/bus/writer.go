package bus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer publishes normalized trade/bar records to the durable bus, keyed
// by ticker so the bus preserves per-symbol FIFO order end to end.
type Writer struct {
	w *kafka.Writer
}

// NewWriter creates a Writer for the given topic. Keying ensures all
// messages for a symbol land on the same partition.
func NewWriter(brokers []string, topic string) *Writer {
	return &Writer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
		},
	}
}

// Publish fire-and-forgets a keyed message. Failures are the caller's to
// log and drop — durability begins at the bus, not before (spec §4.1).
func (w *Writer) Publish(ctx context.Context, key string, value []byte) error {
	return w.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

// Close flushes and releases the underlying Kafka writer.
func (w *Writer) Close() error {
	return w.w.Close()
}
