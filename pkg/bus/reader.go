package bus

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader consumes a single topic under a consumer group, committing
// offsets only when the caller explicitly acknowledges (CommitMessages),
// giving the Stream Processor at-least-once semantics tied to successful
// batch flushes.
type Reader struct {
	r *kafka.Reader
}

// NewReader creates a Reader bound to topic/groupID. Auto-commit is
// disabled: offsets only advance when the caller calls Commit after a
// successful flush (spec §4.2).
func NewReader(brokers []string, topic, groupID string) *Reader {
	return &Reader{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			Topic:             topic,
			GroupID:           groupID,
			MinBytes:          1,
			MaxBytes:          10e6,
			MaxWait:           500 * time.Millisecond,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    10 * time.Second,
		}),
	}
}

// FetchMessage blocks until a message is available or ctx is done; an
// idle topic keeps it blocked, so callers bound the wait through ctx.
func (r *Reader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	return r.r.FetchMessage(ctx)
}

// Commit advances the consumer group's offset past the given messages.
func (r *Reader) Commit(ctx context.Context, msgs ...kafka.Message) error {
	return r.r.CommitMessages(ctx, msgs...)
}

// Close releases the underlying Kafka reader.
func (r *Reader) Close() error {
	return r.r.Close()
}
