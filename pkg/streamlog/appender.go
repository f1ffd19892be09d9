package streamlog

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

// Appender writes committed records to the per-stream log.
type Appender struct {
	client *redis.Client
}

// NewAppender wraps a Redis client for stream appends.
func NewAppender(client *redis.Client) *Appender {
	return &Appender{client: client}
}

// Append writes a StreamEntry to stream, assigning the entry an
// automatically generated id. The stream is globally ordered by append
// time; per-ticker order is preserved because flushes are serialized per
// processor instance (spec §5).
func (a *Appender) Append(ctx context.Context, stream string, entry models.StreamEntry) error {
	return a.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{
			"symbol": entry.Symbol,
			"data":   entry.Data,
		},
	}).Err()
}
