package processor

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
	"github.com/shubham-shewale/stock-watchlist/pkg/store"
)

// BusReader abstracts pkg/bus.Reader for testability.
type BusReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TradeSink abstracts the relational store's trade path.
type TradeSink interface {
	Prepare(ctx context.Context, t models.Trade, isLate bool) (store.PreparedTrade, error)
	InsertBatch(ctx context.Context, rows []store.PreparedTrade) (inserted int, err error)
}

// BarSink abstracts the relational store's bar path.
type BarSink interface {
	Prepare(ctx context.Context, b models.Bar) (store.PreparedBar, error)
	InsertBatch(ctx context.Context, rows []store.PreparedBar) (inserted int, err error)
}

// StreamPublisher abstracts the per-stream log's append side.
type StreamPublisher interface {
	Append(ctx context.Context, stream string, entry models.StreamEntry) error
}
