package bridge

import (
	"context"

	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"
)

// StreamReader is the subset of streamlog.GroupReader the bridge needs,
// narrowed for testability.
type StreamReader interface {
	Read(ctx context.Context) ([]streamlog.Entry, error)
	Ack(ctx context.Context, stream, id string) error
}

// FramePublisher is the subset of pkg/broadcast.Publisher the bridge
// needs.
type FramePublisher interface {
	Publish(ctx context.Context, payload []byte) error
}
