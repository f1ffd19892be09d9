package upstream

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/pkg/backoff"
)

// Frame is a normalized upstream message ready for publication.
type Frame struct {
	Kind string // models.FrameKindTrade or models.FrameKindBar
	Raw  []byte
}

// Handler processes one raw upstream frame.
type Handler func(raw []byte) error

// Run dials url, feeds every message it receives to handle, and
// reconnects with exponential backoff whenever the connection drops.
// It blocks until ctx is cancelled.
func Run(ctx context.Context, url, key, secret string, logger *zap.Logger, handle Handler) {
	policy := backoff.New(time.Second, 2, 30*time.Second)

	for {
		if ctx.Err() != nil {
			return
		}

		client := NewClient(url, key, secret, logger)
		if err := client.Connect(ctx); err != nil {
			logger.Warn("upstream connect failed", zap.Error(err))
			sleep(ctx, policy.Next())
			continue
		}
		policy.Reset()

		if !drain(ctx, client, logger, handle) {
			return
		}

		client.Close()
		sleep(ctx, policy.Next())
	}
}

// drain reads messages from client until it errors out or ctx is
// cancelled, returning false only when the caller should stop entirely
// (ctx cancelled).
func drain(ctx context.Context, client *Client, logger *zap.Logger, handle Handler) bool {
	for {
		select {
		case <-ctx.Done():
			client.Close()
			return false

		case err := <-client.Errors():
			logger.Warn("upstream connection error, reconnecting", zap.Error(err))
			return true

		case raw, ok := <-client.Messages():
			if !ok {
				return true
			}
			if err := handle(raw); err != nil {
				logger.Error("handle upstream frame failed", zap.Error(err))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
