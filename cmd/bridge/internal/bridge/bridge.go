// Package bridge implements the Fan-out Bridge: it consumes the
// per-stream log under a durable consumer group and republishes each
// entry onto pkg/broadcast for the WebSocket Gateway to pick up.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
	"github.com/shubham-shewale/stock-watchlist/pkg/models"
	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"
)

// maxConsecutiveFailures publish failures before the bridge reports
// itself unhealthy, mirroring the Stream Processor's degraded signal.
const maxConsecutiveFailures = 5

var eventNames = map[string]string{
	models.TypeTrade: protocol.FrameTradeUpdate,
	models.TypeBar:   protocol.FrameBarUpdate,
}

// Bridge reads the per-stream log and republishes onto the broadcast
// channel, honoring BROADCAST_GLOBAL per entry.
type Bridge struct {
	reader    StreamReader
	publisher FramePublisher
	logger    *zap.Logger
	global    bool

	healthy atomicBool
}

func New(reader StreamReader, publisher FramePublisher, logger *zap.Logger, global bool) *Bridge {
	b := &Bridge{reader: reader, publisher: publisher, logger: logger, global: global}
	b.healthy.set(true)
	return b
}

// Healthy reports whether recent publishes have been succeeding.
func (b *Bridge) Healthy() bool { return b.healthy.get() }

// Run blocks, dispatching entries until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entries, err := b.reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("stream read failed", zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if !b.dispatch(ctx, entry) {
				failures++
				if failures >= maxConsecutiveFailures {
					b.healthy.set(false)
				}
				continue
			}
			failures = 0
			b.healthy.set(true)
		}
	}
}

// dispatch parses entry, publishes a BroadcastFrame, and acks on
// success. It returns false only for a publish failure (the entry stays
// pending for redelivery); a malformed entry is acked and dropped.
func (b *Bridge) dispatch(ctx context.Context, entry streamlog.Entry) bool {
	if entry.Symbol == "" {
		b.logger.Warn("dropping malformed stream entry: missing symbol", zap.String("id", entry.ID))
		b.ack(ctx, entry)
		return true
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(entry.Data), &envelope); err != nil {
		b.logger.Warn("dropping malformed stream entry: invalid json", zap.String("id", entry.ID), zap.Error(err))
		b.ack(ctx, entry)
		return true
	}

	event, ok := eventNames[envelope.Type]
	if !ok {
		b.logger.Warn("dropping stream entry with unknown type", zap.String("id", entry.ID), zap.String("type", envelope.Type))
		b.ack(ctx, entry)
		return true
	}

	frame := protocol.BroadcastFrame{
		Type:   event,
		Symbol: entry.Symbol,
		Global: b.global,
		Data:   json.RawMessage(entry.Data),
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		b.logger.Error("marshal broadcast frame", zap.Error(err), zap.String("id", entry.ID))
		return false
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := b.publisher.Publish(publishCtx, payload); err != nil {
		b.logger.Error("publish broadcast frame failed, leaving entry pending", zap.Error(err), zap.String("id", entry.ID))
		return false
	}

	b.ack(ctx, entry)
	return true
}

func (b *Bridge) ack(ctx context.Context, entry streamlog.Entry) {
	if err := b.reader.Ack(ctx, entry.Stream, entry.ID); err != nil {
		b.logger.Error("ack failed", zap.Error(err), zap.String("id", entry.ID))
	}
}
