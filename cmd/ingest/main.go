// Command ingest connects to the upstream market-data feed and
// publishes normalized trade and bar records onto the durable bus, one
// topic per record type, keyed by ticker for per-symbol ordering.
package main

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/ingest/internal/upstream"
	"github.com/shubham-shewale/stock-watchlist/pkg/bus"
	"github.com/shubham-shewale/stock-watchlist/pkg/config"
	"github.com/shubham-shewale/stock-watchlist/pkg/lifecycle"
	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	topics := bus.NewTopicCreator(logger)
	topics.Create(cfg.Bus.Brokers, bus.TopicTrades)
	topics.Create(cfg.Bus.Brokers, bus.TopicBars)

	tradesWriter := bus.NewWriter(cfg.Bus.Brokers, bus.TopicTrades)
	barsWriter := bus.NewWriter(cfg.Bus.Brokers, bus.TopicBars)

	ctx, cancel := lifecycle.WithSignals(context.Background(), logger)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		upstream.Run(ctx, cfg.Upstream.WSURL, cfg.Upstream.Key, cfg.Upstream.Secret, logger,
			handler(ctx, tradesWriter, barsWriter, logger))
	}()

	logger.Info("ingest worker started", zap.String("upstream", cfg.Upstream.WSURL))

	<-ctx.Done()
	logger.Info("shutdown signal received, draining ingest worker")

	if !lifecycle.DrainWait(done) {
		logger.Warn("ingest worker drain timed out")
	}

	if err := tradesWriter.Close(); err != nil {
		logger.Error("error closing trades writer", zap.Error(err))
	}
	if err := barsWriter.Close(); err != nil {
		logger.Error("error closing bars writer", zap.Error(err))
	}

	logger.Info("ingest worker exited cleanly")
}

// handler normalizes a raw upstream frame and publishes it to the
// matching bus topic, keyed by ticker.
func handler(ctx context.Context, tradesWriter, barsWriter *bus.Writer, logger *zap.Logger) upstream.Handler {
	return func(raw []byte) error {
		trade, bar, kind, err := upstream.Normalize(raw)
		if err != nil {
			logger.Warn("dropping malformed upstream frame", zap.Error(err))
			return nil
		}

		switch kind {
		case models.FrameKindTrade:
			payload, err := json.Marshal(trade)
			if err != nil {
				return err
			}
			return tradesWriter.Publish(ctx, trade.Symbol, payload)

		case models.FrameKindBar:
			payload, err := json.Marshal(bar)
			if err != nil {
				return err
			}
			return barsWriter.Publish(ctx, bar.Symbol, payload)

		case models.FrameKindControl:
			logger.Debug("received control frame")
			return nil
		}
		return nil
	}
}
