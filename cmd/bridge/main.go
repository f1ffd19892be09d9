// Command bridge runs the Fan-out Bridge: it consumes the per-stream
// log under a durable consumer group and republishes entries onto the
// broadcast channel the WebSocket Gateway subscribes to.
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/bridge/internal/bridge"
	"github.com/shubham-shewale/stock-watchlist/pkg/broadcast"
	"github.com/shubham-shewale/stock-watchlist/pkg/config"
	"github.com/shubham-shewale/stock-watchlist/pkg/lifecycle"
	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"
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

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.StreamLog.Addr()})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to stream log", zap.Error(err))
	}
	defer rdb.Close()

	reader := streamlog.NewGroupReader(
		rdb,
		streamlog.GroupName,
		cfg.StreamLog.ConsumerName,
		[]string{streamlog.StreamTrades, streamlog.StreamBars},
		2*time.Second,
	)
	if err := reader.EnsureGroups(ctx); err != nil {
		logger.Fatal("failed to ensure consumer groups", zap.Error(err))
	}

	publisher := broadcast.NewPublisher(rdb)
	b := bridge.New(reader, publisher, logger, cfg.Gateway.BroadcastGlobal)

	runCtx, cancel := lifecycle.WithSignals(ctx, logger)
	defer cancel()

	go serveHealth(cfg.App.Port, b, logger)

	logger.Info("fan-out bridge started", zap.Bool("broadcast_global", cfg.Gateway.BroadcastGlobal))
	b.Run(runCtx)

	logger.Info("fan-out bridge exited cleanly")
}

func serveHealth(addr string, b *bridge.Bridge, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !b.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "degraded")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("health server stopped", zap.Error(err))
	}
}
