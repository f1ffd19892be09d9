// Command gateway runs the WebSocket Gateway: it accepts client
// connections, manages per-symbol room subscriptions, and broadcasts
// trade/bar events fed either by the Fan-out Bridge (over pkg/broadcast)
// or, in mock mode, by a synthetic in-process emitter.
package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/gobwas/ws"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/health"
	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/httpapi"
	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/mockfeed"
	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
	"github.com/shubham-shewale/stock-watchlist/pkg/broadcast"
	"github.com/shubham-shewale/stock-watchlist/pkg/config"
	"github.com/shubham-shewale/stock-watchlist/pkg/lifecycle"
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

	validTickers := make(map[string]bool, len(cfg.Gateway.ValidTickers))
	for _, t := range cfg.Gateway.ValidTickers {
		validTickers[t] = true
	}

	wsHub := hub.NewHub(logger)
	tracker := health.New()

	ctx := context.Background()
	runCtx, cancel := lifecycle.WithSignals(ctx, logger)
	defer cancel()

	if cfg.Gateway.MockRealtime {
		startMockFeed(runCtx, cfg, wsHub, logger)
	} else {
		startBroadcastFeed(runCtx, cfg, wsHub, tracker, logger)
	}

	mux := httpapi.NewMux(cfg.Gateway.RestAPIBaseURL, tracker, logger)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := gateway.NewClient(conn, wsHub, logger, validTickers)
		client.Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}
	go func() {
		logger.Info("gateway listening", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-runCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), lifecycle.DrainTimeout)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	logger.Info("gateway exited cleanly")
}

// startMockFeed runs the synthetic emitter in-process; it must not be
// combined with a live broadcast subscription on the same instance.
func startMockFeed(ctx context.Context, cfg *config.Config, h *hub.Hub, logger *zap.Logger) {
	basePrices := make(map[string]decimal.Decimal, len(cfg.Gateway.ValidTickers))
	for _, t := range cfg.Gateway.ValidTickers {
		basePrices[t] = decimal.NewFromInt(100)
	}
	interval := time.Duration(cfg.Gateway.MockIntervalSec) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	emitter := mockfeed.NewEmitter(
		logger, h, cfg.Gateway.ValidTickers, basePrices,
		mockfeed.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}, mockfeed.RealClock{}, interval, cfg.Gateway.BroadcastGlobal,
	)
	go emitter.Run(ctx)
}

// startBroadcastFeed subscribes to pkg/broadcast and dispatches each
// frame into the Hub, mirroring what the Fan-out Bridge published.
func startBroadcastFeed(ctx context.Context, cfg *config.Config, h *hub.Hub, tracker *health.Tracker, logger *zap.Logger) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.StreamLog.Addr()})
	sub := broadcast.NewSubscriber(rdb)

	go func() {
		sub.Run(ctx, func(payload []byte) {
			var frame protocol.BroadcastFrame
			if err := json.Unmarshal(payload, &frame); err != nil {
				logger.Error("dropping malformed broadcast frame", zap.Error(err))
				return
			}
			h.BroadcastToSymbol(frame.Symbol, frame.Type, frame.Data)
			if frame.Global {
				h.Broadcast(frame.Type, frame.Data)
			}
		})
		tracker.Set(false)
		sub.Close()
		rdb.Close()
	}()
}
