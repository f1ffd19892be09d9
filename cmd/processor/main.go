// Command processor runs the Stream Processor: it consumes trades and
// bars off the durable bus, persists them idempotently to the
// relational store, and republishes successfully-persisted records to
// the per-stream log for the Fan-out Bridge.
package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/processor/internal/processor"
	"github.com/shubham-shewale/stock-watchlist/pkg/bus"
	"github.com/shubham-shewale/stock-watchlist/pkg/config"
	"github.com/shubham-shewale/stock-watchlist/pkg/lifecycle"
	"github.com/shubham-shewale/stock-watchlist/pkg/store"
	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"

	"github.com/redis/go-redis/v9"
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

	db, err := store.Connect(ctx, cfg.Store.DSN(), cfg.Store.MinConns, cfg.Store.MaxConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.StreamLog.Addr()})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to stream log", zap.Error(err))
	}

	symbols := store.NewSymbolCache(db.Pool)
	volumes := store.NewVolumeTracker(db)
	tradeSink := store.NewTradeWriter(db, symbols, volumes)
	barSink := store.NewBarWriter(db, symbols)
	appender := streamlog.NewAppender(rdb)

	topics := bus.NewTopicCreator(logger)
	topics.Create(cfg.Bus.Brokers, bus.TopicTrades)
	topics.Create(cfg.Bus.Brokers, bus.TopicBars)

	tradesReader := bus.NewReader(cfg.Bus.Brokers, bus.TopicTrades, bus.GroupTradesPersist)
	barsReader := bus.NewReader(cfg.Bus.Brokers, bus.TopicBars, bus.GroupBarsPersist)

	proc := processor.New(cfg.Processor, logger, tradesReader, barsReader, tradeSink, barSink, appender)

	runCtx, cancel := lifecycle.WithSignals(ctx, logger)
	defer cancel()

	go serveHealth(cfg.App.Port, proc, logger)

	logger.Info("stream processor started", zap.Int("num_workers", cfg.Processor.NumWorkers))
	proc.Run(runCtx)

	logger.Info("closing stream log and database connections")
	rdb.Close()
	db.Close()

	logger.Info("stream processor exited cleanly")
}

func serveHealth(addr string, proc *processor.Processor, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !proc.Healthy() {
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
