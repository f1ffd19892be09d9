// Package processor implements the Stream Processor: two independent
// batching consumer loops (trades, bars) that read off the durable bus,
// persist idempotently to the relational store, and republish
// successfully-persisted, in-order records to the per-stream log for
// the Fan-out Bridge to pick up.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/pkg/config"
	"github.com/shubham-shewale/stock-watchlist/pkg/lifecycle"
	"github.com/shubham-shewale/stock-watchlist/pkg/models"
	"github.com/shubham-shewale/stock-watchlist/pkg/store"
	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"
)

// maxConsecutiveFailures is how many consecutive flush failures mark a
// loop degraded for health reporting (spec §7).
const maxConsecutiveFailures = 5

// Processor runs the trades and bars batching loops.
type Processor struct {
	cfg    config.ProcessorConfig
	logger *zap.Logger

	tradesReader BusReader
	barsReader   BusReader

	trades TradeSink
	bars   BarSink

	streams StreamPublisher

	tradesHealthy atomicBool
	barsHealthy   atomicBool
}

// New builds a Processor wired to its readers and sinks.
func New(cfg config.ProcessorConfig, logger *zap.Logger, tradesReader, barsReader BusReader, trades TradeSink, bars BarSink, streams StreamPublisher) *Processor {
	p := &Processor{
		cfg:          cfg,
		logger:       logger,
		tradesReader: tradesReader,
		barsReader:   barsReader,
		trades:       trades,
		bars:         bars,
		streams:      streams,
	}
	p.tradesHealthy.set(true)
	p.barsHealthy.set(true)
	return p
}

// Healthy reports whether both loops are within their failure budget.
func (p *Processor) Healthy() bool {
	return p.tradesHealthy.get() && p.barsHealthy.get()
}

// Run starts both loops and blocks until ctx is cancelled and both have
// drained.
func (p *Processor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		p.runTrades(ctx)
	}()
	go func() {
		defer wg.Done()
		p.runBars(ctx)
	}()

	wg.Wait()
}

func (p *Processor) flushInterval() time.Duration {
	return time.Duration(p.cfg.FlushIntervalMs) * time.Millisecond
}

type pendingTrade struct {
	msg kafka.Message
	row models.Trade
}

// runTrades batches trade inserts, flushing on batch size or flush
// interval, whichever comes first. A trade whose timestamp does not
// advance a symbol's last-seen timestamp is persisted with an ordinal
// volume estimate and excluded from republication (spec §5).
func (p *Processor) runTrades(ctx context.Context) {
	lastTs := make(map[string]int64)
	batch := make([]pendingTrade, 0, p.cfg.BatchSize)
	ticker := time.NewTicker(p.flushInterval())
	defer ticker.Stop()

	failures := 0

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		defer func() { batch = batch[:0] }()

		type preparedItem struct {
			pt   store.PreparedTrade
			msg  kafka.Message
			late bool
		}
		prepared := make([]preparedItem, 0, len(batch))
		for _, item := range batch {
			late := item.row.Timestamp <= lastTs[item.row.Symbol]
			pt, err := p.trades.Prepare(ctx, item.row, late)
			if err != nil {
				p.logger.Error("prepare trade failed", zap.Error(err), zap.String("symbol", item.row.Symbol))
				continue
			}
			if !late {
				lastTs[item.row.Symbol] = item.row.Timestamp
			}
			prepared = append(prepared, preparedItem{pt: pt, msg: item.msg, late: late})
		}

		rows := make([]store.PreparedTrade, len(prepared))
		for i, pr := range prepared {
			rows[i] = pr.pt
		}

		if _, err := p.trades.InsertBatch(ctx, rows); err != nil {
			p.logger.Error("insert trade batch failed", zap.Error(err), zap.Int("count", len(rows)))
			failures++
			p.tradesHealthy.set(failures < maxConsecutiveFailures)
			return
		}
		failures = 0
		p.tradesHealthy.set(true)

		msgs := make([]kafka.Message, 0, len(prepared))
		for _, pr := range prepared {
			msgs = append(msgs, pr.msg)
			if pr.late {
				continue
			}
			entry, err := models.NewTradeStreamEntry(pr.pt.Trade)
			if err != nil {
				p.logger.Error("marshal trade stream entry failed", zap.Error(err))
				continue
			}
			if err := p.streams.Append(ctx, streamlog.StreamTrades, entry); err != nil {
				p.logger.Error("append trade to stream log failed", zap.Error(err), zap.String("symbol", pr.pt.Trade.Symbol))
			}
		}

		if err := p.tradesReader.Commit(ctx, msgs...); err != nil {
			p.logger.Error("commit trade offsets failed", zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; drain the buffered batch on a
			// fresh context bounded by the shutdown deadline.
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycle.DrainTimeout)
			flush(drainCtx)
			cancel()
			p.tradesReader.Close()
			return
		case <-ticker.C:
			flush(ctx)
		default:
			// Bound the fetch so an idle topic does not keep the flush
			// ticker from being serviced.
			fetchCtx, cancel := context.WithTimeout(ctx, p.flushInterval())
			m, err := p.tradesReader.FetchMessage(fetchCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				p.logger.Error("fetch trade message failed", zap.Error(err))
				continue
			}

			var t models.Trade
			if err := json.Unmarshal(m.Value, &t); err != nil {
				p.logger.Error("unmarshal trade failed", zap.Error(err))
				continue
			}

			batch = append(batch, pendingTrade{msg: m, row: t})
			if len(batch) >= p.cfg.BatchSize {
				flush(ctx)
			}
		}
	}
}

type pendingBar struct {
	msg kafka.Message
	row models.Bar
}

// runBars batches bar inserts the same way runTrades batches trades.
func (p *Processor) runBars(ctx context.Context) {
	batch := make([]pendingBar, 0, p.cfg.BatchSize)
	ticker := time.NewTicker(p.flushInterval())
	defer ticker.Stop()

	failures := 0

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		defer func() { batch = batch[:0] }()

		type preparedItem struct {
			pb  store.PreparedBar
			msg kafka.Message
		}
		prepared := make([]preparedItem, 0, len(batch))
		for _, item := range batch {
			pb, err := p.bars.Prepare(ctx, item.row)
			if err != nil {
				p.logger.Error("prepare bar failed", zap.Error(err), zap.String("symbol", item.row.Symbol))
				continue
			}
			prepared = append(prepared, preparedItem{pb: pb, msg: item.msg})
		}

		rows := make([]store.PreparedBar, len(prepared))
		for i, pr := range prepared {
			rows[i] = pr.pb
		}

		if _, err := p.bars.InsertBatch(ctx, rows); err != nil {
			p.logger.Error("insert bar batch failed", zap.Error(err), zap.Int("count", len(rows)))
			failures++
			p.barsHealthy.set(failures < maxConsecutiveFailures)
			return
		}
		failures = 0
		p.barsHealthy.set(true)

		msgs := make([]kafka.Message, 0, len(prepared))
		for _, pr := range prepared {
			msgs = append(msgs, pr.msg)
			entry, err := models.NewBarStreamEntry(pr.pb.Bar)
			if err != nil {
				p.logger.Error("marshal bar stream entry failed", zap.Error(err))
				continue
			}
			if err := p.streams.Append(ctx, streamlog.StreamBars, entry); err != nil {
				p.logger.Error("append bar to stream log failed", zap.Error(err), zap.String("symbol", pr.pb.Bar.Symbol))
			}
		}

		if err := p.barsReader.Commit(ctx, msgs...); err != nil {
			p.logger.Error("commit bar offsets failed", zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycle.DrainTimeout)
			flush(drainCtx)
			cancel()
			p.barsReader.Close()
			return
		case <-ticker.C:
			flush(ctx)
		default:
			fetchCtx, cancel := context.WithTimeout(ctx, p.flushInterval())
			m, err := p.barsReader.FetchMessage(fetchCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				p.logger.Error("fetch bar message failed", zap.Error(err))
				continue
			}

			var b models.Bar
			if err := json.Unmarshal(m.Value, &b); err != nil {
				p.logger.Error("unmarshal bar failed", zap.Error(err))
				continue
			}

			batch = append(batch, pendingBar{msg: m, row: b})
			if len(batch) >= p.cfg.BatchSize {
				flush(ctx)
			}
		}
	}
}
