// Package mockfeed synthesizes trade/bar events for development without
// an upstream feed. It drives the same Hub broadcast surface the
// Fan-out Bridge uses, just in-process instead of over pkg/broadcast.
package mockfeed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

// Broadcaster is the subset of *hub.Hub the emitter drives.
type Broadcaster interface {
	Broadcast(event string, payload json.RawMessage)
	BroadcastToSymbol(ticker, event string, payload json.RawMessage)
}

// Emitter produces a synthetic trade_update for a random ticker every
// tick. It emits no bar_update frames.
type Emitter struct {
	logger     *zap.Logger
	hub        Broadcaster
	tickers    []string
	basePrices map[string]decimal.Decimal
	rand       Rand
	clock      Clock
	interval   time.Duration
	global     bool

	seq    map[string]int64
	volume map[string]decimal.Decimal
}

func NewEmitter(
	logger *zap.Logger,
	h Broadcaster,
	tickers []string,
	basePrices map[string]decimal.Decimal,
	rnd Rand,
	clock Clock,
	interval time.Duration,
	global bool,
) *Emitter {
	return &Emitter{
		logger:     logger,
		hub:        h,
		tickers:    tickers,
		basePrices: basePrices,
		rand:       rnd,
		clock:      clock,
		interval:   interval,
		global:     global,
		seq:        make(map[string]int64),
		volume:     make(map[string]decimal.Decimal),
	}
}

// Run blocks, emitting one synthetic event every interval until ctx is
// cancelled.
func (e *Emitter) Run(ctx context.Context) {
	e.logger.Info("mock feed started", zap.Strings("tickers", e.tickers), zap.Duration("interval", e.interval))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if len(e.tickers) == 0 {
			e.clock.Sleep(e.interval)
			continue
		}

		symbol := e.tickers[e.rand.Intn(len(e.tickers))]
		e.emitTrade(symbol)
		e.clock.Sleep(e.interval)
	}
}

func (e *Emitter) emitTrade(symbol string) {
	base := e.basePrices[symbol]
	if base.IsZero() {
		base = decimal.NewFromInt(100)
	}
	fluctuation := decimal.NewFromFloat((e.rand.Float64() * 2) - 1)
	price := base.Add(fluctuation)
	size := decimal.NewFromFloat(1 + e.rand.Float64()*49)

	e.seq[symbol]++
	e.volume[symbol] = e.volume[symbol].Add(size)

	trade := models.Trade{
		Symbol:    symbol,
		Price:     price,
		Size:      size,
		Timestamp: e.clock.Now().UnixMilli(),
		Volume:    e.volume[symbol],
		Type:      models.TypeTrade,
	}

	payload, err := json.Marshal(trade)
	if err != nil {
		e.logger.Error("marshal mock trade", zap.Error(err))
		return
	}

	e.hub.BroadcastToSymbol(symbol, protocol.FrameTradeUpdate, payload)
	if e.global {
		e.hub.Broadcast(protocol.FrameTradeUpdate, payload)
	}
}
