package models

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// TypeBar discriminates a Bar payload in JSON envelopes and on the bus.
const TypeBar = "bar"

// DefaultTimeframe is the bar aggregation window used when upstream does
// not specify one.
const DefaultTimeframe = "1m"

// Bar is an append-only OHLC observation at a fixed timeframe.
type Bar struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Timestamp  int64           `json:"timestamp"` // bar close time, epoch ms
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	Volume     decimal.Decimal `json:"volume"`
	TradeCount int64           `json:"trade_count"`
	VWAP       decimal.Decimal `json:"vwap"`
	Type       string          `json:"type"`
}

// IdempotencyKey returns the tuple the relational store enforces uniqueness
// on: (symbol, timestamp, timeframe).
func (b Bar) IdempotencyKey() string {
	return b.Symbol + "|" + strconv.FormatInt(b.Timestamp, 10) + "|" + b.Timeframe
}

// Validate enforces the OHLC invariant: low <= min(open,close) <=
// max(open,close) <= high, plus non-negative volume and trade count.
func (b Bar) Validate() error {
	minOC := decimal.Min(b.Open, b.Close)
	maxOC := decimal.Max(b.Open, b.Close)

	if b.Low.GreaterThan(minOC) {
		return fmt.Errorf("bar invariant violated: low %s > min(open,close) %s", b.Low, minOC)
	}
	if maxOC.GreaterThan(b.High) {
		return fmt.Errorf("bar invariant violated: max(open,close) %s > high %s", maxOC, b.High)
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("bar invariant violated: volume %s < 0", b.Volume)
	}
	if b.TradeCount < 0 {
		return fmt.Errorf("bar invariant violated: trade_count %d < 0", b.TradeCount)
	}
	return nil
}
