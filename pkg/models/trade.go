package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// TypeTrade discriminates a Trade payload in JSON envelopes and on the bus.
const TypeTrade = "trade"

// Trade is an append-only per-symbol observation as described in the
// market data schema: price, size, a monotonic-per-symbol timestamp, and
// the running volume for that symbol as of this trade.
type Trade struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	Timestamp int64           `json:"timestamp"` // epoch milliseconds
	Volume    decimal.Decimal `json:"volume"`
	Type      string          `json:"type"`
}

// IdempotencyKey returns the tuple the relational store enforces uniqueness
// on: (symbol, timestamp, price, size).
func (t Trade) IdempotencyKey() string {
	return t.Symbol + "|" + strconv.FormatInt(t.Timestamp, 10) + "|" + t.Price.String() + "|" + t.Size.String()
}
