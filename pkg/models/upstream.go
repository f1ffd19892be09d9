package models

// UpstreamFrame is the raw shape of a message from the upstream
// market-data feed, before normalization into Trade/Bar. Fields are a
// superset of what trade, bar, and control frames carry.
type UpstreamFrame struct {
	Kind      string  `json:"type"` // "trade", "bar", "control"
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	TradeCnt  int64   `json:"trade_count"`
	VWAP      float64 `json:"vwap"`
	Timeframe string  `json:"timeframe"`
	Timestamp string  `json:"timestamp"` // ISO-8601
	Code      string  `json:"code"`      // control frames: e.g. "AUTH"
}

const (
	FrameKindTrade   = "trade"
	FrameKindBar     = "bar"
	FrameKindControl = "control"
)
