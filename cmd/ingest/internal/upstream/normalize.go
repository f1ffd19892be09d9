package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

// Normalize parses a raw upstream frame and converts it into either a
// models.Trade or a models.Bar. The third return value reports which
// one was populated ("trade", "bar", or "control"); control frames
// return zero structs and a nil error.
func Normalize(raw []byte) (models.Trade, models.Bar, string, error) {
	var frame models.UpstreamFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return models.Trade{}, models.Bar{}, "", fmt.Errorf("unmarshal upstream frame: %w", err)
	}

	switch frame.Kind {
	case models.FrameKindTrade:
		ts, err := parseTimestamp(frame.Timestamp)
		if err != nil {
			return models.Trade{}, models.Bar{}, "", fmt.Errorf("parse timestamp: %w", err)
		}

		return models.Trade{
			Symbol:    strings.ToUpper(frame.Symbol),
			Price:     decimal.NewFromFloat(frame.Price),
			Size:      decimal.NewFromFloat(frame.Size),
			Timestamp: ts,
			Type:      models.TypeTrade,
		}, models.Bar{}, models.FrameKindTrade, nil

	case models.FrameKindBar:
		ts, err := parseTimestamp(frame.Timestamp)
		if err != nil {
			return models.Trade{}, models.Bar{}, "", fmt.Errorf("parse timestamp: %w", err)
		}

		timeframe := frame.Timeframe
		if timeframe == "" {
			timeframe = models.DefaultTimeframe
		}

		return models.Trade{}, models.Bar{
			Symbol:     strings.ToUpper(frame.Symbol),
			Timeframe:  timeframe,
			Timestamp:  ts,
			Open:       decimal.NewFromFloat(frame.Open),
			High:       decimal.NewFromFloat(frame.High),
			Low:        decimal.NewFromFloat(frame.Low),
			Close:      decimal.NewFromFloat(frame.Close),
			Volume:     decimal.NewFromFloat(frame.Volume),
			VWAP:       decimal.NewFromFloat(frame.VWAP),
			TradeCount: frame.TradeCnt,
			Type:       models.TypeBar,
		}, models.FrameKindBar, nil

	case models.FrameKindControl:
		return models.Trade{}, models.Bar{}, models.FrameKindControl, nil

	default:
		return models.Trade{}, models.Bar{}, "", fmt.Errorf("unknown frame kind %q", frame.Kind)
	}
}

func parseTimestamp(raw string) (int64, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
