package upstream

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

func TestNormalize_Trade(t *testing.T) {
	raw := []byte(`{"type":"trade","symbol":"AAPL","price":189.23,"size":100,"timestamp":"2026-08-03T14:00:00Z"}`)

	trade, _, kind, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if kind != models.FrameKindTrade {
		t.Fatalf("kind = %q, want %q", kind, models.FrameKindTrade)
	}
	if trade.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", trade.Symbol)
	}
	if !trade.Price.Equal(decimal.NewFromFloat(189.23)) {
		t.Errorf("Price = %s, want 189.23", trade.Price)
	}
}

func TestNormalize_Trade_UppercasesLowerCaseSymbol(t *testing.T) {
	raw := []byte(`{"type":"trade","symbol":"aapl","price":189.23,"size":100,"timestamp":"2026-08-03T14:00:00Z"}`)

	trade, _, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if trade.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", trade.Symbol)
	}
}

func TestNormalize_Bar(t *testing.T) {
	raw := []byte(`{"type":"bar","symbol":"AAPL","open":189,"high":190,"low":188.5,"close":189.5,"volume":10000,"trade_count":42,"timeframe":"1m","timestamp":"2026-08-03T14:00:00Z"}`)

	_, bar, kind, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if kind != models.FrameKindBar {
		t.Fatalf("kind = %q, want %q", kind, models.FrameKindBar)
	}
	if bar.TradeCount != 42 {
		t.Errorf("TradeCount = %d, want 42", bar.TradeCount)
	}
	if err := bar.Validate(); err != nil {
		t.Errorf("normalized bar failed Validate(): %v", err)
	}
}

func TestNormalize_Control(t *testing.T) {
	raw := []byte(`{"type":"control","code":"AUTH"}`)

	_, _, kind, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if kind != models.FrameKindControl {
		t.Fatalf("kind = %q, want %q", kind, models.FrameKindControl)
	}
}

func TestNormalize_UnknownKind(t *testing.T) {
	raw := []byte(`{"type":"bogus"}`)
	if _, _, _, err := Normalize(raw); err == nil {
		t.Error("Normalize() with unknown kind: want error, got nil")
	}
}
