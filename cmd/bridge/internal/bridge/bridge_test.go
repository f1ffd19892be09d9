package bridge_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/bridge/internal/bridge"
	"github.com/shubham-shewale/stock-watchlist/cmd/bridge/internal/testutils"
	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
	"github.com/shubham-shewale/stock-watchlist/pkg/streamlog"
)

func tradeEntry(id, symbol string) streamlog.Entry {
	return streamlog.Entry{
		Stream: streamlog.StreamTrades,
		ID:     id,
		Symbol: symbol,
		Data:   `{"type":"trade","symbol":"` + symbol + `","price":"150.25"}`,
	}
}

func TestBridge_DispatchesAndAcksValidEntries(t *testing.T) {
	reader := &testutils.MockStreamReader{Entries: []streamlog.Entry{tradeEntry("1-0", "AAPL")}}
	pub := &testutils.MockPublisher{}
	b := bridge.New(reader, pub, zap.NewNop(), false)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	b.Run(ctx)

	pub.Mu.Lock()
	defer pub.Mu.Unlock()
	if len(pub.Published) != 1 {
		t.Fatalf("published %d frames, want 1", len(pub.Published))
	}
	var frame protocol.BroadcastFrame
	if err := json.Unmarshal(pub.Published[0], &frame); err != nil {
		t.Fatalf("published invalid json: %v", err)
	}
	if frame.Type != protocol.FrameTradeUpdate || frame.Symbol != "AAPL" {
		t.Errorf("frame = %+v, want trade_update/AAPL", frame)
	}

	reader.Mu.Lock()
	defer reader.Mu.Unlock()
	if len(reader.Acked) != 1 || reader.Acked[0] != "1-0" {
		t.Errorf("Acked = %v, want [1-0]", reader.Acked)
	}
}

func TestBridge_DropsMalformedEntryWithoutPublishing(t *testing.T) {
	bad := streamlog.Entry{Stream: streamlog.StreamTrades, ID: "2-0", Symbol: "", Data: "{}"}
	reader := &testutils.MockStreamReader{Entries: []streamlog.Entry{bad}}
	pub := &testutils.MockPublisher{}
	b := bridge.New(reader, pub, zap.NewNop(), false)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	b.Run(ctx)

	pub.Mu.Lock()
	published := len(pub.Published)
	pub.Mu.Unlock()
	if published != 0 {
		t.Errorf("expected no publish for malformed entry, got %d", published)
	}

	reader.Mu.Lock()
	defer reader.Mu.Unlock()
	if len(reader.Acked) != 1 {
		t.Errorf("malformed entry should still be acked and dropped")
	}
}

func TestBridge_PublishFailureLeavesEntryPendingAndDegrades(t *testing.T) {
	var entries []streamlog.Entry
	for i := 0; i < 6; i++ {
		entries = append(entries, tradeEntry("x", "AAPL"))
	}
	reader := &testutils.MockStreamReader{Entries: entries}
	pub := &testutils.MockPublisher{FailAll: true}
	b := bridge.New(reader, pub, zap.NewNop(), false)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	b.Run(ctx)

	reader.Mu.Lock()
	acked := len(reader.Acked)
	reader.Mu.Unlock()
	if acked != 0 {
		t.Errorf("entries should stay pending on publish failure, got %d acked", acked)
	}
	if b.Healthy() {
		t.Error("Healthy() = true, want false after repeated publish failures")
	}
}
