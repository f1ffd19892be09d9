package hub_test

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/testutils"
)

var validTickers = map[string]bool{"AAPL": true, "TSLA": true, "GOOG": true}

func TestHub_Subscribe_Success(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")

	req := protocol.WSRequest{
		Action:  protocol.ActionSubscribe,
		Payload: testutils.Ticker("AAPL"),
		ID:      "req-1",
	}
	h.HandleCommand(client, req, validTickers)

	if client.LastMsgType() != "ack" {
		t.Errorf("Expected ack, got %s", client.LastMsgType())
	}

	h.BroadcastToSymbol("AAPL", protocol.FrameTradeUpdate, json.RawMessage(`{"price":1}`))
	if len(client.RawBytes) != 1 {
		t.Errorf("client should have received 1 broadcast, got %d", len(client.RawBytes))
	}
}

func TestHub_Subscribe_InvalidTicker(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")

	req := protocol.WSRequest{
		Action:  protocol.ActionSubscribe,
		Payload: testutils.Ticker("INVALID_STOCK"),
		ID:      "req-2",
	}
	h.HandleCommand(client, req, validTickers)

	lastMsg := client.Messages[len(client.Messages)-1]
	if lastMsg.Type != "error" {
		t.Errorf("Expected error for subscribing to an unrecognized ticker, got %s", lastMsg.Type)
	}
}

func TestHub_Subscribe_Idempotency(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")
	req := protocol.WSRequest{Action: protocol.ActionSubscribe, Payload: testutils.Ticker("AAPL")}

	h.HandleCommand(client, req, validTickers)
	h.HandleCommand(client, req, validTickers)

	h.BroadcastToSymbol("AAPL", protocol.FrameTradeUpdate, json.RawMessage(`{}`))
	if len(client.RawBytes) != 1 {
		t.Errorf("resubscribing should not duplicate room membership, got %d deliveries", len(client.RawBytes))
	}
}

func TestHub_Unsubscribe_Logic(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionSubscribe, Payload: testutils.Ticker("AAPL"),
	}, validTickers)
	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionSubscribe, Payload: testutils.Ticker("TSLA"),
	}, validTickers)

	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionUnsubscribe, Payload: testutils.Ticker("AAPL"),
	}, validTickers)

	h.BroadcastToSymbol("AAPL", protocol.FrameTradeUpdate, json.RawMessage(`{}`))
	h.BroadcastToSymbol("TSLA", protocol.FrameTradeUpdate, json.RawMessage(`{}`))

	if len(client.RawBytes) != 1 {
		t.Errorf("expected only the TSLA broadcast to reach client, got %d deliveries", len(client.RawBytes))
	}
}

func TestHub_Unsubscribe_NotSubscribed(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionUnsubscribe, Payload: testutils.Ticker("GOOG"),
		ID: "err-check",
	}, validTickers)

	lastMsg := client.Messages[len(client.Messages)-1]
	if lastMsg.Type != "error" {
		t.Errorf("Expected error response for unsubscribing non-watched symbol")
	}
}

func TestHub_UnsubscribeAll(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")

	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionSubscribe, Payload: testutils.Ticker("AAPL"),
	}, validTickers)
	h.HandleCommand(client, protocol.WSRequest{
		Action: protocol.ActionSubscribe, Payload: testutils.Ticker("TSLA"),
	}, validTickers)

	h.HandleCommand(client, protocol.WSRequest{Action: protocol.ActionUnsubscribeAll}, validTickers)

	h.BroadcastToSymbol("AAPL", protocol.FrameTradeUpdate, json.RawMessage(`{}`))
	h.BroadcastToSymbol("TSLA", protocol.FrameTradeUpdate, json.RawMessage(`{}`))

	if len(client.RawBytes) != 0 {
		t.Errorf("expected no deliveries after unsubscribe_all, got %d", len(client.RawBytes))
	}
}

func TestHub_Broadcast_ReachesEveryConnectedClient(t *testing.T) {
	h := hub.NewHub(zap.NewNop())
	a := testutils.NewMockClient("a")
	b := testutils.NewMockClient("b")
	h.Register(a)
	h.Register(b)

	h.Broadcast(protocol.FrameBarUpdate, json.RawMessage(`{}`))

	if len(a.RawBytes) != 1 || len(b.RawBytes) != 1 {
		t.Errorf("global broadcast should reach every registered client")
	}
}

func TestHub_RaceCondition(t *testing.T) {
	// Run with `go test -race ./...`
	h := hub.NewHub(zap.NewNop())
	client := testutils.NewMockClient("c1")

	go func() {
		h.HandleCommand(client, protocol.WSRequest{Action: protocol.ActionSubscribe, Payload: testutils.Ticker("AAPL")}, validTickers)
	}()
	go func() {
		h.HandleCommand(client, protocol.WSRequest{Action: protocol.ActionUnsubscribe, Payload: testutils.Ticker("AAPL")}, validTickers)
	}()
	go func() {
		h.Unregister(client)
	}()
}
