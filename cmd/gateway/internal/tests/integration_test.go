package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gobwas/ws"
	"github.com/gorilla/websocket" // Using Gorilla for the test CLIENT
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/stock-watchlist/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
	"github.com/shubham-shewale/stock-watchlist/pkg/broadcast"
)

func startServer(t *testing.T) (*httptest.Server, *miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	wsHub := hub.NewHub(zap.NewNop())
	validTickers := map[string]bool{"AAPL": true, "MSFT": true}

	sub := broadcast.NewSubscriber(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	go sub.Run(ctx, func(payload []byte) {
		var frame protocol.BroadcastFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			return
		}
		wsHub.BroadcastToSymbol(frame.Symbol, frame.Type, frame.Data)
		if frame.Global {
			wsHub.Broadcast(frame.Type, frame.Data)
		}
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		client := gateway.NewClient(conn, wsHub, zap.NewNop(), validTickers)
		client.Start()
	}))

	t.Cleanup(func() {
		cancel()
		sub.Close()
		rdb.Close()
	})

	return server, mr, rdb
}

func connectWS(t *testing.T, serverURL string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(serverURL, "http")
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect to websocket: %v", err)
	}
	return wsConn
}

func publishFrame(t *testing.T, rdb *redis.Client, symbol, event, data string) {
	frame := protocol.BroadcastFrame{Type: event, Symbol: symbol, Data: json.RawMessage(data)}
	payload, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	pub := broadcast.NewPublisher(rdb)
	if err := pub.Publish(context.Background(), payload); err != nil {
		t.Fatalf("publish frame: %v", err)
	}
}

func TestEndToEnd_FullFlow(t *testing.T) {
	server, mr, rdb := startServer(t)
	defer server.Close()
	defer mr.Close()

	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()

	// connected frame arrives unprompted.
	_, msg, err := wsConn.ReadMessage()
	if err != nil {
		t.Fatalf("expected connected frame: %v", err)
	}
	if !strings.Contains(string(msg), protocol.FrameConnected) {
		t.Errorf("expected connected frame, got: %s", msg)
	}

	subMsg := `{"action": "subscribe", "payload": "AAPL", "id": "t1"}`
	wsConn.WriteMessage(websocket.TextMessage, []byte(subMsg))

	_, msg, _ = wsConn.ReadMessage()
	if !strings.Contains(string(msg), "success") {
		t.Errorf("Expected subscription success, got: %s", msg)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		publishFrame(t, rdb, "AAPL", protocol.FrameTradeUpdate, `{"symbol":"AAPL","price":"150.5"}`)
	}()

	wsConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err = wsConn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to receive broadcast: %v", err)
	}
	if !strings.Contains(string(msg), "150.5") {
		t.Errorf("Expected price 150.5, got: %s", msg)
	}

	unsubMsg := `{"action": "unsubscribe", "payload": {"symbol": "AAPL"}, "id": "t2"}`
	wsConn.WriteMessage(websocket.TextMessage, []byte(unsubMsg))

	_, msg, _ = wsConn.ReadMessage()
	if !strings.Contains(string(msg), "Unsubscribed") {
		t.Errorf("Expected unsubscribe ack, got: %s", msg)
	}
}

func TestEndToEnd_InvalidJSON(t *testing.T) {
	server, mr, _ := startServer(t)
	defer server.Close()
	defer mr.Close()
	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()

	wsConn.ReadMessage() // drain connected frame

	wsConn.WriteMessage(websocket.TextMessage, []byte(`{ "action": "subsc`))

	_, msg, _ := wsConn.ReadMessage()
	if !strings.Contains(string(msg), "Invalid JSON") && !strings.Contains(string(msg), "error") {
		t.Errorf("Expected error message for bad JSON, got: %s", msg)
	}
}

func TestEndToEnd_MaxMessageSize(t *testing.T) {
	server, mr, _ := startServer(t)
	defer server.Close()
	defer mr.Close()
	wsConn := connectWS(t, server.URL)
	defer wsConn.Close()

	wsConn.ReadMessage() // drain connected frame

	hugePayload := strings.Repeat("a", 513*1024)
	hugeMsg := fmt.Sprintf(`{"action":"subscribe", "payload": "%s"}`, hugePayload)

	err := wsConn.WriteMessage(websocket.TextMessage, []byte(hugeMsg))
	// Depending on timing, write might succeed, but Read should fail (Disconnect)
	if err == nil {
		wsConn.SetReadDeadline(time.Now().Add(1 * time.Second))
		_, _, err := wsConn.ReadMessage()
		if err == nil {
			t.Error("Server should have closed connection for huge message, but it stayed open")
		}
	}
}
