package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func startFakeUpstream(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Keep the connection open briefly so the client can drain frames
		// before the handler returns and the socket closes.
		time.Sleep(200 * time.Millisecond)
	}))
	return server
}

func TestRun_DeliversFramesToHandler(t *testing.T) {
	frames := []string{
		`{"type":"trade","symbol":"AAPL","price":189.23,"size":100,"timestamp":"2026-08-03T14:00:00Z"}`,
		`{"type":"trade","symbol":"GOOG","price":2800.5,"size":10,"timestamp":"2026-08-03T14:00:01Z"}`,
	}
	server := startFakeUpstream(t, frames)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	var mu sync.Mutex
	var received []string

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	Run(ctx, url, "", "", zap.NewNop(), func(raw []byte) error {
		mu.Lock()
		received = append(received, string(raw))
		mu.Unlock()
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d frames, want 2: %v", len(received), received)
	}
}
