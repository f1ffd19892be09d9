package testutils

import (
	"sync"
	"testing"

	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
)

// MockClient simulates a connected websocket client.
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // decoded JSON messages (SendJSON)
	RawBytes []string              // raw bytes (SendBytes)
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Errorf("Assertion failed: %s", msg)
	}
}

// Ticker builds a SubscribeCommand payload for a single ticker, the
// shape most hub tests need.
func Ticker(t string) protocol.SubscribeCommand {
	return protocol.SubscribeCommand{Ticker: t}
}
