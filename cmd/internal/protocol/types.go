package protocol

import "encoding/json"

const (
	ActionSubscribe      = "subscribe"
	ActionUnsubscribe    = "unsubscribe"
	ActionUnsubscribeAll = "unsubscribe_all"
)

// Broadcast frame types pushed from gateway to client, unprompted.
const (
	FrameConnected   = "connected"
	FrameTradeUpdate = "trade_update"
	FrameBarUpdate   = "bar_update"
)

type WSRequest struct {
	Action  string           `json:"action"`
	Payload SubscribeCommand `json:"payload"`
	ID      string           `json:"id,omitempty"`
}

type WSResponse struct {
	Type    string      `json:"type"`             // "ack", "error", "connected", "trade_update", "bar_update"
	ID      string      `json:"id,omitempty"`     // Matches request ID
	Status  string      `json:"status,omitempty"` // "success", "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ConnectedFrame announces a new connection's id right after the
// WebSocket handshake completes.
type ConnectedFrame struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	ConnectionID string `json:"connection_id"`
	Timestamp    int64  `json:"timestamp"`
}

// BroadcastFrame is a trade_update or bar_update pushed through
// pkg/broadcast from the Fan-out Bridge, carrying the symbol so the Hub
// can route it to the right room without re-parsing Data.
type BroadcastFrame struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Global bool            `json:"global"`
	Data   json.RawMessage `json:"data"`
}
