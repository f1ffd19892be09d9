package hub

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-watchlist/cmd/internal/protocol"
)

// roomPrefix namespaces symbol rooms in the subscribers map so a future
// non-symbol room kind can't collide with a ticker.
const roomPrefix = "symbol:"

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// Hub tracks room membership for connected clients and fans out
// broadcast events. It has no upstream feed dependency of its own: the
// Fan-out Bridge and the mock emitter both drive it through Broadcast/
// BroadcastToSymbol.
type Hub struct {
	subscribers map[string]map[ClientInterface]bool
	clientSubs  map[ClientInterface]map[string]bool

	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[ClientInterface]bool),
		clientSubs:  make(map[ClientInterface]map[string]bool),
		logger:      logger,
	}
}

// Register adds a newly-connected client and sends its connected frame.
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	h.clientSubs[client] = make(map[string]bool)
	h.mu.Unlock()

	client.SendJSON(protocol.WSResponse{
		Type: protocol.FrameConnected,
		Data: protocol.ConnectedFrame{
			Type:         protocol.FrameConnected,
			Message:      "connected",
			ConnectionID: client.ID(),
			Timestamp:    time.Now().UTC().UnixMilli(),
		},
	})
}

func room(ticker string) string {
	return roomPrefix + ticker
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req, validTickers)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sym := req.Payload.Ticker
	if !validTickers[sym] {
		h.sendError(client, req.ID, "No valid/new symbol provided")
		return
	}
	if h.clientSubs[client][sym] {
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %s", sym)) // idempotent: already joined
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}

	h.clientSubs[client][sym] = true
	r := room(sym)
	if h.subscribers[r] == nil {
		h.subscribers[r] = make(map[ClientInterface]bool)
	}
	h.subscribers[r][client] = true

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %s", sym))
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sym := req.Payload.Ticker
	subs := h.clientSubs[client]
	if subs[sym] {
		delete(subs, sym)
		delete(h.subscribers[room(sym)], client)
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Unsubscribed from %s", sym))
		return
	}
	h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %s", sym))
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sym := range h.clientSubs[client] {
		delete(h.subscribers[room(sym)], client)
	}
	h.clientSubs[client] = make(map[string]bool)
	h.sendAck(client, req.ID, "success", "Unsubscribed from all symbols")
}

// Unregister releases every room membership held by client and closes it.
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	for sym := range h.clientSubs[client] {
		delete(h.subscribers[room(sym)], client)
	}
	delete(h.clientSubs, client)
	h.mu.Unlock()

	client.Close()
}

// Broadcast emits payload, tagged with event, to every connected client.
func (h *Hub) Broadcast(event string, payload json.RawMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := protocol.WSResponse{Type: event, Data: payload}
	b, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("marshal broadcast frame", zap.Error(err))
		return
	}
	seen := make(map[ClientInterface]bool)
	for _, clients := range h.subscribers {
		for c := range clients {
			if !seen[c] {
				seen[c] = true
				c.SendBytes(b)
			}
		}
	}
	for c := range h.clientSubs {
		if !seen[c] {
			seen[c] = true
			c.SendBytes(b)
		}
	}
}

// BroadcastToSymbol emits payload, tagged with event, to clients in
// room symbol:<TICKER>. ticker is upper-cased before lookup.
func (h *Hub) BroadcastToSymbol(ticker, event string, payload json.RawMessage) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscribers[room(ticker)]
	if !ok {
		return
	}
	resp := protocol.WSResponse{Type: event, Data: payload}
	b, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("marshal broadcast frame", zap.Error(err), zap.String("symbol", ticker))
		return
	}
	for c := range clients {
		c.SendBytes(b)
	}
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: "ack", ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: "error", ID: id, Message: msg})
}
