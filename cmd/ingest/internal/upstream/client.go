// Package upstream dials the upstream market-data feed and normalizes
// its frames into models.Trade and models.Bar, reconnecting with
// backoff whenever the connection drops.
package upstream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PingTimeout is how long without a pong before a connection is
// considered stale and torn down for reconnect.
const PingTimeout = 30 * time.Second

// WriteTimeout bounds control-frame writes (ping/close).
const WriteTimeout = 5 * time.Second

// heartbeatInterval is how often the client pings the upstream server.
const heartbeatInterval = 15 * time.Second

// Client holds a single upstream WebSocket connection and exposes its
// raw message and terminal-error channels.
type Client struct {
	url    string
	key    string
	secret string
	logger *zap.Logger

	conn *websocket.Conn

	writeMu sync.Mutex

	mu         sync.RWMutex
	lastPingAt time.Time

	messages chan []byte
	errors   chan error
	done     chan struct{}
	closeOnce sync.Once
}

// NewClient constructs an unconnected Client. Call Connect before using
// Messages/Errors.
func NewClient(url, key, secret string, logger *zap.Logger) *Client {
	return &Client{
		url:      url,
		key:      key,
		secret:   secret,
		logger:   logger,
		messages: make(chan []byte, 1024),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect dials the upstream feed and starts the read and heartbeat
// loops. It returns once the handshake completes; message delivery
// happens asynchronously on Messages().
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	if c.key != "" {
		header.Set("X-Api-Key", c.key)
	}
	if c.secret != "" {
		header.Set("X-Api-Secret", c.secret)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPingAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Info("upstream connected", zap.String("url", c.url))
	return nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn != nil {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			err = conn.Close()
		}
	})
	return err
}

// Messages returns the channel of raw frame payloads.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// Errors returns the channel of terminal connection errors. A value
// here means the connection is already dead; the caller should Close
// and reconnect.
func (c *Client) Errors() <-chan error {
	return c.errors
}

func (c *Client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			default:
			}
			return
		}

		select {
		case c.messages <- data:
		case <-c.done:
			return
		default:
			c.logger.Warn("upstream message buffer full, dropping frame")
		}
	}
}

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
			}

			c.mu.RLock()
			last := c.lastPingAt
			c.mu.RUnlock()
			if time.Since(last) > PingTimeout {
				c.logger.Warn("upstream connection stale, forcing reconnect")
				select {
				case c.errors <- errStale:
				default:
				}
				return
			}
		}
	}
}
