package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/protocol"
)

// writeTimeout bounds a single outbound frame write.
const writeTimeout = 10 * time.Second

// sendBufferSize is the per-client outbound queue. A client that cannot
// drain it fast enough has messages dropped, not the connection stalled.
const sendBufferSize = 256

// Client represents a single connected WebSocket client. The identity and
// profile snapshot are bound once during the handshake and never change for
// the life of the connection.
type Client struct {
	sessionID string
	userID    string
	profile   domain.Profile

	conn *websocket.Conn

	mu   sync.RWMutex
	send chan []byte
}

// newClient wraps an accepted connection. The caller starts writePump.
func newClient(sessionID, userID string, profile domain.Profile, conn *websocket.Conn) *Client {
	return &Client{
		sessionID: sessionID,
		userID:    userID,
		profile:   profile,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
	}
}

// SessionID is the unique transport-session identifier.
func (c *Client) SessionID() string { return c.sessionID }

// UserID is the authenticated user identity bound at handshake time.
func (c *Client) UserID() string { return c.userID }

// Profile is the cached profile snapshot captured at handshake time.
func (c *Client) Profile() domain.Profile { return c.profile }

// Send marshals an event envelope and queues it for delivery. It never
// blocks: if the client's buffer is full the message is dropped, matching
// the best-effort delivery contract.
func (c *Client) Send(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal outbound payload", "event", event, "userID", c.userID, "error", err)
		return
	}
	frame, err := json.Marshal(protocol.Envelope{Event: event, Payload: raw})
	if err != nil {
		slog.Error("Failed to marshal outbound envelope", "event", event, "userID", c.userID, "error", err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// A nil channel means the client is already shut down.
	if c.send == nil {
		return
	}

	select {
	case c.send <- frame:
	default:
		slog.Warn("Client send buffer full, dropping message", "event", event, "userID", c.userID, "sessionID", c.sessionID)
	}
}

// Close terminates the connection with a reason. Used to evict a superseded
// session; the connection's own read loop observes the closure and runs the
// normal disconnect cleanup.
func (c *Client) Close(reason string) {
	if c.conn != nil {
		c.conn.Close(websocket.StatusPolicyViolation, reason)
	}
}

// shutdown closes the send channel, terminating the write pump. Safe to call
// once, after the read loop has exited.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}

// writePump pumps messages from the send channel to the WebSocket
// connection. It exits when the channel is closed or a write fails.
func (c *Client) writePump() {
	defer func() {
		if c.conn != nil {
			c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")
		}
	}()

	c.mu.RLock()
	send := c.send
	c.mu.RUnlock()
	if send == nil {
		return
	}

	for frame := range send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "userID", c.userID, "sessionID", c.sessionID, "error", err)
			return
		}
	}
}
