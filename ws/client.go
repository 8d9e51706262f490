package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait = 10 * time.Second

	// pongWait allows three missed 30s heartbeats.
	pongWait = 90 * time.Second

	// The feed is server -> client; inbound messages are heartbeats only.
	maxMessageSize = 1024

	sendBufferSize = 64
)

// Client is one WebSocket connection. ReadPump and WritePump run in separate
// goroutines because gorilla/websocket allows one concurrent reader and one
// concurrent writer.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	mu     sync.Mutex // guards conn writes
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump reads until the connection fails, then unregisters the client.
//
// Heartbeats:
// The browser sends {"op":"heartbeat"} every 30 seconds and each one pushes
// the read deadline pongWait further out. A client that goes quiet (sleeping
// laptop, dropped network) hits the deadline, ReadMessage fails, and the
// deferred Unregister removes it from the hub. A connection closed on the
// server side (Hub.DisconnectUser, Shutdown) ends up on the same path.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("unexpected close", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.hub.log.Debug("invalid message", zap.String("user_id", c.userID), zap.Error(err))
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
		c.writeEvent(Event{Op: OpHeartbeatAck})
	default:
		c.hub.log.Debug("unknown op", zap.String("user_id", c.userID), zap.String("op", event.Op))
	}
}

// writeEvent writes straight to the socket. The send channel belongs to the
// hub, which may close it at any time.
func (c *Client) writeEvent(event Event) {
	data, ok := c.hub.encode(event)
	if !ok {
		return
	}
	if err := c.writeMessage(websocket.TextMessage, data); err != nil {
		c.hub.log.Debug("write failed", zap.String("user_id", c.userID), zap.Error(err))
	}
}

// WritePump writes queued messages until the hub closes the send channel.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.writeMessage(websocket.CloseMessage, nil)
}

func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
