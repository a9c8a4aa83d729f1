package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is a single websocket connection. Outbound messages go
// through the buffered send channel so only writePump touches the
// connection.
type Client struct {
	ID string

	hub  *Hub
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 64),
	}
}

// Send queues an already-encoded frame. Slow consumers get dropped
// rather than blocking the hub. Frames sent to a closed client are
// discarded; the client may still be room-addressed until its read
// pump unwinds and unregisters it.
func (c *Client) Send(msg []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- msg:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		log.Printf("[ws] conn %s send buffer full, closing", c.ID)
		c.Close()
	}
}

// Close tears the connection down. Safe to call more than once and
// concurrently with Send: the channel is only written under the same
// lock that guards the closed flag.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] conn %s read error: %v", c.ID, err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.Send(envelope(EventError, ErrorPayload{Message: "invalid message"}))
			continue
		}
		c.hub.handleMessage(c, &env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func envelope(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("[ws] marshal %s payload: %v", event, err)
		return nil
	}
	out, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		log.Printf("[ws] marshal %s envelope: %v", event, err)
		return nil
	}
	return out
}
