package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chargersim/internal/providers"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	sendQueueSize = 32
)

// client is one connected app. Outbound frames go through the buffered send
// queue; a slow consumer drops frames instead of blocking the hub.
type client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, conn *websocket.Conn, hub *Hub) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		hub:  hub,
	}
}

// enqueue queues a frame for delivery. Frames are dropped when the queue is
// full or the client is already gone; senders hold no guarantee the client is
// still registered, so a late frame must never panic on the closed queue.
func (c *client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warnf(providers.TypeWs, "Client %s send queue full, dropping message", c.id)
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) readPump() {
	defer c.hub.unregister(c)

	if c.hub.conf.WebSocket.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.hub.conf.WebSocket.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnf(providers.TypeWs, "Client %s read error: %s", c.id, err)
			}
			return
		}
		handler := c.hub.messageHandler()
		if handler == nil {
			continue
		}
		if reply := handler(c.id, data); reply != nil {
			c.enqueue(reply)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
