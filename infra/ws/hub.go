package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kilianp07/battsim/infra/logger"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Client is a connected WebSocket client. An empty filter receives every
// simulation.
type Client struct {
	conn   *websocket.Conn
	filter string
	send   chan Message
	log    logger.Logger
}

func newClient(conn *websocket.Conn, filter string, log logger.Logger) *Client {
	return &Client{conn: conn, filter: filter, send: make(chan Message, sendBuffer), log: log}
}

func (c *Client) wants(msg Message) bool {
	return c.filter == "" || c.filter == msg.Simulation
}

// Hub tracks connected clients and broadcasts messages to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Hub{clients: make(map[*Client]struct{}), log: log}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Debugf("websocket client connected (filter %q)", c.filter)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.log.Debugf("websocket client disconnected")
}

// Broadcast queues msg for every interested client. Clients with a full
// buffer miss the message.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.Warnf("websocket client buffer full, dropping %s of %s", msg.Type, msg.Simulation)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, msg)
			cancel()
			if err != nil {
				c.log.Debugf("websocket write: %v", err)
				return
			}
		}
	}
}

// readPump drains client frames until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
