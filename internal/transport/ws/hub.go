// Package ws streams display events to WebSocket subscribers.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/invman/internal/domain/event"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type client struct {
	item string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans display events out to the subscribers of each item.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Publish implements display.Sink. Slow subscribers drop events instead of
// blocking the tracker.
func (h *Hub) Publish(_ context.Context, e event.Event) error {
	data, err := event.Encode(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.item != e.Item {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping event for slow subscriber",
				zap.String("item", c.item),
				zap.String("remote", c.conn.RemoteAddr().String()),
			)
		}
	}
	return nil
}

// Serve upgrades the request and streams events of item until the peer disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, item string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{item: item, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	h.logger.Debug("Subscriber connected", zap.String("item", item))

	go h.writePump(c)
	h.readPump(c)
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

// Disconnect closes the streams of one item.
func (h *Hub) Disconnect(item string) {
	h.mu.Lock()
	var gone []*client
	for c := range h.clients {
		if c.item == item {
			gone = append(gone, c)
			delete(h.clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range gone {
		close(c.send)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// remove reports whether c was still registered; only the remover closes send.
func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	return true
}

// readPump discards inbound messages and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		if h.remove(c) {
			close(c.send)
		}
		_ = c.conn.Close()
		h.logger.Debug("Subscriber disconnected", zap.String("item", c.item))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
