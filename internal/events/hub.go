package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"PixRelay/internal/models"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	orderID string
}

// Hub pushes status changes to websocket subscribers of a single order.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

// ServeWS upgrades the request and subscribes it to orderID. The current
// status is sent immediately.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, orderID string, current models.OrderStatus) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "order_id", orderID, "err", err)
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, 16),
		orderID: orderID,
	}
	h.register(c)
	go h.writePump(c)
	go h.readPump(c)

	if msg, err := json.Marshal(NewStatusEvent(orderID, current)); err == nil {
		h.deliver(c, msg)
	}
}

func (h *Hub) OrderStatusChanged(_ context.Context, orderID string, status models.OrderStatus) {
	msg, err := json.Marshal(NewStatusEvent(orderID, status))
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[orderID] {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(c)
		}
	}
}

// Subscribers returns the number of open streams for orderID.
func (h *Hub) Subscribers(orderID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[orderID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.orderID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.orderID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) deliver(c *client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.orderID][c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		h.removeLocked(c)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	set, ok := h.clients[c.orderID]
	if !ok {
		return
	}
	if _, exists := set[c]; exists {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.orderID)
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
