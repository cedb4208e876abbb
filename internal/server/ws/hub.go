// Package ws bridges the in-process order event bus to WebSocket clients.
// Each connection tracks exactly one order: the client connects with
// ?order_id=..., receives every status transition for that order as a JSON
// text frame, and is closed once the order reaches a terminal state.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solroute/swapd/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 512

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 16
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// EventBus is the subscription surface the hub needs from the order bus.
type EventBus interface {
	Subscribe(orderID string) (<-chan domain.OrderEvent, func())
}

// OrderGetter looks up the current state of an order, used to send a snapshot
// on connect so late subscribers still see where the order stands.
type OrderGetter interface {
	Get(ctx context.Context, orderID string) (domain.Order, error)
}

// Hub manages per-order WebSocket subscriptions.
type Hub struct {
	bus    EventBus
	orders OrderGetter
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a Hub that serves order updates from the given bus.
func NewHub(bus EventBus, orders OrderGetter, logger *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		orders:  orders,
		logger:  logger.With(slog.String("component", "ws")),
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every open connection.
// It should be called in a goroutine alongside the HTTP server.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	for c := range h.clients {
		c.unsubscribe()
		c.conn.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()

	return ctx.Err()
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleWS upgrades an HTTP request to a WebSocket connection subscribed to a
// single order's updates.
// GET /ws?order_id=...
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		http.Error(w, `{"error":"order_id query parameter required"}`, http.StatusBadRequest)
		return
	}

	// Subscribe before reading the snapshot. A transition published while
	// the snapshot loads is then buffered on the subscription instead of
	// being lost; at worst the client sees it twice, which is harmless.
	events, unsubscribe := h.bus.Subscribe(orderID)

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		unsubscribe()
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, `{"error":"order not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"failed to load order"}`, http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		events:      events,
		unsubscribe: unsubscribe,
		orderID:     orderID,
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("order_id", orderID),
		slog.Int("total_clients", total),
	)

	go c.forward(snapshotEvent(order))
	go c.writePump()
	go c.readPump()
}

// drop removes a client from the hub's registry.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client disconnected",
		slog.String("order_id", c.orderID),
		slog.Int("total_clients", total),
	)
}

// snapshotEvent converts the stored order into the event sent on connect.
func snapshotEvent(o domain.Order) domain.OrderEvent {
	return domain.OrderEvent{
		OrderID:        o.ID,
		Status:         o.Status,
		Venue:          o.Venue,
		TxHash:         o.TxHash,
		ExecutionPrice: o.ExecutionPrice,
		ErrorReason:    o.ErrorReason,
	}
}

// client represents a single WebSocket connection tracking one order.
type client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	events      <-chan domain.OrderEvent
	unsubscribe func()
	orderID     string
}

// forward marshals order events into the send channel, starting with the
// snapshot taken at connect time. It closes the send channel once the order
// reaches a terminal state so the write pump can finish the close handshake.
func (c *client) forward(snapshot domain.OrderEvent) {
	defer close(c.send)

	if !c.push(snapshot) || snapshot.Status.Terminal() {
		return
	}

	for evt := range c.events {
		if !c.push(evt) {
			return
		}
		if evt.Status.Terminal() {
			return
		}
	}
}

// push marshals and queues a single event. It returns false when the client
// is too slow to keep up, in which case the connection is torn down.
func (c *client) push(evt domain.OrderEvent) bool {
	data, err := json.Marshal(evt)
	if err != nil {
		c.hub.logger.Error("marshal event failed",
			slog.String("order_id", c.orderID),
			slog.String("error", err.Error()),
		)
		return true
	}

	select {
	case c.send <- data:
		return true
	default:
		c.hub.logger.Warn("dropping slow client", slog.String("order_id", c.orderID))
		return false
	}
}

// readPump consumes incoming frames. Clients send nothing meaningful; the
// pump exists to process pongs and detect disconnects.
func (c *client) readPump() {
	defer func() {
		c.unsubscribe()
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("order_id", c.orderID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump pumps queued events to the WebSocket connection as JSON text
// frames and sends periodic ping frames for keepalive. When the send channel
// is drained and closed it performs the close handshake.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
