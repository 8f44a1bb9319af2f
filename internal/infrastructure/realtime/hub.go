package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kirillkom/legal-dashboard/internal/core/domain"
)

// Gauge is the subset of a prometheus gauge the hub reports into.
type Gauge interface {
	Set(float64)
}

type Options struct {
	HeartbeatInterval time.Duration
	AllowedOrigins    []string
	Connections       Gauge
	// UserID resolves the authenticated user for an upgrade request.
	UserID func(r *http.Request) string
}

// Hub owns the set of websocket clients. Client membership changes only in
// the Run goroutine; Stats reads under the RWMutex.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader  websocket.Upgrader
	heartbeat time.Duration
	gauge     Gauge
	userID    func(r *http.Request) string
}

func NewHub(options Options) *Hub {
	heartbeat := options.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		heartbeat:  heartbeat,
		gauge:      options.Connections,
		userID:     options.UserID,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(options.AllowedOrigins),
	}
	return h
}

func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.reportConnections()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.reportConnections()
			h.sendTo(c, mustEncode(domain.NewEvent(domain.EventConnected, map[string]any{
				"clientId": c.id,
			})))
			slog.Info("websocket_connected", "client_id", c.id, "user_id", c.userID)

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			if ok {
				h.reportConnections()
				h.fanOut(mustEncode(domain.NewEvent(domain.EventDisconnected, map[string]any{
					"clientId": c.id,
				})))
				slog.Info("websocket_disconnected", "client_id", c.id)
			}

		case msg := <-h.broadcast:
			h.fanOut(msg)

		case <-ticker.C:
			h.fanOut(heartbeatEvent(map[string]any{"connections": h.Stats().Total}))
		}
	}
}

// Publish queues an event for every connected client.
func (h *Hub) Publish(ctx context.Context, event domain.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Stats() domain.ConnectionStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return domain.ConnectionStats{Total: len(h.clients)}
}

// ServeHTTP upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket_upgrade_failed", "error", err)
		return
	}
	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if h.userID != nil {
		c.userID = h.userID(r)
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// fanOut drops clients whose send buffer is full.
func (h *Hub) fanOut(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			slog.Warn("websocket_client_dropped", "client_id", c.id)
		}
	}
}

func (h *Hub) sendTo(c *client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) reportConnections() {
	if h.gauge != nil {
		h.gauge.Set(float64(h.Stats().Total))
	}
}

func heartbeatEvent(data map[string]any) []byte {
	return mustEncode(domain.NewEvent(domain.EventHeartbeat, data))
}

func mustEncode(event domain.Event) []byte {
	payload, err := json.Marshal(event)
	if err != nil {
		return []byte(`{"type":"` + string(event.Type) + `"}`)
	}
	return payload
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
