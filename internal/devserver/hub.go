package devserver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/domain/user"

	"github.com/gorilla/websocket"
)

const hubWriteWait = 10 * time.Second

// client is one authenticated realtime connection. Writes go through the
// mutex because broadcast fanout and ack replies come from different
// goroutines.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
	role user.Role
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
	return c.conn.WriteJSON(v)
}

// Hub tracks active realtime connections keyed by user ID. A reconnect
// under the same ID displaces the previous connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]*client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]*client),
		logger:  logger,
	}
}

func (h *Hub) Add(ctx context.Context, userID int64, role user.Role, conn *websocket.Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[userID]; ok {
		_ = old.conn.Close()
	}
	c := &client{conn: conn, role: role}
	h.clients[userID] = c
	log.Info(ctx, h.logger, "ws_registered", "Realtime client connected", slog.Int64("user_id", userID), slog.String("role", string(role)))
	return c
}

// Remove drops the connection only if it is still the registered one for
// that user. A displaced connection must not unregister its successor.
func (h *Hub) Remove(ctx context.Context, userID int64, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[userID]; ok && cur == c {
		_ = cur.conn.Close()
		delete(h.clients, userID)
		log.Info(ctx, h.logger, "ws_removed", "Realtime client disconnected", slog.Int64("user_id", userID))
	}
}

// BroadcastToSeekers pushes a position update to every connected seeker.
// Slow or broken connections just error on write; their read loop cleans
// them up.
func (h *Hub) BroadcastToSeekers(ctx context.Context, msg any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.role == user.RoleSeeker {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			log.Warn(ctx, h.logger, "ws_broadcast_failed", "Dropping broadcast to slow client")
		}
	}
}
