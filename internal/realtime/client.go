// Package realtime is the dial side of the backend's duplex channel: a
// single websocket carrying fire-and-forget presence broadcasts, the
// correlated find-nearby request/response, and informational inbound
// events.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/contracts"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the server.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the server.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second
)

var (
	ErrNotConnected = errors.New("realtime channel not connected")
	ErrClosed       = errors.New("realtime channel closed")
)

// Client is one logical presence channel. It lives exactly as long as
// the tracking session that owns it: Connect on session start, Close on
// teardown. There is no automatic reconnect; a dropped connection stays
// down until the next session.
type Client struct {
	url    string
	token  string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan json.RawMessage
	closed  bool

	onPositionUpdated func(json.RawMessage)
	onNearbyUpdated   func(json.RawMessage)
}

// New builds a channel client for the given websocket URL. token is the
// bearer token presented in the auth frame.
func New(logger *slog.Logger, url, token string) *Client {
	return &Client{
		url:     url,
		token:   token,
		logger:  logger,
		pending: make(map[string]chan json.RawMessage),
	}
}

// Connect dials the server, sends the auth frame, and starts the read
// loop.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial realtime channel: %w", err)
	}

	auth, err := envelope(contracts.EventAuth, contracts.AuthData{Token: "Bearer " + c.token}, "")
	if err != nil {
		conn.Close()
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(auth); err != nil {
		conn.Close()
		return fmt.Errorf("send auth frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.conn = conn
	go c.readLoop(ctx, conn)
	go c.pingLoop(ctx, conn)

	log.Info(ctx, c.logger, "channel_connected", "Realtime channel connected")
	return nil
}

// Close shuts the connection down and fails all pending requests.
// Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for ack, ch := range c.pending {
		close(ch)
		delete(c.pending, ack)
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// EmitPosition sends the broadcaster's one-way position report. No
// acknowledgement is expected.
func (c *Client) EmitPosition(userID int64, p geo.Point) error {
	env, err := envelope(contracts.EventUpdatePosition, contracts.UpdatePositionData{
		UserID: userID,
		Lat:    p.Lat,
		Lng:    p.Lng,
	}, "")
	if err != nil {
		return err
	}
	return c.write(env)
}

// FindNearby sends the seeker's correlated query and waits for its
// single ack reply.
func (c *Client) FindNearby(ctx context.Context, center geo.Point, radiusKm int) ([]nearby.Entity, error) {
	ack := uuid.NewString()
	env, err := envelope(contracts.EventFindNearby, contracts.FindNearbyData{
		Lat:   center.Lat,
		Lng:   center.Lng,
		Radio: radiusKm,
	}, ack)
	if err != nil {
		return nil, err
	}

	reply := make(chan json.RawMessage, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[ack] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, ack)
		c.mu.Unlock()
	}()

	if err := c.write(env); err != nil {
		return nil, err
	}

	select {
	case raw, ok := <-reply:
		if !ok {
			return nil, ErrClosed
		}
		var wire []contracts.NearbyEntityWire
		if err := json.Unmarshal(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode nearby reply: %w", err)
		}
		entities := make([]nearby.Entity, 0, len(wire))
		for _, w := range wire {
			entities = append(entities, w.Entity())
		}
		return entities, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnPositionUpdated registers the handler for inbound position-updated
// events. Must be set before traffic is expected; not synchronized with
// the read loop beyond that.
func (c *Client) OnPositionUpdated(fn func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPositionUpdated = fn
}

// OnNearbyUpdated registers the handler for inbound nearby-updated
// events.
func (c *Client) OnNearbyUpdated(fn func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNearbyUpdated = fn
}

func (c *Client) write(env contracts.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(env)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var env contracts.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Error(ctx, c.logger, "channel_read_fail", "Realtime channel read failed, going quiet", err)
			}
			return
		}
		c.dispatch(ctx, env)
	}
}

func (c *Client) dispatch(ctx context.Context, env contracts.Envelope) {
	switch env.Event {
	case contracts.EventAck:
		c.mu.Lock()
		ch, ok := c.pending[env.Ack]
		if ok {
			delete(c.pending, env.Ack)
		}
		c.mu.Unlock()
		if ok {
			ch <- env.Data
		}
	case contracts.EventPositionUpdated:
		c.mu.Lock()
		fn := c.onPositionUpdated
		c.mu.Unlock()
		if fn != nil {
			fn(env.Data)
		}
	case contracts.EventNearbyUpdated:
		c.mu.Lock()
		fn := c.onNearbyUpdated
		c.mu.Unlock()
		if fn != nil {
			fn(env.Data)
		}
	case contracts.EventError:
		var data contracts.ErrorData
		_ = json.Unmarshal(env.Data, &data)
		log.Warn(ctx, c.logger, "channel_error_event", "Server reported: "+data.Message)
	default:
		log.Warn(ctx, c.logger, "channel_unknown_event", "Ignoring unknown event "+env.Event)
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		if c.closed || c.conn != conn {
			c.mu.Unlock()
			return
		}
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func envelope(event string, data any, ack string) (contracts.Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return contracts.Envelope{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return contracts.Envelope{Event: event, Data: raw, Ack: ack}, nil
}
