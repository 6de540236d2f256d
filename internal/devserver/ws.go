package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"workmap/internal/auth"
	"workmap/internal/common/log"
	"workmap/internal/contracts"
	"workmap/internal/devserver/store"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/user"

	"github.com/gorilla/websocket"
)

const (
	authWait     = 5 * time.Second
	serverIdle   = 90 * time.Second
	queryTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RealtimeHandler serves the duplex presence channel. The first frame
// after the upgrade must be an auth envelope; everything after that is
// position reports and nearby queries.
type RealtimeHandler struct {
	hub       *Hub
	tokens    *auth.Manager
	positions *store.PositionRepository
	logger    *slog.Logger
}

func NewRealtimeHandler(hub *Hub, tokens *auth.Manager, positions *store.PositionRepository, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, tokens: tokens, positions: positions, logger: logger}
}

func (h *RealtimeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(ctx, h.logger, "ws_upgrade_fail", "Websocket upgrade failed")
		return
	}

	userID, role, ok := h.authenticate(ctx, conn)
	if !ok {
		conn.Close()
		return
	}

	c := h.hub.Add(ctx, userID, role, conn)
	defer h.hub.Remove(ctx, userID, c)

	conn.SetReadDeadline(time.Now().Add(serverIdle))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(serverIdle))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(hubWriteWait))
	})

	for {
		var env contracts.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		h.dispatch(ctx, c, userID, env)
	}
}

// authenticate reads the auth frame within authWait and validates its
// bearer token.
func (h *RealtimeHandler) authenticate(ctx context.Context, conn *websocket.Conn) (int64, user.Role, bool) {
	conn.SetReadDeadline(time.Now().Add(authWait))
	var env contracts.Envelope
	if err := conn.ReadJSON(&env); err != nil || env.Event != contracts.EventAuth {
		log.Warn(ctx, h.logger, "ws_auth_missing", "No auth frame received, closing")
		return 0, "", false
	}
	var data contracts.AuthData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Warn(ctx, h.logger, "ws_auth_malformed", "Malformed auth frame, closing")
		return 0, "", false
	}
	token := strings.TrimPrefix(data.Token, "Bearer ")
	claims, err := h.tokens.ParseAndValidate(token)
	if err != nil {
		log.Warn(ctx, h.logger, "ws_auth_rejected", "Invalid token on realtime channel")
		h.writeError(&client{conn: conn}, "invalid token")
		return 0, "", false
	}
	userID, err := claims.UserID()
	if err != nil {
		log.Warn(ctx, h.logger, "ws_auth_rejected", "Token subject is not a user ID")
		return 0, "", false
	}
	role, ok := user.PrimaryRole(claims.Roles)
	if !ok {
		log.Warn(ctx, h.logger, "ws_auth_rejected", "Token carries no usable role")
		return 0, "", false
	}
	return userID, role, true
}

func (h *RealtimeHandler) dispatch(ctx context.Context, cl *client, userID int64, env contracts.Envelope) {
	switch env.Event {
	case contracts.EventUpdatePosition:
		h.handleUpdatePosition(ctx, userID, env)
	case contracts.EventFindNearby:
		h.handleFindNearby(ctx, cl, env)
	default:
		h.writeError(cl, "unknown event "+env.Event)
	}
}

func (h *RealtimeHandler) handleUpdatePosition(ctx context.Context, userID int64, env contracts.Envelope) {
	var data contracts.UpdatePositionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		log.Warn(ctx, h.logger, "ws_bad_payload", "Dropping malformed position update")
		return
	}
	p := geo.Point{Lat: data.Lat, Lng: data.Lng}
	if err := p.Validate(); err != nil {
		log.Warn(ctx, h.logger, "ws_bad_payload", "Dropping out-of-range position update")
		return
	}

	// The sender's authenticated ID wins over whatever the payload claims.
	storeCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := h.positions.Upsert(storeCtx, userID, p); err != nil {
		log.Error(ctx, h.logger, "position_store_fail", "Could not persist position", err)
		return
	}

	raw, err := json.Marshal(contracts.UpdatePositionData{UserID: userID, Lat: p.Lat, Lng: p.Lng})
	if err != nil {
		return
	}
	h.hub.BroadcastToSeekers(ctx, contracts.Envelope{Event: contracts.EventPositionUpdated, Data: raw})
}

func (h *RealtimeHandler) handleFindNearby(ctx context.Context, cl *client, env contracts.Envelope) {
	var data contracts.FindNearbyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		h.writeError(cl, "malformed find-nearby payload")
		return
	}
	center := geo.Point{Lat: data.Lat, Lng: data.Lng}
	if err := center.Validate(); err != nil {
		h.writeError(cl, err.Error())
		return
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	entities, err := h.positions.Nearby(queryCtx, center, float64(data.Radio))
	if err != nil {
		log.Error(ctx, h.logger, "nearby_query_fail", "Realtime nearby query failed", err)
		h.writeError(cl, "nearby query failed")
		return
	}

	wire := make([]contracts.NearbyEntityWire, 0, len(entities))
	for _, e := range entities {
		wire = append(wire, contracts.WireFromEntity(e))
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return
	}
	if err := cl.writeJSON(contracts.Envelope{Event: contracts.EventAck, Data: raw, Ack: env.Ack}); err != nil {
		log.Warn(ctx, h.logger, "ws_write_fail", "Could not deliver nearby reply")
	}
}

func (h *RealtimeHandler) writeError(cl *client, msg string) {
	raw, err := json.Marshal(contracts.ErrorData{Message: msg})
	if err != nil {
		return
	}
	_ = cl.writeJSON(contracts.Envelope{Event: contracts.EventError, Data: raw})
}
