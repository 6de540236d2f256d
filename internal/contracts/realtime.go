// Package contracts defines the wire shapes shared by the client and the
// backend: the realtime envelope protocol and the REST payloads.
package contracts

import "encoding/json"

// Realtime event names carried in Envelope.Event.
const (
	EventAuth            = "auth"
	EventAck             = "ack"
	EventUpdatePosition  = "update-position"
	EventFindNearby      = "find-nearby-realtime"
	EventPositionUpdated = "position-updated"
	EventNearbyUpdated   = "nearby-updated"
	EventError           = "error"
)

// Envelope frames every message on the realtime channel. Requests that
// expect a reply set Ack to a correlation ID; the single reply echoes it
// back with Event == EventAck.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   string          `json:"ack,omitempty"`
}

// AuthData is the first frame a client sends after dialing.
type AuthData struct {
	Token string `json:"token"`
}

// UpdatePositionData is the broadcaster's fire-and-forget position report.
type UpdatePositionData struct {
	UserID int64   `json:"userId"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// FindNearbyData is the seeker's correlated realtime proximity query.
// Radio is the search radius in kilometers.
type FindNearbyData struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Radio int     `json:"radio"`
}

// ErrorData is the payload of an EventError frame.
type ErrorData struct {
	Message string `json:"message"`
}
