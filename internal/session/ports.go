package session

import (
	"context"
	"encoding/json"
	"time"

	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"
)

// Decision is the outcome of a platform location-permission request.
type Decision string

const (
	DecisionGranted Decision = "granted"
	DecisionLimited Decision = "limited"
	DecisionDenied  Decision = "denied"
	DecisionBlocked Decision = "blocked"
)

// Allows reports whether the decision permits location features to start.
// Limited (approximate) access is treated as a grant.
func (d Decision) Allows() bool {
	return d == DecisionGranted || d == DecisionLimited
}

// PermissionService is the platform permission surface.
type PermissionService interface {
	// Request issues one platform prompt for precise location access.
	Request(ctx context.Context) (Decision, error)

	// OfferSettings surfaces a user-facing prompt with an "open settings"
	// action after a denial. It never re-requests the permission itself.
	OfferSettings(ctx context.Context) error
}

// WatchOptions configures a continuous location subscription. The feed
// enforces whichever of MinDistanceMeters / MinInterval the platform
// supports, bounds the wait for a first fix with Timeout, and rejects
// cached fixes older than MaxFixAge.
type WatchOptions struct {
	HighAccuracy      bool
	MinDistanceMeters float64
	MinInterval       time.Duration
	FastestInterval   time.Duration
	Timeout           time.Duration
	MaxFixAge         time.Duration
}

// WatchHandle identifies one active subscription. Stop is idempotent.
type WatchHandle interface {
	Stop()
}

// PositionFeed produces continuous location fixes. Implementations must
// deliver fixes in non-decreasing timestamp order.
type PositionFeed interface {
	Watch(ctx context.Context, opts WatchOptions, onFix func(geo.Fix), onError func(error)) (WatchHandle, error)
}

// Channel is the persistent duplex realtime connection. Its lifetime is
// bound to the session: connect on start, close on teardown.
type Channel interface {
	Connect(ctx context.Context) error
	Close() error

	// EmitPosition is the broadcaster's one-way position report.
	EmitPosition(userID int64, p geo.Point) error

	// FindNearby is the seeker's correlated request/response query.
	FindNearby(ctx context.Context, center geo.Point, radiusKm int) ([]nearby.Entity, error)

	// Inbound informational events; payloads are implementation-defined.
	OnPositionUpdated(fn func(json.RawMessage))
	OnNearbyUpdated(fn func(json.RawMessage))
}

// NearbyAPI is the REST proximity query, independent of the realtime
// channel.
type NearbyAPI interface {
	FindNearby(ctx context.Context, center geo.Point, radiusKm int) ([]nearby.Entity, error)
}

// MapView is the capability set the session consumes from the map
// rendering collaborator.
type MapView interface {
	RenderMarkers(entities []nearby.Entity)
	AnimateCameraTo(p geo.Point, zoom float64, duration time.Duration)
	OnReady(fn func())
	OnViewportChangeSettled(fn func(geo.Viewport))
	OnTap(fn func(p geo.Point))
}
