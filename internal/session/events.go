package session

import (
	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"
)

// All state transitions run on the session's single run loop: every
// external callback is posted as one of these events and handled to
// completion in arrival order.
type event any

type fixEvent struct {
	fix geo.Fix
}

type fixErrorEvent struct {
	err error
}

type mapReadyEvent struct{}

type viewportEvent struct {
	viewport geo.Viewport
}

type tapEvent struct {
	point geo.Point
}

type recenterEvent struct{}

// debounceFiredEvent is posted by the quiet-period timer. seq detects a
// timer that fired concurrently with being re-armed.
type debounceFiredEvent struct {
	seq    uint64
	center geo.Point
}

// restNearbyEvent carries a REST refresh result. gen is the generation
// the request was launched under; stale generations are discarded.
type restNearbyEvent struct {
	gen      uint64
	entities []nearby.Entity
	err      error
}

// realtimeNearbyEvent carries a seeker's realtime query result. Arrival
// order decides between this and REST results; there is no cross-source
// merge.
type realtimeNearbyEvent struct {
	entities []nearby.Entity
	err      error
}

type stopEvent struct {
	done chan struct{}
}
