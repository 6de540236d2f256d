// Package mapterm renders the map screen on a terminal: markers become
// a table, camera animation becomes a line of output. It implements the
// capability set the tracking session consumes, with pan/tap driven by
// user commands instead of gestures.
package mapterm

import (
	"fmt"
	"io"
	"sync"
	"time"

	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"
)

// Default span shown when the screen opens, before any camera move.
const defaultSpan = 0.05

// View is a terminal map. Ready fires once, when Open is called after
// the first paint.
type View struct {
	out io.Writer

	mu        sync.Mutex
	viewport  geo.Viewport
	opened    bool
	onReady   func()
	onSettled func(geo.Viewport)
	onTap     func(geo.Point)
}

// New creates a view centered on the given point.
func New(out io.Writer, center geo.Point) *View {
	return &View{
		out: out,
		viewport: geo.Viewport{
			Center:  center,
			LatSpan: defaultSpan,
			LngSpan: defaultSpan,
		},
	}
}

// Open paints the initial region and reports readiness, the terminal
// stand-in for the map widget's onMapReady event.
func (v *View) Open() {
	v.mu.Lock()
	if v.opened {
		v.mu.Unlock()
		return
	}
	v.opened = true
	vp := v.viewport
	ready := v.onReady
	v.mu.Unlock()

	fmt.Fprintf(v.out, "[map] ready, centered at %.4f, %.4f\n", vp.Center.Lat, vp.Center.Lng)
	if ready != nil {
		ready()
	}
}

// RenderMarkers replaces the displayed marker set.
func (v *View) RenderMarkers(entities []nearby.Entity) {
	v.mu.Lock()
	center := v.viewport.Center
	v.mu.Unlock()

	if len(entities) == 0 {
		fmt.Fprintln(v.out, "[map] no one nearby")
		return
	}
	fmt.Fprintf(v.out, "[map] %d nearby:\n", len(entities))
	for _, e := range entities {
		name := e.DisplayName
		if e.LastName != "" {
			name += " " + e.LastName
		}
		fmt.Fprintf(v.out, "  %-24s %5.2f km  (%.4f, %.4f)\n",
			name, geo.DistanceKm(center, e.Coordinate), e.Coordinate.Lat, e.Coordinate.Lng)
	}
}

// AnimateCameraTo recenters the viewport.
func (v *View) AnimateCameraTo(p geo.Point, zoom float64, duration time.Duration) {
	v.mu.Lock()
	v.viewport.Center = p
	v.mu.Unlock()
	fmt.Fprintf(v.out, "[map] camera -> %.4f, %.4f (zoom %.0f, %s)\n", p.Lat, p.Lng, zoom, duration)
}

func (v *View) OnReady(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onReady = fn
}

func (v *View) OnViewportChangeSettled(fn func(geo.Viewport)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onSettled = fn
}

func (v *View) OnTap(fn func(p geo.Point)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onTap = fn
}

// Pan moves the viewport, as a user drag would, and reports the settled
// region.
func (v *View) Pan(to geo.Point) {
	v.mu.Lock()
	v.viewport.Center = to
	vp := v.viewport
	settled := v.onSettled
	v.mu.Unlock()

	fmt.Fprintf(v.out, "[map] viewport -> %.4f, %.4f\n", to.Lat, to.Lng)
	if settled != nil {
		settled(vp)
	}
}

// Tap reports a tap at the given coordinate.
func (v *View) Tap(p geo.Point) {
	v.mu.Lock()
	tap := v.onTap
	v.mu.Unlock()
	if tap != nil {
		tap(p)
	}
}

// Center returns the current viewport center.
func (v *View) Center() geo.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewport.Center
}
