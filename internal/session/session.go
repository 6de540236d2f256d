// Package session implements the live-location tracking and realtime
// nearby-presence session behind the map screen: permission gate,
// position watch, rate-limited presence publishing, debounced viewport
// refresh, and teardown of all of it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"workmap/internal/common/contextx"
	"workmap/internal/common/log"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/nearby"
	"workmap/internal/domain/user"

	"github.com/google/uuid"
)

const (
	// At most one outbound presence action per window, however fast fixes
	// arrive.
	broadcastInterval = 5 * time.Second

	// Quiet period for viewport-triggered refreshes; each new trigger
	// resets it.
	debounceQuiet = 600 * time.Millisecond

	requestTimeout  = 10 * time.Second
	cameraZoom      = 15
	cameraAnimation = 700 * time.Millisecond
)

// Config carries the session's tunables.
type Config struct {
	Watch    WatchOptions
	RadiusKm int
}

// Session is the aggregate root of one map-screen visit. It exclusively
// owns the single watch handle, the single debounce timer, and the
// channel connection; collaborators never start or stop those directly.
type Session struct {
	logger   *slog.Logger
	cfg      Config
	identity *user.Identity

	perm    PermissionService
	feed    PositionFeed
	channel Channel
	api     NearbyAPI
	view    MapView

	ctx     context.Context
	events  chan event
	stopped chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
	watch   WatchHandle

	// Run-loop-owned state. Nothing below is touched outside the loop.
	mapReady        bool
	currentFix      *geo.Fix
	firstFixHandled bool
	lastBroadcast   time.Time
	debounce        *time.Timer
	debounceSeq     uint64
	generation      uint64
	markers         []nearby.Entity
}

// New wires a session. identity may be nil: presence publishing is then
// disabled while the rest of the session still runs.
func New(logger *slog.Logger, cfg Config, identity *user.Identity,
	perm PermissionService, feed PositionFeed, channel Channel, api NearbyAPI, view MapView,
) *Session {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 5
	}
	return &Session{
		logger:   logger,
		cfg:      cfg,
		identity: identity,
		perm:     perm,
		feed:     feed,
		channel:  channel,
		api:      api,
		view:     view,
		events:   make(chan event, 128),
		stopped:  make(chan struct{}),
	}
}

// Start runs the permission gate and, on a grant, brings up the realtime
// channel, the map callbacks, and the location watch, in that order.
// A denied permission or a failed watch is returned to the caller;
// everything else degrades and is only logged.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	ctx = contextx.WithSessionID(ctx, "ses_"+uuid.NewString())
	s.ctx = ctx

	decision, err := s.perm.Request(ctx)
	if err != nil {
		return fmt.Errorf("request location permission: %w", err)
	}
	if !decision.Allows() {
		log.Warn(ctx, s.logger, "permission_denied", "Location permission not granted, map session will not start")
		if err := s.perm.OfferSettings(ctx); err != nil {
			log.Error(ctx, s.logger, "settings_offer_fail", "Failed to offer the settings screen", err)
		}
		return fmt.Errorf("%w: %s", ErrPermissionDenied, decision)
	}

	if err := s.channel.Connect(ctx); err != nil {
		// Presence goes quiet for this session; the map itself stays up.
		log.Error(ctx, s.logger, "channel_connect_fail", "Realtime channel connect failed", err)
	}
	s.channel.OnPositionUpdated(func(raw json.RawMessage) {
		log.Info(ctx, s.logger, "position_updated", string(raw))
	})
	s.channel.OnNearbyUpdated(func(raw json.RawMessage) {
		log.Info(ctx, s.logger, "nearby_updated", string(raw))
	})

	s.view.OnReady(func() { s.post(mapReadyEvent{}) })
	s.view.OnViewportChangeSettled(func(vp geo.Viewport) { s.post(viewportEvent{viewport: vp}) })
	s.view.OnTap(func(p geo.Point) { s.post(tapEvent{point: p}) })

	handle, err := s.feed.Watch(ctx, s.cfg.Watch,
		func(f geo.Fix) { s.post(fixEvent{fix: f}) },
		func(err error) { s.post(fixErrorEvent{err: err}) },
	)
	if err != nil {
		if cerr := s.channel.Close(); cerr != nil {
			log.Error(ctx, s.logger, "channel_close_fail", "Realtime channel close failed", cerr)
		}
		return fmt.Errorf("start location watch: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		// Stop raced with Start; release what was just acquired. The run
		// loop never launches, so stopped is closed here to keep late
		// callbacks from piling into the events channel.
		s.mu.Unlock()
		handle.Stop()
		_ = s.channel.Close()
		close(s.stopped)
		return ErrClosed
	}
	s.watch = handle
	s.started = true
	s.mu.Unlock()

	go s.loop()
	log.Info(ctx, s.logger, "session_started", "Tracking session started")
	return nil
}

// Stop tears the session down: watch first, then the debounce timer,
// then the channel, then the generation bump that voids in-flight
// results. Idempotent; safe before Start and safe to call twice.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if !started {
		// Nothing was ever acquired.
		return
	}

	done := make(chan struct{})
	s.post(stopEvent{done: done})
	select {
	case <-done:
	case <-s.stopped:
	}
}

// Recenter is the explicit user recenter action: camera to the current
// fix plus an immediate (undebounced) nearby refresh there. A no-op
// until the first fix arrives.
func (s *Session) Recenter() {
	s.post(recenterEvent{})
}

// RequestRefresh asks for a nearby refresh around an arbitrary center,
// debounced like any viewport change.
func (s *Session) RequestRefresh(center geo.Point) {
	s.post(viewportEvent{viewport: geo.Viewport{Center: center}})
}

// post hands an event to the run loop. After teardown it discards the
// event instead of blocking the producer.
func (s *Session) post(e event) {
	select {
	case s.events <- e:
	case <-s.stopped:
	}
}

func (s *Session) loop() {
	defer close(s.stopped)
	for {
		switch ev := (<-s.events).(type) {
		case fixEvent:
			s.handleFix(ev.fix)
		case fixErrorEvent:
			s.handleFixError(ev.err)
		case mapReadyEvent:
			s.handleMapReady()
		case viewportEvent:
			s.armRefresh(ev.viewport.Center)
		case debounceFiredEvent:
			s.handleDebounceFired(ev)
		case restNearbyEvent:
			s.handleRESTNearby(ev)
		case realtimeNearbyEvent:
			s.handleRealtimeNearby(ev)
		case tapEvent:
			log.Info(s.ctx, s.logger, "map_tap", fmt.Sprintf("Tapped at %.6f, %.6f", ev.point.Lat, ev.point.Lng))
		case recenterEvent:
			s.handleRecenter()
		case stopEvent:
			s.teardown()
			close(ev.done)
			return
		}
	}
}

func (s *Session) teardown() {
	s.mu.Lock()
	watch := s.watch
	s.watch = nil
	s.mu.Unlock()
	if watch != nil {
		watch.Stop()
	}
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if err := s.channel.Close(); err != nil {
		log.Error(s.ctx, s.logger, "channel_close_fail", "Realtime channel close failed", err)
	}
	// Voids any still-in-flight refresh result on arrival.
	s.generation++
	log.Info(s.ctx, s.logger, "session_stopped", "Tracking session stopped")
}

// handleFix runs once per delivered fix: remember it, feed the presence
// publisher, and complete the one-time first-fix actions if the map is
// already up.
func (s *Session) handleFix(f geo.Fix) {
	s.currentFix = &f
	s.publishPresence(f)
	if !s.firstFixHandled && s.mapReady {
		s.completeFirstFix()
	}
}

func (s *Session) handleMapReady() {
	s.mapReady = true
	if s.currentFix != nil && !s.firstFixHandled {
		// The fix arrived before the map was ready; apply the buffered one
		// the instant readiness flips.
		s.completeFirstFix()
	}
}

// completeFirstFix recenters the camera and seeds the nearby set at the
// newest fix. Runs exactly once per session.
func (s *Session) completeFirstFix() {
	s.firstFixHandled = true
	s.view.AnimateCameraTo(s.currentFix.Point, cameraZoom, cameraAnimation)
	s.startRefresh(s.currentFix.Point)
}

// handleFixError logs and keeps the subscription open; only teardown
// ends the watch.
func (s *Session) handleFixError(err error) {
	log.Error(s.ctx, s.logger, "position_unavailable", "Location fix delivery failed", err)
}

func (s *Session) handleRecenter() {
	if s.currentFix == nil {
		return
	}
	s.view.AnimateCameraTo(s.currentFix.Point, cameraZoom, cameraAnimation)
	s.startRefresh(s.currentFix.Point)
}
