// Package device provides the platform-facing adapters of the tracking
// session: the location feed and the permission surface. There is no
// real GPS in a terminal build, so the feed simulates a pedestrian
// random walk from a configured origin.
package device

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/domain/geo"
	"workmap/internal/session"
)

const (
	// Walking pace used to size each simulated step.
	walkSpeedMps = 1.4

	metersPerDegreeLat = 111320.0

	// GPS-warmup beat before the first fix.
	firstFixWarmup = time.Second
)

// SimFeed produces fixes along a random walk. One Watch per feed at a
// time, matching the single-subscription session invariant. The feed
// never serves cached fixes, so WatchOptions.MaxFixAge has nothing to
// reject here and session.ErrStaleFix is left to platform feeds.
type SimFeed struct {
	logger *slog.Logger
	origin geo.Point
	rng    *rand.Rand

	mu     sync.Mutex
	active bool
}

func NewSimFeed(logger *slog.Logger, origin geo.Point) *SimFeed {
	return &SimFeed{
		logger: logger,
		origin: origin,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type simHandle struct {
	once sync.Once
	stop chan struct{}
	feed *SimFeed
}

func (h *simHandle) Stop() {
	h.once.Do(func() {
		close(h.stop)
		h.feed.mu.Lock()
		h.feed.active = false
		h.feed.mu.Unlock()
	})
}

// Watch starts the walk. Fixes are delivered no closer together than
// opts.MinInterval and only when the walk moved at least
// opts.MinDistanceMeters since the last delivery, mirroring how the
// platform location services filter callbacks.
func (f *SimFeed) Watch(ctx context.Context, opts session.WatchOptions, onFix func(geo.Fix), onError func(error)) (session.WatchHandle, error) {
	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return nil, session.ErrAlreadyStarted
	}
	f.active = true
	f.mu.Unlock()

	interval := opts.MinInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if opts.FastestInterval > interval {
		// The platform contract: deliveries never come faster than the
		// fastest interval even when the desired interval asks for more.
		interval = opts.FastestInterval
	}

	h := &simHandle{stop: make(chan struct{}), feed: f}
	go f.run(ctx, opts, interval, h.stop, onFix, onError)
	return h, nil
}

func (f *SimFeed) run(ctx context.Context, opts session.WatchOptions, interval time.Duration, stop chan struct{}, onFix func(geo.Fix), onError func(error)) {
	pos := f.origin
	lastDelivered := pos
	accuracy := 25.0
	if opts.HighAccuracy {
		accuracy = 5.0
	}

	// First fix comes in after one GPS-warmup beat. A timeout shorter
	// than the warmup expires first, same as a receiver that never got
	// a fix in time.
	if opts.Timeout > 0 && opts.Timeout < firstFixWarmup {
		select {
		case <-time.After(opts.Timeout):
			onError(session.ErrFirstFixTimeout)
		case <-stop:
		case <-ctx.Done():
		}
		f.mu.Lock()
		f.active = false
		f.mu.Unlock()
		return
	}
	select {
	case <-time.After(firstFixWarmup):
	case <-stop:
		return
	case <-ctx.Done():
		return
	}
	onFix(geo.Fix{Point: pos, AccuracyMeters: accuracy, SpeedKmh: 0, Time: time.Now()})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos = f.step(pos, interval)
			movedMeters := geo.DistanceKm(lastDelivered, pos) * 1000
			if movedMeters < opts.MinDistanceMeters {
				log.Info(ctx, f.logger, "fix_filtered", "Movement below the distance filter, fix suppressed")
				continue
			}
			lastDelivered = pos
			onFix(geo.Fix{
				Point:          pos,
				AccuracyMeters: accuracy,
				SpeedKmh:       walkSpeedMps * 3.6,
				Time:           time.Now(),
			})
		}
	}
}

// step moves the walk one interval in a random direction.
func (f *SimFeed) step(from geo.Point, interval time.Duration) geo.Point {
	meters := walkSpeedMps * interval.Seconds()
	angle := f.rng.Float64() * 2 * math.Pi
	dLat := meters * math.Cos(angle) / metersPerDegreeLat
	dLng := meters * math.Sin(angle) / (metersPerDegreeLat * math.Cos(from.Lat*math.Pi/180))
	return geo.Point{Lat: from.Lat + dLat, Lng: from.Lng + dLng}
}
