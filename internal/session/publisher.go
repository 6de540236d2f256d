package session

import (
	"context"

	"workmap/internal/common/log"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/user"
)

// publishPresence is invoked once per delivered fix and emits at most
// one realtime action per broadcastInterval, whatever the fix rate. The
// window is measured against the fix's own timestamp; fixes arrive in
// non-decreasing time order. lastBroadcast advances only when an action
// is actually taken, so the limit is per session, not per role.
func (s *Session) publishPresence(f geo.Fix) {
	if s.identity == nil || !s.identity.Role.Valid() {
		return
	}
	if !s.lastBroadcast.IsZero() && f.Time.Sub(s.lastBroadcast) < broadcastInterval {
		return
	}
	s.lastBroadcast = f.Time

	switch s.identity.Role {
	case user.RoleBroadcaster:
		// Fire-and-forget; no acknowledgement expected.
		if err := s.channel.EmitPosition(s.identity.ID, f.Point); err != nil {
			log.Error(s.ctx, s.logger, "emit_position_fail", "Position broadcast failed", err)
		}
	case user.RoleSeeker:
		// Correlated request/response, awaited off the loop.
		center := f.Point
		radius := s.cfg.RadiusKm
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			entities, err := s.channel.FindNearby(ctx, center, radius)
			s.post(realtimeNearbyEvent{entities: entities, err: err})
		}()
	}
}

// handleRealtimeNearby applies a seeker query result. The realtime and
// REST producers share the one marker slot; whichever result reaches the
// loop last wins, with no cross-source deduplication.
func (s *Session) handleRealtimeNearby(ev realtimeNearbyEvent) {
	if ev.err != nil {
		log.Error(s.ctx, s.logger, "realtime_nearby_fail", "Realtime nearby query failed", ev.err)
		return
	}
	s.markers = ev.entities
	s.view.RenderMarkers(s.markers)
}
