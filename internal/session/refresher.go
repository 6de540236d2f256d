package session

import (
	"context"
	"fmt"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/domain/geo"
)

// The viewport refresher moves IDLE -> PENDING (timer armed) ->
// IN_FLIGHT (request sent) -> IDLE. A PENDING refresher is re-armed by
// every new trigger; an IN_FLIGHT request cannot be cancelled, only its
// result discarded via the generation guard.

// armRefresh starts (or restarts) the quiet-period timer. Only the most
// recent trigger in a burst survives: arming cancels any unfired timer,
// and the sequence number voids a timer that fired while being replaced.
func (s *Session) armRefresh(center geo.Point) {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounceSeq++
	seq := s.debounceSeq
	s.debounce = time.AfterFunc(debounceQuiet, func() {
		s.post(debounceFiredEvent{seq: seq, center: center})
	})
}

func (s *Session) handleDebounceFired(ev debounceFiredEvent) {
	if ev.seq != s.debounceSeq {
		// Fired in the gap before a re-arm; a newer timer owns the slot.
		return
	}
	s.debounce = nil
	s.startRefresh(ev.center)
}

// startRefresh issues one REST nearby query. Advancing the generation
// first means a still-outstanding older request can no longer apply its
// result. Used directly (undebounced) by the first-fix seed and the
// explicit recenter action.
func (s *Session) startRefresh(center geo.Point) {
	s.generation++
	gen := s.generation
	radius := s.cfg.RadiusKm
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		entities, err := s.api.FindNearby(ctx, center, radius)
		s.post(restNearbyEvent{gen: gen, entities: entities, err: err})
	}()
}

// handleRESTNearby applies a refresh result, unless a newer refresh (or
// teardown) superseded it while it was in flight. Success replaces the
// displayed set wholesale; failure leaves the previous set untouched.
func (s *Session) handleRESTNearby(ev restNearbyEvent) {
	if ev.gen != s.generation {
		log.Info(s.ctx, s.logger, "nearby_discarded", fmt.Sprintf("Discarded superseded nearby result (gen %d, now %d)", ev.gen, s.generation))
		return
	}
	if ev.err != nil {
		log.Error(s.ctx, s.logger, "nearby_query_fail", "Nearby query failed, keeping previous results", ev.err)
		return
	}
	s.markers = ev.entities
	s.view.RenderMarkers(s.markers)
}
