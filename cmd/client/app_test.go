package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/device"
	"workmap/internal/domain/geo"
	"workmap/internal/mapterm"
	"workmap/internal/realtime"
	"workmap/internal/restapi"
	"workmap/internal/session"
)

func newLoopFixture() (*restapi.Client, *mapterm.View, *session.Session) {
	logger := log.New("client-test")
	origin := geo.Point{Lat: -12.0464, Lng: -77.0428}
	api := restapi.New(logger, "http://127.0.0.1:0", time.Second)
	view := mapterm.New(io.Discard, origin)
	sess := session.New(logger, session.Config{}, nil,
		device.StaticPermission{Decision: session.DecisionGranted},
		device.NewSimFeed(logger, origin),
		realtime.New(logger, "ws://127.0.0.1:0/ws", ""),
		api, view)
	return api, view, sess
}

func TestCommandLoopStopsOnContextCancel(t *testing.T) {
	api, view, sess := newLoopFixture()

	// A reader that never produces a line; only cancellation can end
	// the loop.
	r, _ := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- commandLoop(ctx, r, api, view, sess) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("commandLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("commandLoop did not return after cancellation")
	}
}

func TestCommandLoopQuit(t *testing.T) {
	api, view, sess := newLoopFixture()

	done := make(chan error, 1)
	go func() {
		done <- commandLoop(context.Background(), strings.NewReader("quit\n"), api, view, sess)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("commandLoop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("commandLoop did not return on quit")
	}
}
