package device

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"workmap/internal/common/log"
	"workmap/internal/domain/geo"
	"workmap/internal/session"
)

var testOrigin = geo.Point{Lat: -12.0464, Lng: -77.0428}

func TestSimFeedDeliversFirstFixAtOrigin(t *testing.T) {
	feed := NewSimFeed(log.New("test"), testOrigin)

	fixes := make(chan geo.Fix, 8)
	h, err := feed.Watch(context.Background(), session.WatchOptions{
		MinInterval: 20 * time.Millisecond,
		Timeout:     2 * time.Second,
	}, func(f geo.Fix) { fixes <- f }, func(error) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer h.Stop()

	select {
	case f := <-fixes:
		if f.Point != testOrigin {
			t.Errorf("first fix at %+v, want the origin %+v", f.Point, testOrigin)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no first fix delivered")
	}
}

func TestSimFeedReportsFirstFixTimeout(t *testing.T) {
	feed := NewSimFeed(log.New("test"), testOrigin)

	var delivered atomic.Int64
	errs := make(chan error, 1)
	h, err := feed.Watch(context.Background(), session.WatchOptions{
		MinInterval: 10 * time.Millisecond,
		Timeout:     30 * time.Millisecond,
	}, func(geo.Fix) { delivered.Add(1) }, func(e error) { errs <- e })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer h.Stop()

	select {
	case e := <-errs:
		if !errors.Is(e, session.ErrFirstFixTimeout) {
			t.Fatalf("watch error = %v, want ErrFirstFixTimeout", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no timeout reported")
	}
	if n := delivered.Load(); n != 0 {
		t.Errorf("%d fixes delivered after a first-fix timeout, want 0", n)
	}

	// The failed watch released the feed for a fresh subscription.
	h2, err := feed.Watch(context.Background(), session.WatchOptions{MinInterval: time.Second}, func(geo.Fix) {}, func(error) {})
	if err != nil {
		t.Fatalf("Watch after timeout: %v", err)
	}
	h2.Stop()
}

func TestSimFeedHonorsFastestInterval(t *testing.T) {
	feed := NewSimFeed(log.New("test"), testOrigin)

	times := make(chan time.Time, 16)
	h, err := feed.Watch(context.Background(), session.WatchOptions{
		MinInterval:     5 * time.Millisecond,
		FastestInterval: 60 * time.Millisecond,
	}, func(geo.Fix) { times <- time.Now() }, func(error) {})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer h.Stop()

	var stamps []time.Time
	deadline := time.After(4 * time.Second)
	for len(stamps) < 4 {
		select {
		case ts := <-times:
			stamps = append(stamps, ts)
		case <-deadline:
			t.Fatalf("only %d fixes before the deadline", len(stamps))
		}
	}
	// Skip the first gap: it includes the warmup beat.
	for i := 2; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < 45*time.Millisecond {
			t.Errorf("fix gap %v shorter than the fastest interval", gap)
		}
	}
}

func TestSimFeedSingleSubscription(t *testing.T) {
	feed := NewSimFeed(log.New("test"), testOrigin)

	h, err := feed.Watch(context.Background(), session.WatchOptions{MinInterval: time.Second}, func(geo.Fix) {}, func(error) {})
	if err != nil {
		t.Fatalf("first Watch: %v", err)
	}

	if _, err := feed.Watch(context.Background(), session.WatchOptions{}, func(geo.Fix) {}, func(error) {}); !errors.Is(err, session.ErrAlreadyStarted) {
		t.Fatalf("second Watch = %v, want ErrAlreadyStarted", err)
	}

	// After Stop a new watch is allowed again.
	h.Stop()
	h2, err := feed.Watch(context.Background(), session.WatchOptions{MinInterval: time.Second}, func(geo.Fix) {}, func(error) {})
	if err != nil {
		t.Fatalf("Watch after Stop: %v", err)
	}
	h2.Stop()
}

func TestSimFeedStopIsIdempotent(t *testing.T) {
	feed := NewSimFeed(log.New("test"), testOrigin)

	var delivered atomic.Int64
	h, err := feed.Watch(context.Background(), session.WatchOptions{
		MinInterval: 10 * time.Millisecond,
	}, func(geo.Fix) { delivered.Add(1) }, func(error) {})
	if err != nil {
		t.Fatal(err)
	}

	h.Stop()
	h.Stop()

	// No deliveries after the handle settled.
	time.Sleep(50 * time.Millisecond)
	n := delivered.Load()
	time.Sleep(50 * time.Millisecond)
	if m := delivered.Load(); m != n {
		t.Errorf("fixes kept arriving after Stop: %d then %d", n, m)
	}
}

func TestTerminalPromptDecisions(t *testing.T) {
	cases := []struct {
		in   string
		want session.Decision
	}{
		{"y\n", session.DecisionGranted},
		{"YES\n", session.DecisionGranted},
		{"n\n", session.DecisionDenied},
		{"whatever\n", session.DecisionDenied},
		{"never\n", session.DecisionBlocked},
	}
	for _, tc := range cases {
		p := NewTerminalPrompt(strings.NewReader(tc.in), io.Discard)
		got, err := p.Request(context.Background())
		if err != nil || got != tc.want {
			t.Errorf("Request with input %q = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestTerminalPromptCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A reader that never produces input; cancellation must unblock.
	r, _ := io.Pipe()
	p := NewTerminalPrompt(r, io.Discard)
	if _, err := p.Request(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Request = %v, want context.Canceled", err)
	}
}

func TestStaticPermission(t *testing.T) {
	p := StaticPermission{Decision: session.DecisionGranted}
	d, err := p.Request(context.Background())
	if err != nil || !d.Allows() {
		t.Fatalf("Request = %v, %v, want a grant", d, err)
	}
	if err := p.OfferSettings(context.Background()); err != nil {
		t.Fatalf("OfferSettings: %v", err)
	}
}
