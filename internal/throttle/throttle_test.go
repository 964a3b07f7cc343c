package throttle_test

import (
	"errors"
	"testing"
	"time"

	"edgarfeed/internal/throttle"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestGateRejectsEarlyRequests(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	gate := throttle.NewWithClock(time.Second, clock.now)

	if err := gate.Allow(); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	clock.t = clock.t.Add(400 * time.Millisecond)
	if err := gate.Allow(); !errors.Is(err, throttle.ErrTooSoon) {
		t.Fatalf("expected ErrTooSoon, got %v", err)
	}
	if got := gate.Remaining(); got != 600*time.Millisecond {
		t.Fatalf("expected 600ms remaining, got %v", got)
	}
	// A rejected request does not restart the interval.
	clock.t = clock.t.Add(600 * time.Millisecond)
	if err := gate.Allow(); err != nil {
		t.Fatalf("request after interval rejected: %v", err)
	}
	if got := gate.Remaining(); got != time.Second {
		t.Fatalf("expected a fresh interval, got %v", got)
	}
}

func TestZeroIntervalAdmitsEverything(t *testing.T) {
	gate := throttle.New(0)
	for i := range 3 {
		if err := gate.Allow(); err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
	}
}
