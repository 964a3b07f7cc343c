// Package throttle serializes outbound requests to the filing host with a
// minimum gap. A request that arrives before the gap has elapsed is
// rejected rather than queued.
package throttle

import (
	"errors"
	"sync"
	"time"
)

// ErrTooSoon is returned by Allow while the minimum interval is running.
var ErrTooSoon = errors.New("request rejected by fair-use throttle")

// Gate enforces the minimum interval between requests.
type Gate struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// New returns a gate with the given minimum interval. A zero interval
// admits every request.
func New(interval time.Duration) *Gate {
	return &Gate{interval: interval, now: time.Now}
}

// NewWithClock returns a gate reading time from now.
func NewWithClock(interval time.Duration, now func() time.Time) *Gate {
	return &Gate{interval: interval, now: now}
}

// Allow admits a request or returns ErrTooSoon. An admitted request starts
// a new interval.
func (g *Gate) Allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.interval {
		return ErrTooSoon
	}
	g.last = now
	return nil
}

// Remaining returns how long until the next request would be admitted.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	left := g.interval - g.now().Sub(g.last)
	if left < 0 {
		return 0
	}
	return left
}
