package bridge

import (
	"errors"
	"sync"
	"time"
)

const (
	// DefaultRateCap is the default maximum number of sends permitted
	// inside one sliding window. Tunable, not an invariant.
	DefaultRateCap = 30

	// DefaultRateInterval is the default sliding-window length.
	DefaultRateInterval = time.Second
)

// ErrRateLimited is returned when the send-rate circuit breaker trips.
// It is a hard stop against feedback loops, not a silent drop: callers
// must abort the send and surface the failure.
var ErrRateLimited = errors.New("bridge: send rate limit exceeded")

// RateWindow is a sliding-window send counter. It records the timestamp
// of every permitted send and refuses once the window holds the cap.
type RateWindow struct {
	mu       sync.Mutex
	cap      int
	interval time.Duration
	stamps   []time.Time
}

// NewRateWindow creates a RateWindow with the given cap and window length.
// Non-positive arguments fall back to the defaults.
func NewRateWindow(cap int, interval time.Duration) *RateWindow {
	if cap <= 0 {
		cap = DefaultRateCap
	}
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	return &RateWindow{cap: cap, interval: interval}
}

// Allow trims timestamps older than the window, then admits the send at
// now if the trimmed window is below the cap. Exceeding the cap returns
// ErrRateLimited.
func (w *RateWindow) Allow(now time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.interval)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.cap {
		return ErrRateLimited
	}

	w.stamps = append(w.stamps, now)
	return nil
}

// InFlight returns the number of sends currently counted in the window.
func (w *RateWindow) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.stamps)
}
