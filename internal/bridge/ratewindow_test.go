package bridge

import (
	"errors"
	"testing"
	"time"
)

func TestRateWindow_HardCap(t *testing.T) {
	// For every cap up to the default, the cap-plus-first send inside one
	// window must be rejected.
	for cap := 1; cap <= DefaultRateCap; cap++ {
		w := NewRateWindow(cap, time.Second)
		now := time.Unix(1700000000, 0)

		for i := 0; i < cap; i++ {
			if err := w.Allow(now.Add(time.Duration(i) * time.Millisecond)); err != nil {
				t.Fatalf("cap %d: send %d rejected early: %v", cap, i, err)
			}
		}

		err := w.Allow(now.Add(500 * time.Millisecond))
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("cap %d: send %d error = %v, want ErrRateLimited", cap, cap+1, err)
		}
	}
}

func TestRateWindow_SlidesForward(t *testing.T) {
	w := NewRateWindow(2, time.Second)
	base := time.Unix(1700000000, 0)

	if err := w.Allow(base); err != nil {
		t.Fatal(err)
	}
	if err := w.Allow(base.Add(100 * time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := w.Allow(base.Add(200 * time.Millisecond)); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third send inside window error = %v, want ErrRateLimited", err)
	}

	// Past the window the old stamps fall out.
	if err := w.Allow(base.Add(1100 * time.Millisecond)); err != nil {
		t.Errorf("send after window slid error = %v, want nil", err)
	}
	if got := w.InFlight(); got != 2 {
		t.Errorf("InFlight() = %d, want 2", got)
	}
}

func TestRateWindow_Defaults(t *testing.T) {
	w := NewRateWindow(0, 0)
	if w.cap != DefaultRateCap || w.interval != DefaultRateInterval {
		t.Errorf("defaults = (%d, %v), want (%d, %v)", w.cap, w.interval, DefaultRateCap, DefaultRateInterval)
	}
}
