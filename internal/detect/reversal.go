package detect

import (
	"time"

	"trophyd/internal/catalog"
)

// Reversal fires when scroll direction flips count times inside the
// window. A flip is a sign change between consecutive non-zero deltas.
type Reversal struct {
	base
	count  int
	window time.Duration

	lastSign int
	flips    []time.Time
}

// NewReversal creates a scroll-direction-reversal detector.
func NewReversal(id catalog.ID, count int, window time.Duration) *Reversal {
	return &Reversal{base: newBase(id), count: count, window: window}
}

// OnEvent implements Detector.
func (r *Reversal) OnEvent(ev Event) (catalog.ID, bool) {
	if !r.armed || ev.Type != EventScroll || ev.DeltaPx == 0 {
		return "", false
	}

	sign := 1
	if ev.DeltaPx < 0 {
		sign = -1
	}

	if r.lastSign != 0 && sign != r.lastSign {
		r.flips = append(r.flips, ev.At)
		// Drop flips that fell out of the rolling window.
		cutoff := ev.At.Add(-r.window)
		kept := r.flips[:0]
		for _, t := range r.flips {
			if !t.Before(cutoff) {
				kept = append(kept, t)
			}
		}
		r.flips = kept

		if len(r.flips) >= r.count {
			r.flips = nil
			r.lastSign = 0
			return r.fire()
		}
	}
	r.lastSign = sign

	return "", false
}

// Rearm implements Detector.
func (r *Reversal) Rearm() {
	r.flips = nil
	r.lastSign = 0
	r.rearmBase()
}
