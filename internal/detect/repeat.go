package detect

import (
	"time"

	"trophyd/internal/catalog"
)

// RapidRepeat fires when count events of one type arrive with no gap
// longer than the window between consecutive events. A gap resets the
// counter to 1.
type RapidRepeat struct {
	base
	accept EventType
	count  int
	window time.Duration

	streak int
	last   time.Time
}

// NewRapidRepeat creates a rapid-repeat detector.
func NewRapidRepeat(id catalog.ID, accept EventType, count int, window time.Duration) *RapidRepeat {
	return &RapidRepeat{base: newBase(id), accept: accept, count: count, window: window}
}

// OnEvent implements Detector.
func (r *RapidRepeat) OnEvent(ev Event) (catalog.ID, bool) {
	if !r.armed || ev.Type != r.accept {
		return "", false
	}

	if !r.last.IsZero() && ev.At.Sub(r.last) <= r.window {
		r.streak++
	} else {
		r.streak = 1
	}
	r.last = ev.At

	if r.streak >= r.count {
		r.streak = 0
		r.last = time.Time{}
		return r.fire()
	}
	return "", false
}

// Rearm implements Detector.
func (r *RapidRepeat) Rearm() {
	r.streak = 0
	r.last = time.Time{}
	r.rearmBase()
}
