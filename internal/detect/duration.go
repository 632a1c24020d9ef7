package detect

import (
	"time"

	"trophyd/internal/catalog"
)

// Duration fires on the first tick at or past the dwell threshold,
// measured from session start. One-shot.
type Duration struct {
	base
	start     time.Time
	threshold time.Duration
}

// NewDuration creates a dwell-time detector. The session starts at
// construction time.
func NewDuration(id catalog.ID, threshold time.Duration, start time.Time) *Duration {
	if start.IsZero() {
		start = time.Now()
	}
	return &Duration{base: newBase(id), start: start, threshold: threshold}
}

// OnEvent implements Detector. Only tick events advance the clock.
func (d *Duration) OnEvent(ev Event) (catalog.ID, bool) {
	if !d.armed || ev.Type != EventTick {
		return "", false
	}

	if ev.At.Sub(d.start) >= d.threshold {
		return d.fire()
	}
	return "", false
}

// Elapsed returns time on page as of the given instant.
func (d *Duration) Elapsed(now time.Time) time.Duration {
	return now.Sub(d.start)
}

// Rearm implements Detector. The dwell clock restarts now.
func (d *Duration) Rearm() {
	d.start = time.Now()
	d.rearmBase()
}
