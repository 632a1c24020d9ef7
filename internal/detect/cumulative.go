package detect

import (
	"math"

	"trophyd/internal/catalog"
)

// Cumulative fires once an accumulated numeric total crosses the
// threshold, then stays inert for the session. Scroll distance counts in
// both directions.
type Cumulative struct {
	base
	accept    EventType
	threshold float64
	total     float64
}

// NewCumulative creates a cumulative-threshold detector.
func NewCumulative(id catalog.ID, accept EventType, threshold float64) *Cumulative {
	return &Cumulative{base: newBase(id), accept: accept, threshold: threshold}
}

// OnEvent implements Detector.
func (c *Cumulative) OnEvent(ev Event) (catalog.ID, bool) {
	if !c.armed || ev.Type != c.accept {
		return "", false
	}

	c.total += math.Abs(ev.DeltaPx)
	if c.total >= c.threshold {
		return c.fire()
	}
	return "", false
}

// Total returns the accumulated amount, for progress display.
func (c *Cumulative) Total() float64 {
	return c.total
}

// Rearm implements Detector.
func (c *Cumulative) Rearm() {
	c.total = 0
	c.rearmBase()
}
