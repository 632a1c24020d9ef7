package detect

import (
	"time"

	"trophyd/internal/catalog"
)

// Composite ORs several sub-patterns: the first sub-detector to fire
// satisfies the whole detector, and every sub-pattern is disarmed with it.
// Sub-detectors keep their own ids internally but the composite reports
// only its own achievement.
type Composite struct {
	base
	subs []Detector
}

// NewComposite creates a composite detector over the given sub-patterns.
func NewComposite(id catalog.ID, subs ...Detector) *Composite {
	return &Composite{base: newBase(id), subs: subs}
}

// OnEvent implements Detector.
func (c *Composite) OnEvent(ev Event) (catalog.ID, bool) {
	if !c.armed {
		return "", false
	}

	for _, sub := range c.subs {
		if _, fired := sub.OnEvent(ev); fired {
			for _, other := range c.subs {
				other.Disarm()
			}
			return c.fire()
		}
	}
	return "", false
}

// Disarm implements Detector, disarming every sub-pattern too.
func (c *Composite) Disarm() {
	c.base.Disarm()
	for _, sub := range c.subs {
		sub.Disarm()
	}
}

// Rearm implements Detector.
func (c *Composite) Rearm() {
	for _, sub := range c.subs {
		sub.Rearm()
	}
	c.rearmBase()
}

// LongPress fires on a single long-press event at or past the minimum
// duration. Intended as a composite sub-pattern.
type LongPress struct {
	base
	min time.Duration
}

// NewLongPress creates a long-press detector.
func NewLongPress(id catalog.ID, min time.Duration) *LongPress {
	return &LongPress{base: newBase(id), min: min}
}

// OnEvent implements Detector.
func (l *LongPress) OnEvent(ev Event) (catalog.ID, bool) {
	if !l.armed || ev.Type != EventLongPress {
		return "", false
	}
	if ev.Duration >= l.min {
		return l.fire()
	}
	return "", false
}

// Rearm implements Detector.
func (l *LongPress) Rearm() {
	l.rearmBase()
}
