package detect

import "trophyd/internal/catalog"

// Detector is a stateful pattern matcher over host input events.
//
// OnEvent returns the achievement id and true when the detector's
// condition is met by this event. A fired or disarmed detector returns
// false until re-armed. The armed/fired lifecycle is explicit so the
// manager can disarm detectors whose achievement is already unlocked and
// tests can assert one-shot behavior.
type Detector interface {
	// ID returns the achievement this detector unlocks.
	ID() catalog.ID

	// OnEvent feeds one event. Returns (id, true) exactly when the
	// condition transitions to met.
	OnEvent(ev Event) (catalog.ID, bool)

	// Armed reports whether the detector is still watching events.
	Armed() bool

	// Disarm stops the detector without firing (used when the
	// achievement is already unlocked).
	Disarm()

	// Rearm resets all transient state and starts watching again.
	Rearm()
}

// base carries the shared armed/fired lifecycle.
type base struct {
	id    catalog.ID
	armed bool
	fired bool
}

func newBase(id catalog.ID) base {
	return base{id: id, armed: true}
}

func (b *base) ID() catalog.ID { return b.id }

func (b *base) Armed() bool { return b.armed }

func (b *base) Disarm() { b.armed = false }

// fire marks the detector fired and disarmed, and returns the fire result.
func (b *base) fire() (catalog.ID, bool) {
	b.fired = true
	b.armed = false
	return b.id, true
}

func (b *base) rearmBase() {
	b.armed = true
	b.fired = false
}
