// Package detect holds the event-driven unlock detectors.
//
// Each detector is a small state machine over one stream of host input
// events. Detectors never touch persistence: they only yield the id of the
// achievement whose condition was just met. The host layer is responsible
// for translating raw input (DOM events, terminal keys, sensor readings)
// into the tagged Event type fed here.
package detect

import "time"

// EventType discriminates host input events.
type EventType string

const (
	EventKey       EventType = "key"
	EventClick     EventType = "click"
	EventScroll    EventType = "scroll"
	EventTick      EventType = "tick"
	EventLongPress EventType = "longpress"
	EventNavStep   EventType = "nav"
)

// Event is the tagged union of host input events.
// Only the fields relevant to the Type are set.
type Event struct {
	Type EventType

	// Value is the key token for EventKey, or the step name for EventNavStep.
	Value string

	// DeltaPx is the scroll distance for EventScroll. Negative means
	// upward scroll; detectors that only care about distance use the
	// absolute value.
	DeltaPx float64

	// Duration is the press length for EventLongPress.
	Duration time.Duration

	// At is when the event occurred. The host sets it; a zero At is
	// filled with time.Now by the manager.
	At time.Time
}

// KeyEvent builds a key event.
func KeyEvent(value string, at time.Time) Event {
	return Event{Type: EventKey, Value: value, At: at}
}

// ClickEvent builds a click event.
func ClickEvent(at time.Time) Event {
	return Event{Type: EventClick, At: at}
}

// ScrollEvent builds a scroll event.
func ScrollEvent(deltaPx float64, at time.Time) Event {
	return Event{Type: EventScroll, DeltaPx: deltaPx, At: at}
}

// TickEvent builds a periodic tick event.
func TickEvent(at time.Time) Event {
	return Event{Type: EventTick, At: at}
}

// LongPressEvent builds a long-press event.
func LongPressEvent(d time.Duration, at time.Time) Event {
	return Event{Type: EventLongPress, Duration: d, At: at}
}

// NavStepEvent builds a navigation-step event.
func NavStepEvent(step string, at time.Time) Event {
	return Event{Type: EventNavStep, Value: step, At: at}
}
