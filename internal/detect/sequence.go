package detect

import "trophyd/internal/catalog"

// Sequence fires when the last K key tokens exactly match the target.
// The buffer is cleared on fire so a re-armed detector starts fresh.
type Sequence struct {
	base
	target []string
	accept EventType
	buffer []string
}

// NewSequence creates a sequence detector over key events.
func NewSequence(id catalog.ID, target []string) *Sequence {
	t := make([]string, len(target))
	copy(t, target)
	return &Sequence{base: newBase(id), target: t, accept: EventKey}
}

// NewNavSequence creates a sequence detector over navigation steps.
func NewNavSequence(id catalog.ID, target []string) *Sequence {
	s := NewSequence(id, target)
	s.accept = EventNavStep
	return s
}

// OnEvent implements Detector.
func (s *Sequence) OnEvent(ev Event) (catalog.ID, bool) {
	if !s.armed || ev.Type != s.accept {
		return "", false
	}

	s.buffer = append(s.buffer, ev.Value)
	if len(s.buffer) > len(s.target) {
		s.buffer = s.buffer[len(s.buffer)-len(s.target):]
	}

	if len(s.buffer) < len(s.target) {
		return "", false
	}
	for i := range s.target {
		if s.buffer[i] != s.target[i] {
			return "", false
		}
	}

	s.buffer = nil
	return s.fire()
}

// Rearm implements Detector.
func (s *Sequence) Rearm() {
	s.buffer = nil
	s.rearmBase()
}
