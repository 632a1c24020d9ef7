package storage

import "sync"

// Memory is an in-memory Medium for tests and host-embedded use.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string

	// FailWrites makes SetItem and RemoveItem return ErrUnavailable,
	// simulating a quota-exceeded or disabled medium.
	FailWrites bool

	// FailReads makes GetItem return ErrUnavailable.
	FailReads bool
}

// NewMemory creates an empty in-memory medium.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

// GetItem implements Medium.
func (m *Memory) GetItem(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FailReads {
		return "", ErrUnavailable
	}
	v, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// SetItem implements Medium.
func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrUnavailable
	}
	m.items[key] = value
	return nil
}

// SetItems implements BatchMedium.
func (m *Memory) SetItems(items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrUnavailable
	}
	for k, v := range items {
		m.items[k] = v
	}
	return nil
}

// RemoveItem implements Medium.
func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrUnavailable
	}
	delete(m.items, key)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
