// Package storage abstracts the key/value persistence medium the
// integrity store writes through.
//
// The contract mirrors web localStorage: synchronous string-keyed get,
// set, and remove, any of which may fail when the medium is unavailable.
// Backends: in-memory map (tests, host-embedded use), single JSON file,
// and SQLite.
package storage

import "errors"

// Errors
var (
	// ErrNotFound is returned by GetItem for an absent key.
	ErrNotFound = errors.New("storage: key not found")

	// ErrUnavailable wraps backend failures (quota, permissions, closed
	// database). The integrity store maps it to degraded mode.
	ErrUnavailable = errors.New("storage: medium unavailable")
)

// Medium is the synchronous key/value persistence contract.
type Medium interface {
	// GetItem returns the value for key, or ErrNotFound.
	GetItem(key string) (string, error)

	// SetItem stores value under key, overwriting any previous value.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(key string) error
}

// BatchMedium is implemented by backends that can commit several keys in
// one atomic write. The integrity store prefers it when available so a
// crash cannot persist the id list without its matching signature.
type BatchMedium interface {
	Medium

	// SetItems stores all entries atomically.
	SetItems(items map[string]string) error
}
