package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Medium backed by a single JSON file holding the key/value map.
//
// Writes go through a temp-file rename so a crash mid-write never leaves a
// half-written state file. The file is created 0600; achievement state is
// low-value but there is no reason to share it.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file medium at path, creating the parent directory.
func NewFile(path string) (*File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create state directory: %v", ErrUnavailable, err)
	}
	return &File{path: path}, nil
}

// Path returns the state file path.
func (f *File) Path() string {
	return f.path
}

// GetItem implements Medium.
func (f *File) GetItem(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// SetItem implements Medium.
func (f *File) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	items[key] = value
	return f.write(items)
}

// SetItems implements BatchMedium. The whole map lands in one rename.
func (f *File) SetItems(items map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.read()
	if err != nil {
		return err
	}
	for k, v := range items {
		current[k] = v
	}
	return f.write(current)
}

// RemoveItem implements Medium.
func (f *File) RemoveItem(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return f.write(items)
}

func (f *File) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("%w: read state file: %v", ErrUnavailable, err)
	}

	items := make(map[string]string)
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		// A corrupt container file is indistinguishable from tampering;
		// surface it as an empty medium so the store's validation resets.
		return make(map[string]string), nil
	}
	return items, nil
}

func (f *File) write(items map[string]string) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode state: %v", ErrUnavailable, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("%w: write state file: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replace state file: %v", ErrUnavailable, err)
	}
	return nil
}
