// Package catalog defines the static achievement catalog.
//
// The catalog is fixed configuration: id, display name, description, icon.
// It carries no mutable state and is safe for concurrent reads. The
// integrity store rejects any id that is not a catalog member.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ID is an opaque, stable achievement identifier.
type ID string

// Errors
var (
	ErrEmptyCatalog = errors.New("catalog: no achievements defined")
	ErrDuplicateID  = errors.New("catalog: duplicate achievement id")
	ErrInvalidID    = errors.New("catalog: invalid achievement id")
)

// Achievement describes one entry in the catalog.
type Achievement struct {
	ID          ID     `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

// Catalog is an immutable set of achievements.
type Catalog struct {
	entries []Achievement
	byID    map[ID]Achievement
}

// New builds a catalog from the given achievements.
// IDs must be non-empty, unique, and must not contain the canonical
// serialization delimiters used by the signature engine.
func New(entries []Achievement) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	byID := make(map[ID]Achievement, len(entries))
	for _, a := range entries {
		if err := validateID(a.ID); err != nil {
			return nil, err
		}
		if _, exists := byID[a.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, a.ID)
		}
		byID[a.ID] = a
	}

	out := make([]Achievement, len(entries))
	copy(out, entries)

	return &Catalog{entries: out, byID: byID}, nil
}

// LoadFile reads a catalog definition from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc struct {
		Achievements []Achievement `yaml:"achievements"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	return New(doc.Achievements)
}

// Contains reports whether id is a catalog member.
func (c *Catalog) Contains(id ID) bool {
	_, ok := c.byID[id]
	return ok
}

// Get returns the achievement for id.
func (c *Catalog) Get(id ID) (Achievement, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// All returns the achievements in definition order.
func (c *Catalog) All() []Achievement {
	out := make([]Achievement, len(c.entries))
	copy(out, c.entries)
	return out
}

// Size returns the number of achievements in the catalog.
func (c *Catalog) Size() int {
	return len(c.entries)
}

// IDs returns all catalog ids in definition order.
func (c *Catalog) IDs() []ID {
	out := make([]ID, 0, len(c.entries))
	for _, a := range c.entries {
		out = append(out, a.ID)
	}
	return out
}

func validateID(id ID) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.ContainsAny(string(id), "|:") {
		return fmt.Errorf("%w: %q contains a reserved delimiter", ErrInvalidID, id)
	}
	return nil
}

// Default returns the built-in seven-achievement catalog.
func Default() *Catalog {
	c, err := New([]Achievement{
		{ID: "konami", DisplayName: "Old School", Description: "Enter the classic code", Icon: "🕹️"},
		{ID: "explorer", DisplayName: "Explorer", Description: "Scroll 20,000 pixels in one visit", Icon: "🧭"},
		{ID: "speedster", DisplayName: "Speedster", Description: "Race through five pages in ten seconds", Icon: "⚡"},
		{ID: "patient", DisplayName: "Patience of a Saint", Description: "Stay on the page for three minutes", Icon: "⏳"},
		{ID: "hacker", DisplayName: "H4x0r", Description: "Find one of the hidden back doors", Icon: "💻"},
		{ID: "shaker", DisplayName: "Shake It Off", Description: "Reverse scroll direction eight times in two seconds", Icon: "🪇"},
		{ID: "tapper", DisplayName: "Button Masher", Description: "Click ten times in three seconds", Icon: "👆"},
	})
	if err != nil {
		panic(err) // static data, cannot fail
	}
	return c
}
