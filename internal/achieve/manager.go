// Package achieve is the public facade of the achievement engine.
//
// The manager wires the detector set to the integrity store: host input
// events go in through Feed, newly unlocked achievements come out through
// subscriber callbacks. Callers never see tamper or persistence errors;
// those are handled at the store boundary.
package achieve

import (
	"log/slog"
	"sync"
	"time"

	"trophyd/internal/catalog"
	"trophyd/internal/detect"
	"trophyd/internal/store"
)

// Notification is delivered once per newly unlocked achievement.
type Notification struct {
	ID          catalog.ID
	DisplayName string
	Description string
}

// Manager routes events to detectors and unlocks through the store.
type Manager struct {
	mu        sync.Mutex
	cat       *catalog.Catalog
	store     *store.Store
	detectors []detect.Detector
	logger    *slog.Logger
	now       func() time.Time

	unlocked map[catalog.ID]struct{}

	subMu   sync.Mutex
	subs    map[int]func(Notification)
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a manager. The store is loaded immediately and detectors
// for already-unlocked achievements are disarmed.
func New(cat *catalog.Catalog, st *store.Store, detectors []detect.Detector, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cat:       cat,
		store:     st,
		detectors: detectors,
		logger:    logger.With("component", "achievement_manager"),
		now:       time.Now,
		unlocked:  make(map[catalog.ID]struct{}),
		subs:      make(map[int]func(Notification)),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, id := range st.Load() {
		m.unlocked[id] = struct{}{}
	}
	m.disarmUnlocked()

	return m
}

// Catalog returns the static achievement catalog.
func (m *Manager) Catalog() []catalog.Achievement {
	return m.cat.All()
}

// UnlockedIDs returns the current trusted unlocked set.
func (m *Manager) UnlockedIDs() []catalog.ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]catalog.ID, 0, len(m.unlocked))
	for _, a := range m.cat.All() {
		if _, ok := m.unlocked[a.ID]; ok {
			out = append(out, a.ID)
		}
	}
	return out
}

// Unlocked reports whether id is unlocked.
func (m *Manager) Unlocked(id catalog.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.unlocked[id]
	return ok
}

// Feed routes one host event to every armed detector, unlocking through
// the integrity store whenever a detector fires.
func (m *Manager) Feed(ev detect.Event) {
	if ev.At.IsZero() {
		ev.At = m.now()
	}

	m.mu.Lock()
	var fired []catalog.ID
	for _, d := range m.detectors {
		if !d.Armed() {
			continue
		}
		if id, ok := d.OnEvent(ev); ok {
			fired = append(fired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range fired {
		m.unlock(id)
	}
}

// Subscribe registers a callback invoked once per newly unlocked
// achievement, in unlock order. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(Notification)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	token := m.nextSub
	m.nextSub++
	m.subs[token] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, token)
	}
}

// Reload re-validates persisted state and refreshes the in-memory set.
// The tamper watcher calls this when the state file changes externally.
func (m *Manager) Reload() {
	ids := m.store.Load()

	m.mu.Lock()
	m.unlocked = make(map[catalog.ID]struct{}, len(ids))
	for _, id := range ids {
		m.unlocked[id] = struct{}{}
	}
	m.mu.Unlock()
}

func (m *Manager) unlock(id catalog.ID) {
	res, err := m.store.Unlock(id)
	if err != nil {
		// A detector yielding an id outside the catalog is a wiring bug.
		m.logger.Error("unlock rejected", "id", id, "error", err)
		return
	}

	m.mu.Lock()
	m.unlocked = make(map[catalog.ID]struct{}, len(res.Set))
	for _, sid := range res.Set {
		m.unlocked[sid] = struct{}{}
	}
	m.disarmUnlockedLocked()
	m.mu.Unlock()

	if res.AlreadyUnlocked {
		return
	}

	a, _ := m.cat.Get(id)
	m.notify(Notification{ID: id, DisplayName: a.DisplayName, Description: a.Description})
	m.logger.Info("achievement unlocked", "id", id, "durable", m.store.Durable())
}

func (m *Manager) notify(n Notification) {
	m.subMu.Lock()
	fns := make([]func(Notification), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}

func (m *Manager) disarmUnlocked() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disarmUnlockedLocked()
}

func (m *Manager) disarmUnlockedLocked() {
	for _, d := range m.detectors {
		if _, ok := m.unlocked[d.ID()]; ok && d.Armed() {
			d.Disarm()
		}
	}
}
