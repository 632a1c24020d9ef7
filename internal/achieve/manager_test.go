package achieve

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trophyd/internal/anomaly"
	"trophyd/internal/catalog"
	"trophyd/internal/detect"
	"trophyd/internal/signature"
	"trophyd/internal/storage"
	"trophyd/internal/store"
)

var sessionStart = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newStore(medium storage.Medium) *store.Store {
	cat := catalog.Default()
	return store.New(cat, medium,
		signature.New("test-secret", signature.ModeLegacy),
		anomaly.New(anomaly.DefaultPolicy(), cat.Size()),
		slog.Default())
}

func newManager(medium storage.Medium) *Manager {
	return New(catalog.Default(), newStore(medium),
		detect.DefaultSet(sessionStart), slog.Default())
}

// feedKonami pushes the full code starting at the given time.
func feedKonami(m *Manager, start time.Time) {
	for i, tok := range detect.KonamiCode {
		m.Feed(detect.KeyEvent(tok, start.Add(time.Duration(i)*100*time.Millisecond)))
	}
}

func TestFeedUnlocksAndNotifiesOnce(t *testing.T) {
	m := newManager(storage.NewMemory())

	var got []Notification
	m.Subscribe(func(n Notification) { got = append(got, n) })

	feedKonami(m, sessionStart)

	require.Len(t, got, 1)
	assert.Equal(t, catalog.ID("konami"), got[0].ID)
	assert.Equal(t, "Old School", got[0].DisplayName)
	assert.True(t, m.Unlocked("konami"))
	assert.Equal(t, []catalog.ID{"konami"}, m.UnlockedIDs())

	// Entering the code again must not re-notify.
	feedKonami(m, sessionStart.Add(time.Minute))
	assert.Len(t, got, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	m := newManager(storage.NewMemory())

	var got []Notification
	unsubscribe := m.Subscribe(func(n Notification) { got = append(got, n) })
	unsubscribe()

	feedKonami(m, sessionStart)
	assert.Empty(t, got)
	// The unlock itself still happened.
	assert.True(t, m.Unlocked("konami"))
}

func TestAlreadyUnlockedDetectorsDisarmedOnStartup(t *testing.T) {
	medium := storage.NewMemory()

	// First session unlocks konami and persists it.
	feedKonami(newManager(medium), sessionStart)

	// Second session over the same medium starts with it unlocked and
	// never re-notifies.
	m := newManager(medium)
	assert.True(t, m.Unlocked("konami"))

	var got []Notification
	m.Subscribe(func(n Notification) { got = append(got, n) })
	feedKonami(m, sessionStart.Add(time.Hour))
	assert.Empty(t, got)
}

func TestTamperedMediumStartsEmpty(t *testing.T) {
	medium := storage.NewMemory()
	feedKonami(newManager(medium), sessionStart)

	// Hand-edit the persisted set.
	require.NoError(t, medium.SetItem(store.KeyUnlocked, `["konami","hacker"]`))

	m := newManager(medium)
	assert.Empty(t, m.UnlockedIDs())
	// Progress is re-earnable after the wipe.
	feedKonami(m, sessionStart.Add(time.Hour))
	assert.True(t, m.Unlocked("konami"))
}

func TestReloadPicksUpExternalReset(t *testing.T) {
	medium := storage.NewMemory()
	m := newManager(medium)
	feedKonami(m, sessionStart)
	require.True(t, m.Unlocked("konami"))

	// External wipe, then a tampered re-write of one key.
	require.NoError(t, medium.RemoveItem(store.KeySignature))
	m.Reload()

	assert.Empty(t, m.UnlockedIDs())
	assert.False(t, m.Unlocked("konami"))
}

func TestMultipleUnlocksAccumulate(t *testing.T) {
	m := newManager(storage.NewMemory())

	var got []Notification
	m.Subscribe(func(n Notification) { got = append(got, n) })

	feedKonami(m, sessionStart)
	// Clicks spaced 2s apart stay inside the tapper window but reset the
	// faster hacker click pattern.
	for i := 0; i < detect.TapperClicks; i++ {
		m.Feed(detect.ClickEvent(sessionStart.Add(time.Minute + time.Duration(i)*2*time.Second)))
	}

	require.Len(t, got, 2)
	assert.Equal(t, []catalog.ID{"konami", "tapper"}, m.UnlockedIDs())
}

func TestCatalogExposed(t *testing.T) {
	m := newManager(storage.NewMemory())
	assert.Len(t, m.Catalog(), catalog.Default().Size())
}

func TestZeroEventTimeFilled(t *testing.T) {
	m := newManager(storage.NewMemory())

	// Clicks with a zero At get stamped by the manager clock; ten in a
	// burst land inside the tapper window.
	for i := 0; i < detect.TapperClicks; i++ {
		m.Feed(detect.Event{Type: detect.EventClick})
	}
	assert.True(t, m.Unlocked("tapper"))
}
