package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	calls atomic.Int32
}

func (c *countingReloader) Reload() { c.calls.Add(1) }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return cond()
}

func TestExternalWriteTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	target := &countingReloader{}
	w := New(path, 200*time.Millisecond, target, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	assert.True(t, waitFor(t, 3*time.Second, func() bool {
		return target.calls.Load() >= 1
	}), "reload never triggered")
}

func TestRapidWritesCollapseToOneReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	target := &countingReloader{}
	w := New(path, 300*time.Millisecond, target, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))
		time.Sleep(20 * time.Millisecond)
	}

	require.True(t, waitFor(t, 3*time.Second, func() bool {
		return target.calls.Load() >= 1
	}))
	// Quiet period after the burst: no further reloads accumulate.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestUnrelatedFileIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	target := &countingReloader{}
	w := New(path, 100*time.Millisecond, target, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0600))

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(0), target.calls.Load())
}

func TestRenameIntoPlaceTriggersReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	target := &countingReloader{}
	w := New(path, 100*time.Millisecond, target, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Atomic-write style: temp file then rename over the target.
	tmp := filepath.Join(dir, "state.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{}`), 0600))
	require.NoError(t, os.Rename(tmp, path))

	assert.True(t, waitFor(t, 3*time.Second, func() bool {
		return target.calls.Load() >= 1
	}))
}

func TestStopIsIdempotentAfterStart(t *testing.T) {
	dir := t.TempDir()
	target := &countingReloader{}
	w := New(filepath.Join(dir, "state.json"), 100*time.Millisecond, target, nil)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
