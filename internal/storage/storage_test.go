package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mediumUnderTest runs the shared contract test against every backend.
func mediumUnderTest(t *testing.T) map[string]Medium {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	db, err := OpenSQLite(filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Medium{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": db,
	}
}

func TestMediumContract(t *testing.T) {
	for name, m := range mediumUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			// Absent key.
			_, err := m.GetItem("missing")
			require.ErrorIs(t, err, ErrNotFound)

			// Set then get.
			require.NoError(t, m.SetItem("k1", "v1"))
			v, err := m.GetItem("k1")
			require.NoError(t, err)
			assert.Equal(t, "v1", v)

			// Overwrite.
			require.NoError(t, m.SetItem("k1", "v2"))
			v, err = m.GetItem("k1")
			require.NoError(t, err)
			assert.Equal(t, "v2", v)

			// Remove, including an absent key.
			require.NoError(t, m.RemoveItem("k1"))
			_, err = m.GetItem("k1")
			require.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, m.RemoveItem("k1"))
		})
	}
}

func TestBatchContract(t *testing.T) {
	for name, m := range mediumUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			batch, ok := m.(BatchMedium)
			require.True(t, ok, "%s should support batched writes", name)

			require.NoError(t, batch.SetItems(map[string]string{
				"a": "1",
				"b": "2",
				"c": "3",
			}))

			for key, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
				v, err := m.GetItem(key)
				require.NoError(t, err)
				assert.Equal(t, want, v)
			}
		})
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	f1, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f1.SetItem("k", "v"))

	f2, err := NewFile(path)
	require.NoError(t, err)
	v, err := f2.GetItem("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileCorruptContainerReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0600))

	f, err := NewFile(path)
	require.NoError(t, err)
	_, err = f.GetItem("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	db1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db1.SetItem("k", "v"))
	require.NoError(t, db1.Close())

	db2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer db2.Close()
	v, err := db2.GetItem("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestMemoryFailureInjection(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.SetItem("k", "v"))

	m.FailWrites = true
	require.ErrorIs(t, m.SetItem("k2", "v"), ErrUnavailable)
	require.ErrorIs(t, m.RemoveItem("k"), ErrUnavailable)
	require.ErrorIs(t, m.SetItems(map[string]string{"x": "y"}), ErrUnavailable)

	m.FailReads = true
	_, err := m.GetItem("k")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestStateFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	f, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetItem("k", "v"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
