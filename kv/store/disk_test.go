package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBoltBackend opens a bolt backend in a per-test directory and
// ties its lifetime to the test.
func newTestBoltBackend(t *testing.T, path string) *BoltBackend {
	t.Helper()

	backend, err := NewBoltBackend(path)
	require.NoError(t, err, "opening the bolt backend must succeed")

	t.Cleanup(func() {
		_ = backend.Close()
	})

	return backend
}

// TestBoltBackend_Contract runs the shared backend contract against bbolt.
func TestBoltBackend_Contract(t *testing.T) {
	t.Parallel()

	backend := newTestBoltBackend(t, filepath.Join(t.TempDir(), "kv.db"))

	runBackendContract(t, backend)
}

// TestBoltBackend_Persistence verifies data survives a close/reopen cycle.
func TestBoltBackend_Persistence(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kv.db")

	first, err := NewBoltBackend(path)
	require.NoError(t, err)

	require.NoError(t, first.Set("alpha", map[string]any{"info": "first"}))
	require.NoError(t, first.Close())

	second := newTestBoltBackend(t, path)

	got, err := second.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"info": "first"}, got)
}

// TestBoltBackend_CreatesParentDirectory verifies missing directories
// are created on open.
func TestBoltBackend_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "kv.db")

	backend := newTestBoltBackend(t, path)
	require.NoError(t, backend.Set("k", "v"))
}
