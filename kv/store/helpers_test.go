package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendContract exercises the parts of the Backend contract every
// implementation must share: round-trips, absence reporting, glob keys,
// clean, and byte accounting.
func runBackendContract(t *testing.T, backend Backend) {
	t.Helper()

	_, err := backend.Get("missing")
	require.ErrorIs(t, err, ErrKeyNotFound)

	found, err := backend.Exists("missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := map[string]any{"info": "first", "n": 1.0, "tags": []any{"a", "b"}}
	require.NoError(t, backend.Set("alpha", value))
	require.NoError(t, backend.Set("abeta", map[string]any{"info": "second"}))
	require.NoError(t, backend.Set("gamma", map[string]any{"info": "third"}))

	got, err := backend.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, value, got)

	// Overwrite on existing key.
	require.NoError(t, backend.Set("alpha", value))

	keys, err := backend.Keys("a*")
	require.NoError(t, err)
	assert.Equal(t, []string{"abeta", "alpha"}, keys)

	used, err := backend.BytesUsed(true)
	require.NoError(t, err)
	assert.Positive(t, used)

	existed, err := backend.Erase("abeta")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = backend.Erase("abeta")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, backend.Clean())

	keys, err = backend.Keys("*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
