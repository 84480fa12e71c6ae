package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDumpsLoads_RoundTrip verifies the core persistence property:
// clean(); loads(dumps_before); dumps_after == dumps_before.
func TestDumpsLoads_RoundTrip(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()

	require.NoError(t, backend.Set("alpha", map[string]any{"info": "first", "n": 1.0}))
	require.NoError(t, backend.Set("nested", []any{1.0, "two", map[string]any{"three": true}}))
	require.NoError(t, backend.Set("scalar", 42.0))

	before, err := Dumps(backend)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"alpha": {"info": "first", "n": 1},
		"nested": [1, "two", {"three": true}],
		"scalar": 42
	}`, before)

	require.NoError(t, backend.Clean())
	require.NoError(t, Loads(backend, before))

	after, err := Dumps(backend)
	require.NoError(t, err)
	assert.JSONEq(t, before, after)
}

// TestLoads_Merges verifies loads merges into existing contents rather
// than replacing them.
func TestLoads_Merges(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()

	require.NoError(t, backend.Set("kept", "old"))
	require.NoError(t, Loads(backend, `{"added": "new"}`))

	keys, err := backend.Keys("*")
	require.NoError(t, err)
	assert.Equal(t, []string{"added", "kept"}, keys)
}

// TestLoads_NonObjectRoot verifies a non-object root fails cleanly with
// no partial writes.
func TestLoads_NonObjectRoot(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()

	for _, body := range []string{`[1, 2, 3]`, `"text"`, `42`, `not json`} {
		require.ErrorIs(t, Loads(backend, body), ErrInvalidFormat, "body %q", body)
	}

	keys, err := backend.Keys("*")
	require.NoError(t, err)
	assert.Empty(t, keys, "failed loads must not write anything")
}

// TestDumpFileLoadFile verifies the file round-trip writes the dump
// verbatim and merges it back.
func TestDumpFileLoadFile(t *testing.T) {
	t.Parallel()

	var (
		source = NewMemoryBackend()
		target = NewMemoryBackend()
		path   = filepath.Join(t.TempDir(), "dump.json")
	)

	require.NoError(t, source.Set("alpha", map[string]any{"info": "first"}))
	require.NoError(t, DumpFile(source, path))

	require.NoError(t, LoadFile(target, path))

	got, err := target.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"info": "first"}, got)
}

// TestLoadFile_MissingPath verifies a missing file is reported, not
// swallowed.
func TestLoadFile_MissingPath(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()

	err := LoadFile(backend, filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, ErrLoadFileFailed)
}
