package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBroker_FIFO replays the end-to-end FIFO scenario: three pushes
// drain in order and the empty queue reports nil.
func TestBroker_FIFO(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	for i := 1; i <= 3; i++ {
		key, err := b.Push(map[string]any{"n": i}, "")
		require.NoError(t, err)
		assert.NotEmpty(t, key)
	}

	size, err := b.QueueSize("")
	require.NoError(t, err)
	assert.EqualValues(t, 3, size)

	for i := 1; i <= 3; i++ {
		message, err := b.Pop("")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"n": i}, message)
	}

	message, err := b.Pop("")
	require.NoError(t, err)
	assert.Nil(t, message, "popping an empty queue returns nil")

	size, err = b.QueueSize("")
	require.NoError(t, err)
	assert.Zero(t, size)
}

// TestBroker_PeekIsolation verifies peek neither consumes the head nor
// changes the size.
func TestBroker_PeekIsolation(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	_, err := b.Push(map[string]any{"a": 1}, "")
	require.NoError(t, err)

	peeked, err := b.Peek("")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, peeked)

	size, err := b.QueueSize("")
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	popped, err := b.Pop("")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, popped)
}

// TestBroker_ListenerPanicIsolated replays the listener-failure
// scenario: a throwing listener on the queue affects neither the push
// result nor later pops.
func TestBroker_ListenerPanicIsolated(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	b.AddListener("Q", func(any) {
		panic("listener exploded")
	}, KindPushed)

	key, err := b.Push(map[string]any{"ok": true}, "Q")
	require.NoError(t, err)
	assert.NotEmpty(t, key)

	size, err := b.QueueSize("Q")
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	message, err := b.Pop("Q")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, message)
}

// TestBroker_Events verifies the pushed/popped/empty/cleared lifecycle
// events fire with the documented payloads.
func TestBroker_Events(t *testing.T) {
	t.Parallel()

	var (
		b      = NewBroker(nil, nil, Options{})
		pushed []any
		popped []any
		kinds  []string
	)

	b.AddListener("q", func(payload any) {
		pushed = append(pushed, payload)
		kinds = append(kinds, KindPushed)
	}, KindPushed)
	b.AddListener("q", func(payload any) {
		popped = append(popped, payload)
		kinds = append(kinds, KindPopped)
	}, KindPopped)
	b.AddListener("q", func(any) {
		kinds = append(kinds, KindEmpty)
	}, KindEmpty)
	b.AddListener("q", func(any) {
		kinds = append(kinds, KindCleared)
	}, KindCleared)

	_, err := b.Push(map[string]any{"m": 1}, "q")
	require.NoError(t, err)

	_, err = b.Pop("q")
	require.NoError(t, err)

	require.NoError(t, b.Clear("q"))

	assert.Equal(t, []any{map[string]any{"message": map[string]any{"m": 1}}}, pushed)
	assert.Equal(t, []any{map[string]any{"message": map[string]any{"m": 1}}}, popped)
	assert.Equal(t, []string{KindPushed, KindPopped, KindEmpty, KindCleared}, kinds,
		"draining the last item must also fire the empty event")
}

// TestBroker_QueueIsolation verifies queues with different names share
// no state and a failing listener in one never blocks the other.
func TestBroker_QueueIsolation(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	b.AddListener("noisy", func(any) {
		panic("noisy listener")
	}, KindPushed)

	_, err := b.Push(map[string]any{"n": 1}, "noisy")
	require.NoError(t, err)

	_, err = b.Push(map[string]any{"n": 2}, "quiet")
	require.NoError(t, err)

	noisySize, err := b.QueueSize("noisy")
	require.NoError(t, err)

	quietSize, err := b.QueueSize("quiet")
	require.NoError(t, err)

	assert.EqualValues(t, 1, noisySize)
	assert.EqualValues(t, 1, quietSize)

	message, err := b.Pop("quiet")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 2}, message)
}

// TestBroker_HoleAdvance verifies pops skip slots whose items have
// disappeared (as eviction does) without reordering the remainder.
func TestBroker_HoleAdvance(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	for i := 1; i <= 3; i++ {
		_, err := b.Push(map[string]any{"n": i}, "q")
		require.NoError(t, err)
	}

	// Punch a hole at the head, as an eviction would.
	_, err := b.cache.Erase(b.itemKey("q", 0))
	require.NoError(t, err)

	message, err := b.Pop("q")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 2}, message, "the head must skip the hole")

	message, err = b.Pop("q")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 3}, message)

	size, err := b.QueueSize("q")
	require.NoError(t, err)
	assert.Zero(t, size)
}

// TestBroker_MetaSelfHealing verifies corrupt meta rows are reset to
// {0,0} on the next read.
func TestBroker_MetaSelfHealing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta any
	}{
		{"negative head", map[string]any{"head": -1, "tail": 3}},
		{"tail below head", map[string]any{"head": 5, "tail": 2}},
		{"non-integer members", map[string]any{"head": "zero", "tail": 3}},
		{"fractional members", map[string]any{"head": 0.5, "tail": 3}},
		{"wrong shape", []any{1, 2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := NewBroker(nil, nil, Options{})

			require.NoError(t, b.cache.Set(b.metaKey("q"), tc.meta))

			size, err := b.QueueSize("q")
			require.NoError(t, err)
			assert.Zero(t, size, "corrupt meta must heal to an empty queue")

			meta, err := b.loadMeta("q")
			require.NoError(t, err)
			assert.Equal(t, queueMeta{}, meta)
		})
	}
}

// TestBroker_MetaSurvivesDumpRoundTrip verifies meta parsed from
// float64-bearing JSON (as after dumps/loads) still validates.
func TestBroker_MetaSurvivesDumpRoundTrip(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	require.NoError(t, b.cache.Set(b.metaKey("q"), map[string]any{
		"head": float64(1),
		"tail": float64(3),
	}))

	size, err := b.QueueSize("q")
	require.NoError(t, err)
	assert.EqualValues(t, 2, size)
}

// TestBroker_Clear verifies clearing removes items and meta.
func TestBroker_Clear(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	for i := range 3 {
		_, err := b.Push(map[string]any{"n": i}, "q")
		require.NoError(t, err)
	}

	require.NoError(t, b.Clear("q"))

	size, err := b.QueueSize("q")
	require.NoError(t, err)
	assert.Zero(t, size)

	keys, err := b.cache.Keys(RootKey + ":*")
	require.NoError(t, err)
	assert.Len(t, keys, 1, "only the meta row recreated by the size read should remain")
}

// TestBroker_ListQueues verifies queue names are recovered from item and
// meta keys, with untranslatable segments returned in encoded form.
func TestBroker_ListQueues(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	_, err := b.Push(map[string]any{"n": 1}, "alpha")
	require.NoError(t, err)

	_, err = b.Push(map[string]any{"n": 2}, "beta queue")
	require.NoError(t, err)

	// A foreign row whose name segment is not valid base64url.
	require.NoError(t, b.cache.Set(RootKey+":!!!:0", map[string]any{"n": 3}))

	queues, err := b.ListQueues()
	require.NoError(t, err)
	assert.Equal(t, []string{"!!!", "alpha", "beta queue"}, queues)
}

// TestBroker_Listeners verifies listener listing and removal by raw id.
func TestBroker_Listeners(t *testing.T) {
	t.Parallel()

	b := NewBroker(nil, nil, Options{})

	id := b.AddListener("q", func(any) {}, KindPushed, "listener-1")
	assert.Equal(t, "listener-1", id)

	b.AddListener("q", func(any) {}, KindPopped)
	b.AddListener("other", func(any) {}, KindPushed)

	assert.Len(t, b.ListListeners("q", ""), 2)
	assert.Len(t, b.ListListeners("q", KindPushed), 1)
	assert.Len(t, b.ListListeners("", ""), 3)

	assert.Equal(t, 1, b.RemoveListener("listener-1"))
	assert.Empty(t, b.ListListeners("q", KindPushed))
}

// TestBroker_DefaultKindIsPushed verifies AddListener falls back to the
// pushed event when no kind is given.
func TestBroker_DefaultKindIsPushed(t *testing.T) {
	t.Parallel()

	var (
		b     = NewBroker(nil, nil, Options{})
		calls int
	)

	b.AddListener("q", func(any) { calls++ }, "")

	_, err := b.Push(map[string]any{"n": 1}, "q")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}
