package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/qinhy/singleton-key-value-storage/kv/cache"
	"github.com/qinhy/singleton-key-value-storage/kv/store"
)

const (
	// ManifestKey is the pinned row holding the ordered operation ids.
	ManifestKey = "_Operation"
	// opsField is the manifest member carrying the id list.
	opsField = "ops"
	// forwardField and revertField are the operation record members.
	forwardField = "forward"
	revertField  = "revert"

	// DefaultLimitMemoryMB is the budget used when Options does not set one.
	DefaultLimitMemoryMB = 128.0
)

var (
	// ErrUnknownVersion is returned by ToVersion for an id that is not
	// in the manifest.
	ErrUnknownVersion = errors.New("unknown version")
	// ErrCurrentVersionEvicted is returned after memory pressure has
	// evicted the operation the current pointer referred to.
	ErrCurrentVersionEvicted = errors.New("current version evicted")
	// ErrNavigationStalled is returned by ToVersion when a step cannot
	// make progress (e.g. the current record has no revert).
	ErrNavigationStalled = errors.New("version navigation made no progress")
)

// Record is one reversible edit: a forward operation array and the
// operation array that undoes it. Revert may be nil.
type Record struct {
	Forward []any
	Revert  []any
}

// Popped pairs an operation id with its record, as returned by PopOperation.
type Popped struct {
	ID     string
	Record Record
}

// ApplyFunc applies one operation array against some store.
type ApplyFunc func(op []any) error

// Options configures a Log.
type Options struct {
	// LimitMemoryMB is the byte budget of the operation cache in
	// megabytes; exceeding it after an append produces a warning, not
	// an abort. Zero or negative falls back to DefaultLimitMemoryMB.
	LimitMemoryMB float64

	// Policy selects the operation cache's eviction order. Empty falls
	// back to FIFO, which matches "oldest operations fall off first".
	Policy string
}

// Log is an ordered operation log with a movable current pointer.
//
// The current pointer names the operation that would next be reverted;
// empty means "before the first operation". Appending while the pointer
// sits mid-history truncates the redo tail.
type Log struct {
	client  *cache.Cache
	limitMB float64

	current string
	// pinnedOp is the most recently appended operation row, pinned so
	// its own insertion cannot evict it.
	pinnedOp string
	// evicted is set when eviction removed the current version; the
	// next navigation or pop call surfaces it.
	evicted error
}

// New creates a Log over a private memory-capped FIFO cache whose
// manifest row is pinned.
func New(opts Options) *Log {
	limitMB := opts.LimitMemoryMB
	if limitMB <= 0 {
		limitMB = DefaultLimitMemoryMB
	}

	policy := opts.Policy
	if policy == "" {
		policy = "fifo"
	}

	log := &Log{limitMB: limitMB}

	log.client = cache.New(store.NewMemoryBackend(), cache.Options{
		MaxMemoryMB: limitMB,
		Policy:      policy,
		OnEvict:     log.handleEvict,
		Pinned:      []string{ManifestKey},
	})

	log.setVersions(nil)

	return log
}

// Client exposes the operation cache.
func (l *Log) Client() *cache.Cache {
	return l.client
}

// Current returns the id of the current operation, or "" when the
// pointer sits before the first operation.
func (l *Log) Current() string {
	return l.current
}

// LimitMemoryMB returns the configured budget.
func (l *Log) LimitMemoryMB() float64 {
	return l.limitMB
}

// EstimateMemoryMB returns the operation cache's byte counter in megabytes.
func (l *Log) EstimateMemoryMB() float64 {
	return float64(l.client.CurrentBytes()) / (1 << 20)
}

// Versions returns the manifest: operation ids in chronological order.
func (l *Log) Versions() []string {
	raw, err := l.client.Get(ManifestKey)
	if err != nil {
		return nil
	}

	object, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	items, ok := object[opsField].([]any)
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(items))

	for _, item := range items {
		if id, ok := item.(string); ok {
			ids = append(ids, id)
		}
	}

	return ids
}

// setVersions persists the ordered id list as the manifest row.
func (l *Log) setVersions(ids []string) {
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = id
	}

	_ = l.client.Set(ManifestKey, map[string]any{opsField: items})
}

// opKey returns "_Operation:<id>".
func opKey(id string) string {
	return ManifestKey + ":" + id
}

// AddOperation appends a new operation. When the current pointer sits
// mid-history the redo tail after it is discarded first; afterwards the
// new operation is the current version.
//
// When the operation cache still exceeds its budget after the append
// (only pinned rows remain), a warning string is returned; the append
// itself is never rolled back.
func (l *Log) AddOperation(forward, revert []any) (string, error) {
	id := uuid.NewString()

	previousCurrent := l.current

	// The new row must survive its own insertion, so move the pin to it
	// before writing; eviction pressure then falls on older history.
	if l.pinnedOp != "" {
		l.client.Unpin(opKey(l.pinnedOp))
	}

	l.pinnedOp = id
	l.client.Pin(opKey(id))

	// The old current is superseded by this append, so its eviction
	// during the write must not trip the evicted-current signal.
	l.current = id

	record := map[string]any{forwardField: forward}
	if revert != nil {
		record[revertField] = revert
	}

	if err := l.client.Set(opKey(id), record); err != nil {
		l.current = previousCurrent

		return "", err
	}

	ids := l.Versions()

	if previousCurrent != "" {
		if idx := indexOf(ids, previousCurrent); idx >= 0 {
			// Drop the redo tail beyond the old current.
			for _, stale := range ids[idx+1:] {
				_, _ = l.client.Erase(opKey(stale))
			}

			ids = ids[:idx+1]
		}
	}

	ids = append(ids, id)
	l.setVersions(ids)

	if usedMB := l.EstimateMemoryMB(); usedMB > l.limitMB {
		return fmt.Sprintf(
			"[LocalVersionController] Warning: memory usage %.1f MB exceeds limit of %g MB",
			usedMB, l.limitMB,
		), nil
	}

	return "", nil
}

// PopOperation removes up to n operations and returns them.
//
// Each step pops the oldest operation unless the oldest is the current
// version, in which case the newest is popped instead. When the current
// version itself is removed, the pointer moves to the new tail (or to
// "before the first" when the log drains).
func (l *Log) PopOperation(n int) ([]Popped, error) {
	if err := l.takeEvicted(); err != nil {
		return nil, err
	}

	if n <= 0 {
		return nil, nil
	}

	ids := l.Versions()
	if len(ids) == 0 {
		return nil, nil
	}

	var popped []Popped

	for range min(n, len(ids)) {
		idx := 0
		if ids[0] == l.current {
			idx = len(ids) - 1
		}

		id := ids[idx]

		record, _ := l.record(id)
		popped = append(popped, Popped{ID: id, Record: record})

		ids = append(ids[:idx], ids[idx+1:]...)

		if l.pinnedOp == id {
			l.client.Unpin(opKey(id))
			l.pinnedOp = ""
		}

		_, _ = l.client.Erase(opKey(id))
	}

	l.setVersions(ids)

	if indexOf(ids, l.current) < 0 {
		if len(ids) > 0 {
			l.current = ids[len(ids)-1]
		} else {
			l.current = ""
		}
	}

	return popped, nil
}

// ForwardOne applies the forward operation of the next version and
// advances the current pointer to it. With the pointer at the tail this
// is a no-op.
func (l *Log) ForwardOne(apply ApplyFunc) error {
	if err := l.takeEvicted(); err != nil {
		return err
	}

	ids := l.Versions()

	next := indexOf(ids, l.current) + 1
	if next >= len(ids) {
		return nil
	}

	record, err := l.record(ids[next])
	if err != nil {
		return err
	}

	if record.Forward == nil {
		return nil
	}

	if err := apply(record.Forward); err != nil {
		return err
	}

	l.current = ids[next]

	return nil
}

// RevertOne applies the revert operation of the current version and
// moves the pointer back one step. It is a no-op when there is no
// previous version or the current record carries no revert.
func (l *Log) RevertOne(apply ApplyFunc) error {
	if err := l.takeEvicted(); err != nil {
		return err
	}

	ids := l.Versions()

	idx := indexOf(ids, l.current)
	if idx <= 0 {
		return nil
	}

	record, err := l.record(ids[idx])
	if err != nil {
		return err
	}

	if record.Revert == nil {
		return nil
	}

	if err := apply(record.Revert); err != nil {
		return err
	}

	l.current = ids[idx-1]

	return nil
}

// ToVersion steps forward or backward until the current pointer reaches
// the target id. An id outside the manifest fails with ErrUnknownVersion.
func (l *Log) ToVersion(target string, apply ApplyFunc) error {
	if err := l.takeEvicted(); err != nil {
		return err
	}

	ids := l.Versions()

	targetIdx := indexOf(ids, target)
	if targetIdx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownVersion, target)
	}

	for {
		current := indexOf(l.Versions(), l.current)
		if current == targetIdx {
			return nil
		}

		var err error
		if current < targetIdx {
			err = l.ForwardOne(apply)
		} else {
			err = l.RevertOne(apply)
		}

		if err != nil {
			return err
		}

		if indexOf(l.Versions(), l.current) == current {
			return ErrNavigationStalled
		}
	}
}

// record reads and decodes the operation row for id.
func (l *Log) record(id string) (Record, error) {
	raw, err := l.client.Get(opKey(id))
	if err != nil {
		return Record{}, err
	}

	object, ok := raw.(map[string]any)
	if !ok {
		return Record{}, nil
	}

	return Record{
		Forward: opArray(object[forwardField]),
		Revert:  opArray(object[revertField]),
	}, nil
}

// handleEvict is the operation cache's eviction callback. Evicted
// operation rows are removed from the manifest; losing the current
// version is recorded and surfaced by the next navigation call.
func (l *Log) handleEvict(key string, _ any) {
	prefix := ManifestKey + ":"
	if !strings.HasPrefix(key, prefix) {
		return
	}

	id := key[len(prefix):]

	ids := l.Versions()
	if idx := indexOf(ids, id); idx >= 0 {
		l.setVersions(append(ids[:idx], ids[idx+1:]...))
	}

	if l.current == id {
		l.evicted = fmt.Errorf("%w: %s", ErrCurrentVersionEvicted, id)
	}
}

// takeEvicted returns and clears the pending evicted-current error.
func (l *Log) takeEvicted() error {
	err := l.evicted
	l.evicted = nil

	return err
}

// opArray coerces a stored record member back into an operation array.
func opArray(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}

	return nil
}

// indexOf returns the position of id in ids, or -1. An empty id is
// always absent.
func indexOf(ids []string, id string) int {
	if id == "" {
		return -1
	}

	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}

	return -1
}
