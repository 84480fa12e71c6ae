package queue

import (
	"encoding/json"
	"errors"

	"github.com/qinhy/singleton-key-value-storage/kv/store"
)

// queueMeta is the per-queue bookkeeping pair. Items live at indices
// head <= n < tail; the queue size is tail-head.
type queueMeta struct {
	head int64
	tail int64
}

// size returns tail-head, clamped at zero.
func (m queueMeta) size() int64 {
	if m.tail < m.head {
		return 0
	}

	return m.tail - m.head
}

// loadMeta reads the meta row of queue q, creating {0,0} when absent.
//
// The row is validated on every read: head and tail must both be
// integers with 0 <= head <= tail. Any violation resets the meta to
// {0,0} and persists the reset — corrupt meta is self-healing.
func (b *Broker) loadMeta(q string) (queueMeta, error) {
	raw, err := b.cache.Get(b.metaKey(q))
	if errors.Is(err, store.ErrKeyNotFound) {
		meta := queueMeta{}

		return meta, b.saveMeta(q, meta)
	}

	if err != nil {
		return queueMeta{}, err
	}

	meta, ok := parseMeta(raw)
	if !ok {
		meta = queueMeta{}

		return meta, b.saveMeta(q, meta)
	}

	return meta, nil
}

// saveMeta persists the meta row of queue q.
func (b *Broker) saveMeta(q string, meta queueMeta) error {
	return b.cache.Set(b.metaKey(q), map[string]any{
		"head": meta.head,
		"tail": meta.tail,
	})
}

// parseMeta validates a raw meta value. It accepts the integer-bearing
// JSON number forms a value can take after storage or a dumps/loads
// round-trip.
func parseMeta(raw any) (queueMeta, bool) {
	object, ok := raw.(map[string]any)
	if !ok {
		return queueMeta{}, false
	}

	head, ok := intFromAny(object["head"])
	if !ok {
		return queueMeta{}, false
	}

	tail, ok := intFromAny(object["tail"])
	if !ok {
		return queueMeta{}, false
	}

	if head < 0 || tail < head {
		return queueMeta{}, false
	}

	return queueMeta{head: head, tail: tail}, true
}

// intFromAny extracts an integer from the numeric types a decoded JSON
// value may carry. Fractional floats are rejected.
func intFromAny(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if x != float64(int64(x)) {
			return 0, false
		}

		return int64(x), true
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}
