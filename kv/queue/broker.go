package queue

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/qinhy/singleton-key-value-storage/kv/cache"
	"github.com/qinhy/singleton-key-value-storage/kv/event"
	"github.com/qinhy/singleton-key-value-storage/kv/store"
)

const (
	// RootKey is the namespace prefix of every queue key.
	RootKey = "_MessageQueue"
	// EventRoot is the namespace prefix of queue event names fed to the
	// dispatcher: "MQE:<b64url(q)>:<kind>".
	EventRoot = "MQE"

	// DefaultQueue is the queue used when callers pass an empty name.
	DefaultQueue = "default"
)

// Event kinds emitted by the broker.
const (
	KindPushed  = "pushed"
	KindPopped  = "popped"
	KindEmpty   = "empty"
	KindCleared = "cleared"
)

// DefaultMaxMemoryMB bounds the message cache when Options does not.
const DefaultMaxMemoryMB = 1024.0

// Options configures a Broker.
type Options struct {
	// MaxMemoryMB is the byte budget of the message cache, in
	// megabytes. Zero falls back to DefaultMaxMemoryMB; a negative
	// value disables eviction.
	MaxMemoryMB float64

	// Policy selects the message cache's eviction order. Empty falls
	// back to LRU.
	Policy string
}

// Broker is a message broker for named FIFO queues.
//
// Messages are held in a memory-limited cache, so old items may be
// evicted under pressure; the pop path advances the queue head past such
// holes. Messages are never reordered. Queues with different names share
// no state, and a failing listener on one queue never blocks another.
type Broker struct {
	cache      *cache.Cache
	dispatcher *event.Dispatcher

	// Queue names are base64url-encoded once and remembered in both
	// directions so list_queues can translate back.
	encoded map[string]string
	decoded map[string]string
}

// NewBroker creates a broker storing messages in backend (a fresh
// memory backend when nil) and emitting events through dispatcher (a
// fresh dispatcher when nil).
func NewBroker(backend store.Backend, dispatcher *event.Dispatcher, opts Options) *Broker {
	if backend == nil {
		backend = store.NewMemoryBackend()
	}

	if dispatcher == nil {
		dispatcher = event.NewDispatcher()
	}

	maxMemoryMB := opts.MaxMemoryMB
	if maxMemoryMB == 0 {
		maxMemoryMB = DefaultMaxMemoryMB
	} else if maxMemoryMB < 0 {
		maxMemoryMB = 0
	}

	return &Broker{
		cache: cache.New(backend, cache.Options{
			MaxMemoryMB: maxMemoryMB,
			Policy:      opts.Policy,
		}),
		dispatcher: dispatcher,
		encoded:    make(map[string]string),
		decoded:    make(map[string]string),
	}
}

// Cache exposes the underlying message cache.
func (b *Broker) Cache() *cache.Cache {
	return b.cache
}

// Dispatcher exposes the underlying event dispatcher.
func (b *Broker) Dispatcher() *event.Dispatcher {
	return b.dispatcher
}

// queueName normalizes an empty queue name to DefaultQueue.
func queueName(q string) string {
	if q == "" {
		return DefaultQueue
	}

	return q
}

// encodedName returns the base64url form of a queue name, remembering
// the translation in both directions.
func (b *Broker) encodedName(q string) string {
	if enc, ok := b.encoded[q]; ok {
		return enc
	}

	enc := event.EncodeName(q)
	b.encoded[q] = enc
	b.decoded[enc] = q

	return enc
}

// metaKey returns "_MessageQueue:<b64url(q)>".
func (b *Broker) metaKey(q string) string {
	return RootKey + ":" + b.encodedName(q)
}

// itemKey returns "_MessageQueue:<b64url(q)>:<n>".
func (b *Broker) itemKey(q string, n int64) string {
	return b.metaKey(q) + ":" + strconv.FormatInt(n, 10)
}

// eventName returns "MQE:<b64url(q)>:<kind>".
func (b *Broker) eventName(q, kind string) string {
	return EventRoot + ":" + b.encodedName(q) + ":" + kind
}

// Push appends message to queue q and returns the key the item was
// stored under. The "pushed" event is dispatched with {"message": msg}.
func (b *Broker) Push(message any, q string) (string, error) {
	q = queueName(q)

	meta, err := b.loadMeta(q)
	if err != nil {
		return "", err
	}

	key := b.itemKey(q, meta.tail)
	if err := b.cache.Set(key, message); err != nil {
		return "", err
	}

	meta.tail++
	if err := b.saveMeta(q, meta); err != nil {
		return "", err
	}

	b.tryDispatch(q, KindPushed, map[string]any{"message": message})

	return key, nil
}

// PopItem removes (or, with peek, just reads) the head item of queue q.
// It returns zero values when the queue is empty.
//
// Slots whose item has been evicted are skipped; the head only ever
// moves forward, so messages are never reordered.
func (b *Broker) PopItem(q string, peek bool) (string, any, error) {
	q = queueName(q)

	meta, err := b.loadMeta(q)
	if err != nil {
		return "", nil, err
	}

	for {
		advanced, err := b.advanceHead(q, &meta)
		if err != nil {
			return "", nil, err
		}

		if advanced {
			if err := b.saveMeta(q, meta); err != nil {
				return "", nil, err
			}
		}

		if meta.head >= meta.tail {
			return "", nil, nil
		}

		key := b.itemKey(q, meta.head)

		message, err := b.cache.Get(key)
		if errors.Is(err, store.ErrKeyNotFound) {
			// Evicted between the advance and the read; skip the slot.
			meta.head++

			if err := b.saveMeta(q, meta); err != nil {
				return "", nil, err
			}

			continue
		}

		if err != nil {
			return "", nil, err
		}

		if peek {
			return key, message, nil
		}

		if _, err := b.cache.Erase(key); err != nil {
			return "", nil, err
		}

		meta.head++
		if err := b.saveMeta(q, meta); err != nil {
			return "", nil, err
		}

		b.tryDispatch(q, KindPopped, map[string]any{"message": message})

		if meta.size() == 0 {
			b.tryDispatch(q, KindEmpty, nil)
		}

		return key, message, nil
	}
}

// Pop removes and returns the head message of queue q, or nil when the
// queue is empty.
func (b *Broker) Pop(q string) (any, error) {
	_, message, err := b.PopItem(q, false)

	return message, err
}

// Peek returns the head message of queue q without removing it, or nil
// when the queue is empty.
func (b *Broker) Peek(q string) (any, error) {
	_, message, err := b.PopItem(q, true)

	return message, err
}

// QueueSize returns tail-head for queue q.
func (b *Broker) QueueSize(q string) (int64, error) {
	meta, err := b.loadMeta(queueName(q))
	if err != nil {
		return 0, err
	}

	return meta.size(), nil
}

// Clear removes every item of queue q and its meta row, then dispatches
// the "cleared" event.
func (b *Broker) Clear(q string) error {
	q = queueName(q)

	keys, err := b.cache.Keys(b.metaKey(q) + ":*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if _, err := b.cache.Erase(key); err != nil {
			return err
		}
	}

	if _, err := b.cache.Erase(b.metaKey(q)); err != nil {
		return err
	}

	b.tryDispatch(q, KindCleared, nil)

	return nil
}

// AddListener subscribes cb to one event kind of queue q (KindPushed
// when kind is empty) and returns the listener id.
func (b *Broker) AddListener(q string, cb event.Callback, kind string, listenerID ...string) string {
	if kind == "" {
		kind = KindPushed
	}

	return b.dispatcher.Set(b.eventName(queueName(q), kind), cb, listenerID...)
}

// RemoveListener erases every listener registered under the raw id.
func (b *Broker) RemoveListener(listenerID string) int {
	return b.dispatcher.Remove(listenerID)
}

// ListListeners returns the listener keys subscribed to queue q (every
// queue when q is empty), optionally filtered by event kind.
func (b *Broker) ListListeners(q, kind string) []string {
	var matched []string

	for _, key := range b.dispatcher.Keys() {
		// Listener keys look like "_Event:<b64url(MQE:<b64url(q)>:<kind>)>:<id>".
		segments := strings.SplitN(key, ":", 3)
		if len(segments) < 3 {
			continue
		}

		name, ok := event.DecodeName(segments[1])
		if !ok {
			continue
		}

		nameParts := strings.SplitN(name, ":", 3)
		if len(nameParts) != 3 || nameParts[0] != EventRoot {
			continue
		}

		decodedQueue, ok := b.decodeQueueName(nameParts[1])
		if !ok {
			decodedQueue = nameParts[1]
		}

		if q != "" && decodedQueue != q {
			continue
		}

		if kind != "" && nameParts[2] != kind {
			continue
		}

		matched = append(matched, key)
	}

	return matched
}

// ListQueues returns the distinct queue names derivable from item and
// meta keys. Encoded names that cannot be translated back are returned
// in encoded form.
func (b *Broker) ListQueues() ([]string, error) {
	keys, err := b.cache.Keys(RootKey + ":*")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	var queues []string

	for _, key := range keys {
		parts := strings.Split(key, ":")
		if len(parts) < 2 || parts[0] != RootKey {
			continue
		}

		name, ok := b.decodeQueueName(parts[1])
		if !ok {
			name = parts[1]
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		queues = append(queues, name)
	}

	sort.Strings(queues)

	return queues, nil
}

// decodeQueueName translates an encoded queue name back, preferring the
// broker's bidirectional name cache over a raw base64url decode.
func (b *Broker) decodeQueueName(encoded string) (string, bool) {
	if name, ok := b.decoded[encoded]; ok {
		return name, true
	}

	return event.DecodeName(encoded)
}

// advanceHead moves meta.head past slots whose item is absent (evicted).
// It reports whether the head moved.
func (b *Broker) advanceHead(q string, meta *queueMeta) (bool, error) {
	moved := false

	for meta.head < meta.tail {
		exists, err := b.cache.Exists(b.itemKey(q, meta.head))
		if err != nil {
			return moved, err
		}

		if exists {
			break
		}

		meta.head++
		moved = true
	}

	return moved, nil
}

// tryDispatch emits a queue event, isolating the broker from dispatcher
// panics. Per-listener failures are already isolated by the dispatcher.
func (b *Broker) tryDispatch(q, kind string, payload any) {
	defer func() {
		_ = recover()
	}()

	b.dispatcher.Dispatch(b.eventName(q, kind), payload)
}
