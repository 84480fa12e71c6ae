package store

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend is an in-memory key-value backend.
//
// It owns a plain map of decoded JSON values and is safe for concurrent
// use. Two MemoryBackend handles share state only when they come from a
// Registry, in which case they are the same instance and report the same ID.
type MemoryBackend struct {
	id string

	mu        sync.RWMutex
	container map[string]any
}

// NewMemoryBackend creates an empty MemoryBackend with a fresh identity.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		id:        uuid.NewString(),
		container: make(map[string]any),
	}
}

// ID returns the identity of the backing map.
func (b *MemoryBackend) ID() string {
	return b.id
}

// Exists reports whether key is present.
func (b *MemoryBackend) Exists(key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.container[key]

	return ok, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (b *MemoryBackend) Get(key string) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.container[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	return value, nil
}

// Set associates value with key, overwriting any previous value.
func (b *MemoryBackend) Set(key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.container[key] = value

	return nil
}

// Erase removes key if present. It returns false when the key did not exist.
func (b *MemoryBackend) Erase(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.container[key]; !ok {
		return false, nil
	}

	delete(b.container, key)

	return true, nil
}

// Keys returns every key matching the glob pattern, sorted lexicographically.
func (b *MemoryBackend) Keys(pattern string) ([]string, error) {
	b.mu.RLock()

	matched := make([]string, 0, len(b.container))

	for key := range b.container {
		if MatchGlob(pattern, key) {
			matched = append(matched, key)
		}
	}

	b.mu.RUnlock()

	sort.Strings(matched)

	return matched, nil
}

// Clean removes every key.
func (b *MemoryBackend) Clean() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.container)

	return nil
}

// BytesUsed returns the approximate footprint of the backend.
func (b *MemoryBackend) BytesUsed(deep bool) (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := uint64(containerOverhead)

	for key, value := range b.container {
		total += StringSize(key)
		if deep {
			total += DeepSize(value)
		}
	}

	return total, nil
}

// Close releases resources associated with the backend.
//
// For MemoryBackend this is a no-op and always returns nil.
func (b *MemoryBackend) Close() error {
	return nil
}
