package cache

import (
	"container/list"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/qinhy/singleton-key-value-storage/kv/store"
)

var _ store.Backend = (*Cache)(nil)

// Policy selects the eviction order of a Cache.
type Policy int

const (
	// LRU evicts the least recently used entry first. Reads and writes
	// both refresh an entry's position.
	LRU Policy = iota
	// FIFO evicts the oldest written entry first. Only writes refresh
	// an entry's position.
	FIFO
)

// String returns the lowercase policy name.
func (p Policy) String() string {
	if p == FIFO {
		return "fifo"
	}

	return "lru"
}

// ParsePolicy maps a policy name to a Policy. Matching is
// case-insensitive and ignores surrounding whitespace; anything that is
// not "fifo" is treated as LRU.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "fifo") {
		return FIFO
	}

	return LRU
}

// ParseBudget converts a human-readable size string like "64mb" or
// "1.5 GiB" into a megabyte count suitable for Options.MaxMemoryMB.
func ParseBudget(s string) (float64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size string %q: %w", s, err)
	}

	return float64(n) / (1 << 20), nil
}

// OnEvictFunc observes an eviction after the entry has been removed.
// Panics inside the callback are swallowed so a misbehaving observer
// cannot corrupt the cache.
type OnEvictFunc func(key string, value any)

// Options configures a Cache.
type Options struct {
	// MaxMemoryMB is the byte budget expressed in megabytes. The budget
	// is floor(MaxMemoryMB * 2^20) bytes; zero (or negative) disables
	// eviction entirely.
	MaxMemoryMB float64

	// Policy selects the eviction order ("lru" or "fifo",
	// case-insensitive). Anything else falls back to LRU.
	Policy string

	// OnEvict, when non-nil, is invoked after each eviction with the
	// evicted key and its pre-erase value.
	OnEvict OnEvictFunc

	// Pinned lists keys that are never chosen as eviction victims.
	Pinned []string
}

// Cache wraps a Backend with byte accounting and budget-driven eviction.
//
// It implements the store.Backend interface itself, so callers can stack
// it anywhere a backend is expected. The accounting side table (sizes,
// ordering list) is private to the cache. Unlike the store package's
// backends, a Cache holds no lock and is not safe for concurrent use.
type Cache struct {
	backend  store.Backend
	maxBytes uint64
	policy   Policy
	onEvict  OnEvictFunc
	pinned   map[string]struct{}

	sizes        map[string]uint64
	order        *list.List // front = oldest, back = newest
	nodes        map[string]*list.Element
	currentBytes uint64
}

// New creates a Cache over the given backend.
func New(backend store.Backend, opts Options) *Cache {
	var maxBytes uint64
	if opts.MaxMemoryMB > 0 {
		maxBytes = uint64(math.Floor(opts.MaxMemoryMB * (1 << 20)))
	}

	pinned := make(map[string]struct{}, len(opts.Pinned))
	for _, key := range opts.Pinned {
		pinned[key] = struct{}{}
	}

	return &Cache{
		backend:  backend,
		maxBytes: maxBytes,
		policy:   ParsePolicy(opts.Policy),
		onEvict:  opts.OnEvict,
		pinned:   pinned,
		sizes:    make(map[string]uint64),
		order:    list.New(),
		nodes:    make(map[string]*list.Element),
	}
}

// ID returns the identity of the wrapped backend.
func (c *Cache) ID() string {
	return c.backend.ID()
}

// Policy returns the configured eviction policy.
func (c *Cache) Policy() Policy {
	return c.policy
}

// MaxBytes returns the byte budget; zero means eviction is disabled.
func (c *Cache) MaxBytes() uint64 {
	return c.maxBytes
}

// Pin marks key as immune to eviction.
func (c *Cache) Pin(key string) {
	c.pinned[key] = struct{}{}
}

// Unpin makes key evictable again.
func (c *Cache) Unpin(key string) {
	delete(c.pinned, key)
}

// Exists reports whether key is present in the wrapped backend.
func (c *Cache) Exists(key string) (bool, error) {
	return c.backend.Exists(key)
}

// Get reads through to the backend. Under LRU a hit refreshes the
// entry's position in the ordering list.
func (c *Cache) Get(key string) (any, error) {
	value, err := c.backend.Get(key)
	if err != nil {
		return nil, err
	}

	if c.policy == LRU {
		if node, ok := c.nodes[key]; ok {
			c.order.MoveToBack(node)
		}
	}

	return value, nil
}

// Set writes through to the backend, records the entry's byte cost at
// the tail of the ordering list, and then evicts as needed to restore
// the budget.
func (c *Cache) Set(key string, value any) error {
	if _, ok := c.sizes[key]; ok {
		c.reduce(key)
	}

	if err := c.backend.Set(key, value); err != nil {
		return err
	}

	size := store.EntrySize(key, value)
	c.sizes[key] = size
	c.currentBytes += size
	c.nodes[key] = c.order.PushBack(key)

	c.maybeEvict()

	return nil
}

// Erase drops the entry's accounting and writes through. It returns
// false when the key did not exist.
func (c *Cache) Erase(key string) (bool, error) {
	if _, ok := c.sizes[key]; ok {
		c.reduce(key)
	}

	return c.backend.Erase(key)
}

// Keys delegates glob matching to the wrapped backend.
func (c *Cache) Keys(pattern string) ([]string, error) {
	return c.backend.Keys(pattern)
}

// Clean erases every key in the backend and clears all accounting.
func (c *Cache) Clean() error {
	if err := c.backend.Clean(); err != nil {
		return err
	}

	c.sizes = make(map[string]uint64)
	c.nodes = make(map[string]*list.Element)
	c.order.Init()
	c.currentBytes = 0

	return nil
}

// BytesUsed returns the cache's own byte counter, not the backend's.
// The deep flag is accepted for contract compatibility and ignored.
func (c *Cache) BytesUsed(bool) (uint64, error) {
	return c.currentBytes, nil
}

// CurrentBytes returns the sum of all recorded entry sizes.
func (c *Cache) CurrentBytes() uint64 {
	return c.currentBytes
}

// BytesUsedHuman formats the current byte counter for humans.
func (c *Cache) BytesUsedHuman() string {
	return store.HumanBytes(c.currentBytes)
}

// Close closes the wrapped backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// reduce drops the accounting for key: its ordering node, its recorded
// size, and its share of the byte counter.
func (c *Cache) reduce(key string) {
	if node, ok := c.nodes[key]; ok {
		c.order.Remove(node)
		delete(c.nodes, key)
	}

	c.currentBytes -= c.sizes[key]
	delete(c.sizes, key)
}

// pickVictim walks the ordering list from the front and returns the
// first unpinned key, or false when only pinned keys remain.
func (c *Cache) pickVictim() (string, bool) {
	for node := c.order.Front(); node != nil; node = node.Next() {
		key := node.Value.(string)
		if _, pinned := c.pinned[key]; !pinned {
			return key, true
		}
	}

	return "", false
}

// maybeEvict evicts entries until the byte counter fits the budget.
//
// The victim's value is captured before the erase so the callback sees
// what was dropped. The callback may re-enter the cache, so the loop
// re-reads the ordering list on every turn instead of holding iterators
// across the call.
func (c *Cache) maybeEvict() {
	if c.maxBytes == 0 {
		return
	}

	for c.currentBytes > c.maxBytes && c.order.Len() > 0 {
		victim, ok := c.pickVictim()
		if !ok {
			// Only pinned keys remain; honor the pin even over budget.
			return
		}

		value, err := c.backend.Get(victim)
		if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
			return
		}

		c.reduce(victim)
		_, _ = c.backend.Erase(victim)

		c.notifyEvict(victim, value)
	}
}

// notifyEvict runs the eviction callback, swallowing any panic so a
// failing observer cannot corrupt the cache.
func (c *Cache) notifyEvict(key string, value any) {
	if c.onEvict == nil {
		return
	}

	defer func() {
		_ = recover()
	}()

	c.onEvict(key, value)
}
