// Package cache provides a byte-bounded wrapper around a storage backend.
//
// The cache charges every entry an approximate byte cost and enforces a
// budget by evicting entries in LRU or FIFO order. Pinned keys are never
// chosen as eviction victims, and an optional callback observes each
// eviction.
//
// Like the broker and version log built on top of it, the cache is meant
// for single-threaded cooperative use: eviction callbacks run on the
// caller's stack and may re-enter the cache, so no lock is held across
// them.
package cache
