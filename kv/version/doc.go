// Package version provides an operation log with undo/redo navigation.
//
// Every reversible edit is stored as a {forward, revert} pair of tagged
// operation arrays under "_Operation:<uuid>", with the chronological
// manifest of uuids pinned under "_Operation". The log rides on a
// FIFO memory-limited cache, so old operations fall off under memory
// pressure; the manifest and the most recently appended operation are
// pinned so an append can never evict itself.
package version
