// Package kv exposes the key-value store façade.
//
// A Store composes one storage backend with an event dispatcher, an
// operation log and a message broker. Every mutation flows through a
// single pipeline — version bookkeeping, local apply, event dispatch —
// so observers can mirror changes and histories can be navigated with
// undo/redo. Written values can be transparently wrapped by a pluggable
// string encryptor.
package kv
