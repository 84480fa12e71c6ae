// Package store provides the storage backends for the key-value system.
//
// A Backend owns a single string -> JSON map. Implementations include an
// in-memory map, a sharded in-memory map, and persistent variants backed
// by bbolt, SQLite and Redis. All of them satisfy the same contract, so
// higher layers (cache, broker, version log, façade) are backend-agnostic.
package store
