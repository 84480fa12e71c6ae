package kv

import (
	"log/slog"

	"github.com/qinhy/singleton-key-value-storage/kv/cache"
	"github.com/qinhy/singleton-key-value-storage/kv/store"
	"github.com/qinhy/singleton-key-value-storage/kv/version"
)

// Options controls how a Store is assembled.
type Options struct {
	// Backend is the storage the store owns. Nil means a fresh private
	// memory backend; pass store.Shared(name) to join a process-wide
	// shared map.
	Backend store.Backend

	// VersionControl enables the operation log: every mutation records
	// a {forward, revert} pair for undo/redo navigation.
	VersionControl bool

	// Encryptor, when non-nil, wraps every value written by Set as
	// {"rjson": <ciphertext>} and transparently decrypts on reads.
	// Values merged by Loads or LoadFile are written unwrapped.
	Encryptor Encryptor

	// Logger is the observability sink for caught internal errors and
	// budget warnings. Nil discards.
	Logger *slog.Logger

	// VersionLimitMB bounds the operation log's memory; exceeding it
	// logs a warning. Zero means the version package default.
	// VersionLimit, when non-empty, is the same budget as a
	// human-readable size string ("128mb") and takes precedence.
	VersionLimitMB float64
	VersionLimit   string

	// QueueMemoryMB bounds the message broker's cache. Zero means the
	// queue package default. QueueMemory is the string form and takes
	// precedence.
	QueueMemoryMB float64
	QueueMemory   string
}

// normalize resolves string budgets and fills defaults. Invalid size
// strings are reported rather than guessed at.
func (o *Options) normalize() error {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	if o.VersionLimit != "" {
		limitMB, err := cache.ParseBudget(o.VersionLimit)
		if err != nil {
			return err
		}

		o.VersionLimitMB = limitMB
	}

	if o.QueueMemory != "" {
		memoryMB, err := cache.ParseBudget(o.QueueMemory)
		if err != nil {
			return err
		}

		o.QueueMemoryMB = memoryMB
	}

	if o.VersionLimitMB <= 0 {
		o.VersionLimitMB = version.DefaultLimitMemoryMB
	}

	return nil
}
