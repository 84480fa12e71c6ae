package kv

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/qinhy/singleton-key-value-storage/kv/event"
	"github.com/qinhy/singleton-key-value-storage/kv/queue"
	"github.com/qinhy/singleton-key-value-storage/kv/store"
	"github.com/qinhy/singleton-key-value-storage/kv/version"
)

// Store is the façade over one backend, one event dispatcher, one
// operation log and one message broker.
//
// Mutating operations return a boolean and reads return nil on absence
// or failure: every internal error is caught, logged to the configured
// sink, and translated into that failure value. Within one mutation the
// order is fixed — version bookkeeping, then the backend write, then
// event dispatch — so an observer never sees an event for a write that
// has not reached the backend.
type Store struct {
	opts Options

	conn     store.Backend
	events   *event.Dispatcher
	versions *version.Log
	broker   *queue.Broker
	logger   *slog.Logger
}

// New assembles a Store. A nil Options.Backend means a fresh private
// memory backend.
func New(opts Options) (*Store, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	s := &Store{
		opts:   opts,
		logger: opts.Logger,
	}

	backend := opts.Backend
	if backend == nil {
		backend = store.NewMemoryBackend()
	}

	s.SwitchBackend(backend)

	return s, nil
}

// SwitchBackend replaces the backend and rebuilds the dispatcher,
// version log and broker, so listeners, history and queue state never
// leak from one backend to the next.
func (s *Store) SwitchBackend(backend store.Backend) {
	s.events = event.NewDispatcher()
	s.versions = version.New(version.Options{LimitMemoryMB: s.opts.VersionLimitMB})
	s.broker = queue.NewBroker(nil, nil, queue.Options{MaxMemoryMB: s.opts.QueueMemoryMB})
	s.conn = backend
}

// Backend returns the backend the store currently owns.
func (s *Store) Backend() store.Backend {
	return s.conn
}

// Broker returns the store's message broker.
func (s *Store) Broker() *queue.Broker {
	return s.broker
}

// Dispatcher returns the store's event dispatcher.
func (s *Store) Dispatcher() *event.Dispatcher {
	return s.events
}

// VersionLog returns the store's operation log.
func (s *Store) VersionLog() *version.Log {
	return s.versions
}

// Set writes value under key. With an encryptor configured the stored
// form is {"rjson": <ciphertext>}; the version log and the dispatched
// event both carry the untransformed value.
func (s *Store) Set(key string, value any) bool {
	forward := []any{opSet, key, value}

	if s.opts.VersionControl {
		var revert []any
		if s.Exists(key) {
			revert = []any{opSet, key, s.Get(key)}
		} else {
			revert = []any{opErase, key}
		}

		s.recordOperation(forward, revert)
	}

	return s.edit(forward)
}

// Erase removes key.
func (s *Store) Erase(key string) bool {
	forward := []any{opErase, key}

	if s.opts.VersionControl {
		var revert []any
		if s.Exists(key) {
			revert = []any{opSet, key, s.Get(key)}
		}

		s.recordOperation(forward, revert)
	}

	return s.edit(forward)
}

// Clean removes every key. The revert is a snapshot of the whole store.
func (s *Store) Clean() bool {
	return s.snapshotEdit([]any{opClean})
}

// LoadFile reads a dump file and merges it into the store.
//
// The forward operation records the path, so a history containing it is
// only replayable where that path resolves; the revert side is a plain
// snapshot and carries no such dependency.
func (s *Store) LoadFile(path string) bool {
	return s.snapshotEdit([]any{opLoad, path})
}

// Loads parses a JSON object and merges its members into the store.
func (s *Store) Loads(jsonText string) bool {
	return s.snapshotEdit([]any{opLoads, jsonText})
}

// snapshotEdit runs a whole-store mutation whose revert is a snapshot.
func (s *Store) snapshotEdit(forward []any) bool {
	if s.opts.VersionControl {
		s.recordOperation(forward, []any{opLoads, s.Dumps()})
	}

	return s.edit(forward)
}

// Exists reports whether key is present.
func (s *Store) Exists(key string) bool {
	found, err := s.conn.Exists(key)
	if err != nil {
		s.logger.Error("exists failed", "key", key, "error", err)

		return false
	}

	return found
}

// Get returns the value under key, or nil when absent or on failure.
// Values carrying the rjson envelope are decrypted and reparsed when an
// encryptor is configured.
func (s *Store) Get(key string) any {
	value, err := s.conn.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			s.logger.Error("get failed", "key", key, "error", err)
		}

		return nil
	}

	if s.opts.Encryptor != nil {
		if ciphertext, ok := encryptedPayload(value); ok {
			decrypted, err := unwrapEncrypted(s.opts.Encryptor, ciphertext)
			if err != nil {
				s.logger.Error("get failed", "key", key, "error", err)

				return nil
			}

			return decrypted
		}
	}

	return value
}

// Keys returns the keys matching the glob pattern, or nil on failure.
func (s *Store) Keys(pattern string) []string {
	keys, err := s.conn.Keys(pattern)
	if err != nil {
		s.logger.Error("keys failed", "pattern", pattern, "error", err)

		return nil
	}

	return keys
}

// Dumps serializes the store as a JSON object. Values are read through
// Get, so encrypted entries appear decrypted. It returns "" on failure.
func (s *Store) Dumps() string {
	keys, err := s.conn.Keys("*")
	if err != nil {
		s.logger.Error("dumps failed", "error", err)

		return ""
	}

	object := make(map[string]any, len(keys))
	for _, key := range keys {
		object[key] = s.Get(key)
	}

	encoded, err := json.Marshal(object)
	if err != nil {
		s.logger.Error("dumps failed", "error", err)

		return ""
	}

	return string(encoded)
}

// DumpFile writes the backend's raw dump (encrypted values stay
// encrypted) to path.
func (s *Store) DumpFile(path string) bool {
	if err := store.DumpFile(s.conn, path); err != nil {
		s.logger.Error("dump file failed", "path", path, "error", err)

		return false
	}

	return true
}

// recordOperation appends a {forward, revert} pair to the operation log
// and routes its budget warning to the observability sink.
func (s *Store) recordOperation(forward, revert []any) {
	warning, err := s.versions.AddOperation(forward, revert)
	if err != nil {
		s.logger.Error("version log append failed", "error", err)

		return
	}

	if warning != "" {
		s.logger.Warn(warning)
	}
}

// edit applies a forward operation and, on success, dispatches the
// matching event. Failures are logged and reported as false.
func (s *Store) edit(forward []any) bool {
	if err := s.applyEdit(forward); err != nil {
		s.logger.Error("mutation failed", "error", err)

		return false
	}

	s.dispatchEditEvent(forward)

	return true
}

// applyEdit applies a forward operation, wrapping set values through
// the encryptor when one is configured.
func (s *Store) applyEdit(forward []any) error {
	tag, _ := opTag(forward)

	if tag == opSet && s.opts.Encryptor != nil {
		key, value, err := setArgs(forward)
		if err != nil {
			return err
		}

		wrapped, err := wrapEncrypted(s.opts.Encryptor, value)
		if err != nil {
			return err
		}

		return s.conn.Set(key, wrapped)
	}

	return s.applyLocal(forward)
}

// applyLocal applies an operation array directly against the backend:
// no encryption, no version bookkeeping, no events. It is the replay
// path for version navigation.
func (s *Store) applyLocal(op []any) error {
	tag, ok := opTag(op)
	if !ok {
		return ErrInvalidOperation
	}

	switch tag {
	case opSet:
		key, value, err := setArgs(op)
		if err != nil {
			return err
		}

		return s.conn.Set(key, value)
	case opErase:
		key, err := stringArg(op)
		if err != nil {
			return err
		}

		existed, err := s.conn.Erase(key)
		if err != nil {
			return err
		}

		if !existed {
			return store.ErrKeyNotFound
		}

		return nil
	case opClean:
		return s.conn.Clean()
	case opLoad:
		path, err := stringArg(op)
		if err != nil {
			return err
		}

		return store.LoadFile(s.conn, path)
	case opLoads:
		body, err := loadsBody(op)
		if err != nil {
			return err
		}

		return store.Loads(s.conn, body)
	default:
		return ErrInvalidOperation
	}
}

// dispatchEditEvent emits the event named after the operation tag with
// a payload carrying the untransformed arguments.
func (s *Store) dispatchEditEvent(forward []any) {
	tag, ok := opTag(forward)
	if !ok {
		return
	}

	var payload any

	switch tag {
	case opSet:
		key, value, err := setArgs(forward)
		if err != nil {
			return
		}

		payload = map[string]any{"key": key, "value": value}
	case opErase:
		key, err := stringArg(forward)
		if err != nil {
			return
		}

		payload = map[string]any{"key": key}
	case opClean:
		payload = map[string]any{}
	case opLoad:
		path, err := stringArg(forward)
		if err != nil {
			return
		}

		payload = map[string]any{"path": path}
	case opLoads:
		body, err := loadsBody(forward)
		if err != nil {
			return
		}

		payload = map[string]any{"json": body}
	}

	s.events.Dispatch(tag, payload)
}
