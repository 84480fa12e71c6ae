package kv

import (
	"github.com/google/uuid"

	"github.com/qinhy/singleton-key-value-storage/kv/store"
)

// Follower mirrors mutations of a source store. There is no dedicated
// replication machinery: a follower is an ordinary pair of listeners on
// the "set" and "erase" events.
type Follower interface {
	Set(key string, value any)
	Erase(key string)
}

// AddFollower subscribes f to this store's set and erase events and
// returns the listener id shared by both subscriptions.
func (s *Store) AddFollower(f Follower) string {
	id := uuid.NewString()

	s.events.Set(opSet, func(payload any) {
		key, value, ok := setPayload(payload)
		if !ok {
			return
		}

		f.Set(key, value)
	}, id)

	s.events.Set(opErase, func(payload any) {
		key, ok := keyPayload(payload)
		if !ok {
			return
		}

		f.Erase(key)
	}, id)

	return id
}

// RemoveFollower unsubscribes a follower by the id AddFollower returned.
func (s *Store) RemoveFollower(listenerID string) int {
	return s.events.Remove(listenerID)
}

// BackendFollower mirrors set/erase events straight into a backend.
type BackendFollower struct {
	Backend store.Backend
}

// Set writes the mirrored value through to the backend.
func (f *BackendFollower) Set(key string, value any) {
	_ = f.Backend.Set(key, value)
}

// Erase removes the mirrored key from the backend.
func (f *BackendFollower) Erase(key string) {
	_, _ = f.Backend.Erase(key)
}

// setPayload unpacks the {"key", "value"} payload of a set event.
func setPayload(payload any) (string, any, bool) {
	object, ok := payload.(map[string]any)
	if !ok {
		return "", nil, false
	}

	key, ok := object["key"].(string)
	if !ok {
		return "", nil, false
	}

	return key, object["value"], true
}

// keyPayload unpacks the {"key"} payload of an erase event.
func keyPayload(payload any) (string, bool) {
	object, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}

	key, ok := object["key"].(string)

	return key, ok
}
