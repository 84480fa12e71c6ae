package kv

import "github.com/qinhy/singleton-key-value-storage/kv/event"

// SetEvent registers a listener for eventName and returns its id. Pass
// an id to overwrite an existing listener.
func (s *Store) SetEvent(eventName string, cb event.Callback, listenerID ...string) string {
	return s.events.Set(eventName, cb, listenerID...)
}

// RemoveEvent erases every listener registered under the raw id and
// returns how many were removed.
func (s *Store) RemoveEvent(listenerID string) int {
	return s.events.Remove(listenerID)
}

// GetEvent returns every callback registered under the raw id.
func (s *Store) GetEvent(listenerID string) []event.Callback {
	return s.events.Get(listenerID)
}

// DispatchEvent invokes every listener of eventName with payload.
func (s *Store) DispatchEvent(eventName string, payload any) {
	s.events.Dispatch(eventName, payload)
}

// EventKeys returns every registered listener key.
func (s *Store) EventKeys() []string {
	return s.events.Keys()
}

// CleanEvents removes every listener.
func (s *Store) CleanEvents() {
	s.events.Clean()
}
