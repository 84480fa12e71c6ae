package event

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// RootKey is the namespace prefix of every listener key.
const RootKey = "_Event"

// Callback is a listener invoked with the dispatched payload.
type Callback func(payload any)

// ListenerKey builds the structured key for a listener:
// "_Event:<b64url(eventName)>:<listenerID>".
func ListenerKey(eventName, listenerID string) string {
	return RootKey + ":" + EncodeName(eventName) + ":" + listenerID
}

// Dispatcher maps listener keys to callbacks.
//
// It is meant for single-threaded cooperative use; callbacks run
// synchronously on the dispatching caller's stack.
type Dispatcher struct {
	listeners map[string]Callback
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string]Callback),
	}
}

// Set registers cb for eventName and returns the listener id. When no id
// is supplied a fresh UUID is minted; supplying an existing id
// overwrites that listener.
func (d *Dispatcher) Set(eventName string, cb Callback, listenerID ...string) string {
	id := ""
	if len(listenerID) > 0 {
		id = listenerID[0]
	}

	if id == "" {
		id = uuid.NewString()
	}

	d.listeners[ListenerKey(eventName, id)] = cb

	return id
}

// Get returns every callback registered under the raw listener id — the
// third colon-delimited segment of the key. A linear scan is fine at the
// listener counts this dispatcher sees.
func (d *Dispatcher) Get(listenerID string) []Callback {
	var callbacks []Callback

	for key, cb := range d.listeners {
		if idSegment(key) == listenerID {
			callbacks = append(callbacks, cb)
		}
	}

	return callbacks
}

// Remove erases every listener registered under the raw id and returns
// how many were removed.
func (d *Dispatcher) Remove(listenerID string) int {
	var keys []string

	for key := range d.listeners {
		if idSegment(key) == listenerID {
			keys = append(keys, key)
		}
	}

	for _, key := range keys {
		delete(d.listeners, key)
	}

	return len(keys)
}

// Keys returns every listener key, sorted.
func (d *Dispatcher) Keys() []string {
	keys := make([]string, 0, len(d.listeners))
	for key := range d.listeners {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	return len(d.listeners)
}

// Dispatch invokes every listener registered for eventName with payload.
//
// The matching keys are snapshotted first, so callbacks may add or
// remove listeners without invalidating the iteration; a listener added
// for the same event mid-dispatch is not invoked this round, and one
// removed mid-dispatch is skipped. A panicking listener never aborts the
// dispatch of the remaining ones.
func (d *Dispatcher) Dispatch(eventName string, payload any) {
	prefix := RootKey + ":" + EncodeName(eventName) + ":"

	var matched []string

	for key := range d.listeners {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}

	sort.Strings(matched)

	for _, key := range matched {
		cb, ok := d.listeners[key]
		if !ok || cb == nil {
			continue
		}

		invoke(cb, payload)
	}
}

// Clean removes every listener.
func (d *Dispatcher) Clean() {
	clear(d.listeners)
}

// invoke isolates a single listener call: a panic inside the callback is
// swallowed so it cannot abort dispatch or corrupt the caller.
func invoke(cb Callback, payload any) {
	defer func() {
		_ = recover()
	}()

	cb(payload)
}

// idSegment extracts the third colon-delimited segment of a listener
// key, which is the raw listener id.
func idSegment(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return ""
	}

	return parts[2]
}
