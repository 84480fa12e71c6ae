// Package event provides a synchronous event dispatcher.
//
// Listeners are stored under structured keys of the form
// "_Event:<b64url(name)>:<id>". Base64url-encoding the event name keeps
// the ":" delimiter unambiguous and the key character set restricted.
// Dispatch iterates a snapshot of the matching keys, so listeners may
// register or remove listeners from within a callback.
package event
