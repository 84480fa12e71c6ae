package store

import "sync"

// Registry hands out named shared memory backends.
//
// It replaces the class-level singleton of earlier designs with explicit
// ownership: the first request for a name creates the backend, later
// requests return the same instance. Two handles obtained under the same
// name are the same *MemoryBackend and therefore report equal IDs.
type Registry struct {
	mu       sync.Mutex
	backends map[string]*MemoryBackend
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]*MemoryBackend),
	}
}

// Shared returns the backend registered under name, creating it on first use.
func (r *Registry) Shared(name string) *MemoryBackend {
	r.mu.Lock()
	defer r.mu.Unlock()

	backend, ok := r.backends[name]
	if !ok {
		backend = NewMemoryBackend()
		r.backends[name] = backend
	}

	return backend
}

// Names returns the names currently registered.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}

	return names
}

// defaultRegistry backs the package-level Shared helper. Its lifetime
// spans from first use to process exit.
var defaultRegistry = NewRegistry()

// Shared returns a process-wide shared memory backend for name.
//
// Every caller passing the same name receives the same backend, so any
// mutation is visible to all of them.
func Shared(name string) *MemoryBackend {
	return defaultRegistry.Shared(name)
}
