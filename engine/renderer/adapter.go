package renderer

import (
	"sort"
	"sync"

	"github.com/spaghettifunk/pneuma/engine/core"
)

// AdapterFactory creates a fresh backend instance.
type AdapterFactory func() RendererBackend

type adapterEntry struct {
	name     string
	priority int
	factory  AdapterFactory
}

// AdapterRegistry is the ordered collection of known backend adapters.
// Each backend package registers its factory once during engine startup
// against the registry instance the engine owns; there is no package level
// registration state, so tests can build isolated registries.
type AdapterRegistry struct {
	mu      sync.RWMutex
	entries []adapterEntry
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{}
}

// Register adds a backend factory under name. Higher priority adapters are
// preferred by Default. Registering a name twice replaces the previous
// factory with a warning; the last registration wins.
func (r *AdapterRegistry) Register(name string, priority int, factory AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].name == name {
			core.LogWarn("adapter registry: backend %s registered twice, replacing", name)
			r.entries[i].priority = priority
			r.entries[i].factory = factory
			r.sortLocked()
			return
		}
	}
	r.entries = append(r.entries, adapterEntry{name: name, priority: priority, factory: factory})
	r.sortLocked()
}

// Unregister removes a backend by name. Used by tests.
func (r *AdapterRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// Available returns the registered backend names, highest priority first.
func (r *AdapterRegistry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.name)
	}
	return names
}

// Get instantiates the backend registered under name, or nil when unknown.
func (r *AdapterRegistry) Get(name string) RendererBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.name == name {
			return e.factory()
		}
	}
	return nil
}

// Default instantiates the highest priority backend whose factory yields an
// instance, or nil when the registry is empty.
func (r *AdapterRegistry) Default() RendererBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if backend := e.factory(); backend != nil {
			return backend
		}
	}
	return nil
}

// sortLocked keeps entries ordered by descending priority, with insertion
// order as the tie break. Caller holds the write lock.
func (r *AdapterRegistry) sortLocked() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].priority > r.entries[j].priority
	})
}
