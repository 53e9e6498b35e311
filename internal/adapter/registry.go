package adapter

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/handshake/internal/storage"
)

// Factory builds an adapter bound to a per-session store view. The
// HTTP layer hands in a store namespaced to the browser session, so
// adapters are constructed cheaply per request.
type Factory func(store storage.Store) (Adapter, error)

// Registry holds the configured provider connections by name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a provider connection. Re-registering a name replaces
// the previous factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Adapter instantiates the named provider's adapter over the given
// session store. Unknown names are a ConfigurationError.
func (r *Registry) Adapter(name string, store storage.Store) (Adapter, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrConfiguration, name)
	}
	return f(store)
}

// Known reports whether a provider connection is registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Providers lists the registered connection names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
