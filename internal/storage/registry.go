package storage

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a backend from its single configuration string.
// The argument is backend-specific; an empty string selects the
// backend's default location.
type Factory func(arg string) (Backend, error)

type backendEntry struct {
	native  []Kind
	extra   []Kind
	factory Factory
}

// Registry validates and holds the available backend
// implementations. It replaces implicit class-level registration:
// construct one at process start, register the backends explicitly,
// and pass it wherever backends are opened.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]backendEntry
}

// NewRegistry returns an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]backendEntry)}
}

// Register adds a backend under name after checking that its combined
// native and extra kind coverage is a superset of MinimalKinds. A
// failed check leaves the registry unchanged.
func (r *Registry) Register(name string, native, extra []Kind, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: backend registration needs a name and a factory", ErrStorage)
	}

	covered := make(map[Kind]bool, len(native)+len(extra))
	for _, k := range native {
		covered[k] = true
	}
	for _, k := range extra {
		covered[k] = true
	}
	var missing []Kind
	for _, k := range MinimalKinds {
		if !covered[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: backend %q is missing required kinds %v", ErrStorage, name, missing)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; ok {
		return fmt.Errorf("%w: backend %q already registered", ErrStorage, name)
	}
	r.backends[name] = backendEntry{native: native, extra: extra, factory: factory}
	return nil
}

// Open constructs a registered backend from its configuration string.
func (r *Registry) Open(name, arg string) (Backend, error) {
	r.mu.RLock()
	entry, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", ErrStorage, name)
	}
	return entry.factory(arg)
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
