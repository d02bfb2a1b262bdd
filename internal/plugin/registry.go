package plugin

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Registry maps names to plugins of a single type.
type Registry[T Plugin] struct {
	mu      sync.RWMutex
	kind    PluginType
	plugins map[string]T
}

// NewRegistry creates a new empty registry accepting plugins of kind.
func NewRegistry[T Plugin](kind PluginType) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		plugins: make(map[string]T),
	}
}

// Kind returns the plugin type accepted by this registry.
func (r *Registry[T]) Kind() PluginType {
	return r.kind
}

// Register adds a plugin to the registry.
// Returns an error if the metadata is invalid, the type does not match, or
// the name is already taken.
func (r *Registry[T]) Register(p T) error {
	metadata := p.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}
	if metadata.Type != r.kind {
		return fmt.Errorf("plugin %s is a %s, registry holds %s", metadata.Name, metadata.Type, r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[metadata.Name]; exists {
		return fmt.Errorf("%s %s already registered", r.kind, metadata.Name)
	}

	r.plugins[metadata.Name] = p
	return nil
}

// MustRegister is Register for the fixed startup set; it panics on error.
func (r *Registry[T]) MustRegister(plugins ...T) *Registry[T] {
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Get retrieves a plugin by name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q: %w", r.kind, name, ErrNotFound)
	}
	return p, nil
}

// Has checks if a plugin with the given name exists.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.plugins[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all registered plugins ordered by name.
func (r *Registry[T]) List() []T {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, 0, len(names))
	for _, name := range names {
		result = append(result, r.plugins[name])
	}
	return result
}

// Unregister removes a plugin from the registry.
func (r *Registry[T]) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; !ok {
		return fmt.Errorf("%s %q: %w", r.kind, name, ErrNotFound)
	}
	delete(r.plugins, name)
	return nil
}

// Count returns the number of registered plugins.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Unknown returns the names from names that are not registered, preserving order.
func (r *Registry[T]) Unknown(names []string) []string {
	var missing []string
	for _, name := range names {
		if !r.Has(name) && !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
	}
	return missing
}
