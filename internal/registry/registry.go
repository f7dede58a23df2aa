package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotFound is returned by Lookup for unknown names.
var ErrNotFound = errors.New("manager not registered")

// Registry maps manager names to their instances, remembering insertion order.
type Registry struct {
	mu    sync.RWMutex
	names []string
	items map[string]any
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{items: make(map[string]any)}
}

// Add registers a manager. Names are unique.
func (r *Registry) Add(name string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		return fmt.Errorf("manager %q already registered", name)
	}
	r.items[name] = v
	r.names = append(r.names, name)
	return nil
}

// Get returns a registered manager.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	return v, ok
}

// Names returns manager names in construction order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Len returns the number of registered managers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Lookup returns a registered manager with its concrete type.
func Lookup[T any](r *Registry, name string) (T, error) {
	var zero T
	v, ok := r.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("manager %q has type %T, want %T", name, v, zero)
	}
	return typed, nil
}
