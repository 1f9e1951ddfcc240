package arena

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps names to arenas so independent components can share one.
//
// The registry holds one reference to every arena it contains. Arenas
// returned by GetOrCreate and Attach carry an additional reference that the
// caller must drop with Release.
type Registry struct {
	mu     sync.Mutex
	arenas map[string]*Arena
	opts   []Option
}

// NewRegistry returns an empty registry. opts are applied to every arena it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		arenas: make(map[string]*Arena),
		opts:   opts,
	}
}

// GetOrCreate returns the arena registered under name, creating it from cfg
// if absent. For shared arenas an empty cfg.Name defaults to name.
func (r *Registry) GetOrCreate(name string, cfg Config) (*Arena, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.arenas[name]; ok {
		a.Retain()
		return a, nil
	}

	if cfg.Backing == BackingShared && cfg.Name == "" {
		cfg.Name = name
	}

	a := New(r.opts...)
	if err := a.Create(cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	r.arenas[name] = a
	a.Retain()

	return a, nil
}

// Attach returns the arena registered under name, attaching to the shared
// region of that name if absent.
func (r *Registry) Attach(name string, size uint64) (*Arena, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.arenas[name]; ok {
		a.Retain()
		return a, nil
	}

	a := New(r.opts...)
	if err := a.Attach(name, size); err != nil {
		_ = a.Close()
		return nil, err
	}

	r.arenas[name] = a
	a.Retain()

	return a, nil
}

// Get returns the arena registered under name without creating it.
func (r *Registry) Get(name string) (*Arena, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.arenas[name]
	if ok {
		a.Retain()
	}
	return a, ok
}

// Remove drops the registry's reference to name. The arena is closed once
// every other holder has released it.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	a, ok := r.arenas[name]
	delete(r.arenas, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a.Release()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Sorted(maps.Keys(r.arenas))
}

// Len returns the number of registered arenas.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.arenas)
}

// Close removes every arena from the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	arenas := r.arenas
	r.arenas = make(map[string]*Arena)
	r.mu.Unlock()

	var errs []error
	for _, a := range arenas {
		if err := a.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
