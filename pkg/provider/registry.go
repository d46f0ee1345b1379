package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry stores constructed providers by kind so the active backend can be
// looked up or swapped by identity.
type Registry struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[Kind]Provider),
	}
}

// Register adds p under p.Kind(). Duplicate kinds return an error.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("provider: provider is required")
	}
	kind := p.Kind()
	if !kind.Valid() {
		return fmt.Errorf("provider: invalid kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[kind]; exists {
		return fmt.Errorf("provider: %q already registered", kind)
	}
	r.providers[kind] = p
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get retrieves a provider by kind.
func (r *Registry) Get(kind Kind) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[kind]
	if !ok {
		return nil, fmt.Errorf("provider: %q not registered", kind)
	}
	return p, nil
}

// List returns the registered kinds sorted by name.
func (r *Registry) List() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.providers))
	for kind := range r.providers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
