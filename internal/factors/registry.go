package factors

import (
	"fmt"
	"sort"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
)

// Registry is an explicit name -> provider map, fixed at construction.
type Registry struct {
	providers map[string]contracts.SignalProvider
}

// NewRegistry fails on duplicate provider names.
func NewRegistry(providers ...contracts.SignalProvider) (*Registry, error) {
	r := &Registry{providers: make(map[string]contracts.SignalProvider, len(providers))}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate factor name %q", p.Name())
		}
		r.providers[p.Name()] = p
	}
	return r, nil
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (contracts.SignalProvider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns registered names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Providers returns providers in name order
func (r *Registry) Providers() []contracts.SignalProvider {
	out := make([]contracts.SignalProvider, 0, len(r.providers))
	for _, n := range r.Names() {
		out = append(out, r.providers[n])
	}
	return out
}

// Len returns the number of providers
func (r *Registry) Len() int {
	return len(r.providers)
}
