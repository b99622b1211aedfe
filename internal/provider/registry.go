package provider

import (
	"fmt"
	"sort"
)

// Factory builds a Backend from options.
type Factory func(opts Options) (Backend, error)

// Registry maps backend names to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a backend factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// New builds the backend registered under name.
func (r *Registry) New(name string, opts Options) (Backend, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("no registered backend with name %q (have %v)", name, r.Names())
	}
	return f(opts)
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
