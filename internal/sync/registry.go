package sync

import (
	"fmt"
	"sort"
)

// Registry maps entity type names to their adapters. Pull and Push stay
// entity-agnostic by dispatching through it.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its entity type. Registering the same
// type twice is a wiring bug, so it panics during boot rather than
// silently replacing.
func (r *Registry) Register(a Adapter) {
	name := a.EntityType()
	if _, dup := r.adapters[name]; dup {
		panic(fmt.Sprintf("sync: adapter %q registered twice", name))
	}
	r.adapters[name] = a
}

// Adapter returns the adapter for an entity type.
func (r *Registry) Adapter(entityType string) (Adapter, error) {
	a, ok := r.adapters[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
	return a, nil
}

// Types lists the registered entity types in stable order.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
