package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sbomify/assessments/internal/domain/plugins"
)

// ChoicesResolver computes a tenant-scoped choice list for a schema field
// naming a dynamic choices source.
type ChoicesResolver func(ctx context.Context, tenant string) []plugins.Choice

type entry struct {
	catalog plugins.RegisteredPlugin
	impl    plugins.Plugin
}

// Registry is the explicit plugin registration table, populated once at
// process start. The orchestration path only ever reads it.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]entry
	resolvers map[string]ChoicesResolver
}

func New() *Registry {
	return &Registry{
		entries:   make(map[string]entry),
		resolvers: make(map[string]ChoicesResolver),
	}
}

// Register adds a catalog entry together with its implementation. Names are
// globally unique; a duplicate registration is a wiring bug.
func (r *Registry) Register(catalog plugins.RegisteredPlugin, impl plugins.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[catalog.Name]; exists {
		return fmt.Errorf("plugin already registered: %s", catalog.Name)
	}
	r.entries[catalog.Name] = entry{catalog: catalog, impl: impl}
	return nil
}

// RegisterResolver installs a named dynamic-choices resolver.
func (r *Registry) RegisterResolver(name string, fn ChoicesResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[name] = fn
}

// Get returns a catalog entry by name.
func (r *Registry) Get(name string) (*plugins.RegisteredPlugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("plugin not found: %s", name)
	}
	cat := e.catalog
	return &cat, nil
}

// Impl returns the implementation behind a registered plugin.
func (r *Registry) Impl(name string) (plugins.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("plugin not found: %s", name)
	}
	return e.impl, nil
}

// ListEnabled returns globally enabled catalog entries, sorted by name.
func (r *Registry) ListEnabled() []plugins.RegisteredPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]plugins.RegisteredPlugin, 0, len(r.entries))
	for _, e := range r.entries {
		if e.catalog.Enabled {
			out = append(out, e.catalog)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveConfigSchema replaces every field naming a dynamic choices source
// with a concrete, tenant-scoped choice list. Unknown resolver names degrade
// to an empty list. The stored schema is never mutated; a new slice comes out.
func (r *Registry) ResolveConfigSchema(ctx context.Context, p *plugins.RegisteredPlugin, tenant string) []plugins.ConfigField {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]plugins.ConfigField, len(p.Schema))
	for i, f := range p.Schema {
		resolved := f
		if f.ChoicesSource != "" {
			resolved.Choices = nil
			if fn, ok := r.resolvers[f.ChoicesSource]; ok {
				resolved.Choices = fn(ctx, tenant)
			}
			if resolved.Choices == nil {
				resolved.Choices = []plugins.Choice{}
			}
		} else if f.Choices != nil {
			resolved.Choices = append([]plugins.Choice(nil), f.Choices...)
		}
		out[i] = resolved
	}
	return out
}
