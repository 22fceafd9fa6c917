// Package providers maintains the registry of available provider
// adapters. Provider subpackages register a factory during init() and
// callers look adapters up by name.
package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xlr8harder/llmclient/llm"
)

// Factory creates a fresh provider adapter instance.
type Factory func() llm.Provider

// Registry manages name-to-provider mappings. Lookups are
// case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a provider factory under the given name. Registering
// the same name twice panics; provider names are a fixed configuration
// surface, not a runtime namespace.
func (r *Registry) Register(name string, factory Factory) {
	key := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[key]; exists {
		panic(fmt.Sprintf("provider %q registered twice", key))
	}
	r.factories[key] = factory
}

// Get returns a provider adapter for the given name. Unknown names
// are a configuration error naming the registered set.
func (r *Registry) Get(name string) (llm.Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return factory(), nil
}

// Names returns the sorted registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Global default registry, populated by provider init() functions.
var defaultRegistry = NewRegistry()

// Register adds a provider factory to the default registry.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}

// Get looks up a provider in the default registry.
func Get(name string) (llm.Provider, error) {
	return defaultRegistry.Get(name)
}

// Names returns the provider names in the default registry.
func Names() []string {
	return defaultRegistry.Names()
}

// DefaultRegistry returns the default global registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
