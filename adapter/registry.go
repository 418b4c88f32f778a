package adapter

import (
	"sort"
	"sync"
)

// Factory builds an unconnected adapter.
type Factory func() Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an adapter factory to the registry.
// Backends call it from their init functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// New creates an unconnected adapter registered under name.
func New(name string) (Adapter, error) {
	factory, ok := Get(name)
	if !ok {
		return nil, &UnknownAdapterError{Name: name, Available: List()}
	}
	return factory(), nil
}

// List returns all registered adapter names, sorted.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
