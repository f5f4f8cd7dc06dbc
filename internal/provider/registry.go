package provider

import "fmt"

// Registry maps provider identifiers to their implementations. Selection of
// a provider is a lookup against this registry; callers never branch on the
// provider name themselves.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (registry *Registry) Register(name string, provider Provider) {
	registry.providers[name] = provider
}

// Get returns the provider registered under the given name, or an error
// naming the unknown identifier.
func (registry *Registry) Get(name string) (Provider, error) {
	if provider, ok := registry.providers[name]; ok {
		return provider, nil
	}

	return nil, fmt.Errorf("no metadata provider registered with name '%s'", name)
}

// Names returns the identifiers of every registered provider.
func (registry *Registry) Names() []string {
	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}

	return names
}
