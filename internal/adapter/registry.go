package adapter

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// SourceOptions carries the settings a registration source may need
type SourceOptions struct {
	Timeout       time.Duration
	RDAPEndpoints []string
}

// SourceFactory builds a registration source
type SourceFactory func(opts SourceOptions) (RegistrationSource, error)

// Registry manages the registration sources selectable by name
type Registry struct {
	mu        sync.RWMutex
	factories map[string]SourceFactory
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]SourceFactory),
	}
}

// DefaultRegistry returns a registry holding the built-in whois and rdap sources
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("whois", func(opts SourceOptions) (RegistrationSource, error) {
		return NewWhoisSource(opts.Timeout), nil
	})
	r.Register("rdap", func(opts SourceOptions) (RegistrationSource, error) {
		return NewRDAPSource(opts.RDAPEndpoints, opts.Timeout)
	})
	return r
}

// Register adds a source factory under name
func (r *Registry) Register(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// New builds the source registered under name
func (r *Registry) New(name string, opts SourceOptions) (RegistrationSource, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown registration source %q (available: %v)", name, r.Names())
	}
	return factory(opts)
}

// Names returns the registered source names sorted
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
