package extract

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownExtractor is returned for names that are not registered.
var ErrUnknownExtractor = errors.New("extractor not found")

// Registry manages extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
	}
}

// Register adds an extractor to the registry.
func (r *Registry) Register(e Extractor) error {
	if e == nil {
		return fmt.Errorf("cannot register nil extractor")
	}
	name := e.Name()
	if name == "" {
		return fmt.Errorf("extractor name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.extractors[name]; exists {
		return fmt.Errorf("extractor already registered: %s", name)
	}

	r.extractors[name] = e
	return nil
}

// Get returns an extractor by name.
func (r *Registry) Get(name string) (Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtractor, name)
	}
	return e, nil
}

// List returns all registered extractor names (sorted).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if an extractor is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[name]
	return ok
}

// Count returns the number of registered extractors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.extractors)
}

// Unregister removes an extractor from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.extractors[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExtractor, name)
	}
	delete(r.extractors, name)
	return nil
}

// DefaultRegistry is the global extractor registry. It holds the cells,
// outline and diagnostics extractors.
var DefaultRegistry = NewRegistry()

// Register adds an extractor to the default registry.
func Register(e Extractor) error {
	return DefaultRegistry.Register(e)
}

// Get returns an extractor from the default registry.
func Get(name string) (Extractor, error) {
	return DefaultRegistry.Get(name)
}

// List returns all extractor names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
