package extract

import (
	"fmt"
	"strings"
)

// Registry manages all available extractors
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a new extractor registry
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
	}
}

// Register adds an extractor to the registry
func (r *Registry) Register(e Extractor) {
	r.extractors[strings.ToLower(e.Name())] = e
}

// Get retrieves an extractor by name
func (r *Registry) Get(name string) (Extractor, error) {
	e, exists := r.extractors[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("extractor %s not found", name)
	}
	return e, nil
}

// List returns all available extractor names
func (r *Registry) List() []string {
	var names []string
	for name := range r.extractors {
		names = append(names, name)
	}
	return names
}

// Has checks if an extractor is registered
func (r *Registry) Has(name string) bool {
	_, exists := r.extractors[strings.ToLower(name)]
	return exists
}
