package transcribe

import (
	"fmt"
	"strings"
)

// Registry manages all available transcribers
type Registry struct {
	transcribers map[string]Transcriber
}

// NewRegistry creates a new transcriber registry
func NewRegistry() *Registry {
	return &Registry{
		transcribers: make(map[string]Transcriber),
	}
}

// Register adds a transcriber to the registry
func (r *Registry) Register(tr Transcriber) {
	r.transcribers[strings.ToLower(tr.Name())] = tr
}

// Get retrieves a transcriber by name
func (r *Registry) Get(name string) (Transcriber, error) {
	tr, exists := r.transcribers[strings.ToLower(name)]
	if !exists {
		return nil, fmt.Errorf("transcriber %s not found", name)
	}
	return tr, nil
}

// List returns all available transcriber names
func (r *Registry) List() []string {
	var names []string
	for name := range r.transcribers {
		names = append(names, name)
	}
	return names
}

// Has checks if a transcriber is registered
func (r *Registry) Has(name string) bool {
	_, exists := r.transcribers[strings.ToLower(name)]
	return exists
}
