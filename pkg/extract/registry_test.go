package extract

import (
	"context"
	"testing"

	"github.com/pagelift/pagelift/pkg/align"
)

type fakeExtractor struct {
	name string
}

func (f *fakeExtractor) Extract(ctx context.Context, config Config, imagePath string) (align.Page, error) {
	return align.Page{}, nil
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) ValidateConfig(config Config) error { return nil }

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&fakeExtractor{name: "Mock"})

	if !registry.Has("mock") {
		t.Error("Has should be case insensitive")
	}
	if _, err := registry.Get("MOCK"); err != nil {
		t.Errorf("Get should be case insensitive, got: %v", err)
	}
	if _, err := registry.Get("missing"); err == nil {
		t.Error("Expected error for unknown extractor")
	}
	if names := registry.List(); len(names) != 1 || names[0] != "mock" {
		t.Errorf("List() = %v, want [mock]", names)
	}
}
