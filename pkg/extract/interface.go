package extract

import (
	"context"

	"github.com/pagelift/pagelift/pkg/align"
)

// Config represents the configuration for a geometry extractor
type Config struct {
	// Languages hints the recognizer at the scripts on the page, e.g.
	// ["eng", "deu"]. Extractors that take no hint ignore it.
	Languages []string
	// DPI is the resolution the page image was rendered at. Zero means the
	// extractor's default.
	DPI int
}

// Extractor is implemented by all geometry backends that can find word and
// line bounding boxes on a page image. The raw text inside the boxes may be
// garbage for handwriting; only the geometry needs to be trustworthy.
type Extractor interface {
	// Extract returns the page dimensions and detected text regions, in
	// reading order.
	Extract(ctx context.Context, config Config, imagePath string) (align.Page, error)
	// Name returns the extractor's name
	Name() string
	// ValidateConfig validates the extractor-specific configuration
	ValidateConfig(config Config) error
}
