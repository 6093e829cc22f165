package tesseract

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/otiai10/gosseract/v2"

	"github.com/pagelift/pagelift/pkg/align"
	"github.com/pagelift/pagelift/pkg/extract"
)

// Extractor implements the Tesseract geometry extractor using the gosseract
// client. Line boxes are reliable even on handwriting where the recognized
// text is not.
type Extractor struct {
	clientFactory func() *gosseract.Client
}

// New creates a new Tesseract extractor
func New() *Extractor {
	return &Extractor{clientFactory: gosseract.NewClient}
}

// Name returns the extractor name
func (e *Extractor) Name() string {
	return "tesseract"
}

// ValidateConfig validates the Tesseract configuration
func (e *Extractor) ValidateConfig(config extract.Config) error {
	if config.DPI < 0 {
		return fmt.Errorf("dpi must be >= 0, got %d", config.DPI)
	}
	return nil
}

// Extract runs Tesseract over the page image and returns one region per
// recognized text line.
func (e *Extractor) Extract(ctx context.Context, config extract.Config, imagePath string) (align.Page, error) {
	select {
	case <-ctx.Done():
		return align.Page{}, ctx.Err()
	default:
	}

	width, height, err := imageDims(imagePath)
	if err != nil {
		return align.Page{}, fmt.Errorf("read image dimensions: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImage(imagePath); err != nil {
		return align.Page{}, fmt.Errorf("set image: %w", err)
	}
	if len(config.Languages) > 0 {
		if err := c.SetLanguage(config.Languages...); err != nil {
			return align.Page{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if config.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(config.DPI)); err != nil {
			return align.Page{}, fmt.Errorf("set dpi: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return align.Page{}, fmt.Errorf("get line boxes: %w", err)
	}

	return align.Page{
		Width:   width,
		Height:  height,
		Regions: regionsFromBoxes(boxes, width, height),
	}, nil
}

// regionsFromBoxes converts Tesseract line boxes into detected regions in
// emission order. Whitespace-only lines are dropped and boxes are clamped to
// the page, since Tesseract occasionally reports a box one pixel past the
// edge.
func regionsFromBoxes(boxes []gosseract.BoundingBox, width, height int) []align.DetectedRegion {
	var regions []align.DetectedRegion
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		box := clampBox(b.Box, width, height)
		if box.X0 >= box.X1 || box.Y0 >= box.Y1 {
			continue
		}
		regions = append(regions, align.DetectedRegion{
			Box:        box,
			RawText:    text,
			Order:      len(regions),
			Confidence: b.Confidence / 100.0,
		})
	}
	return regions
}

func clampBox(r image.Rectangle, width, height int) align.Rect {
	return align.Rect{
		X0: clamp(float64(r.Min.X), 0, float64(width)),
		Y0: clamp(float64(r.Min.Y), 0, float64(height)),
		X1: clamp(float64(r.Max.X), 0, float64(width)),
		Y1: clamp(float64(r.Max.Y), 0, float64(height)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func imageDims(imagePath string) (int, int, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
