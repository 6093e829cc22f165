package tesseract

import (
	"image"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/pagelift/pagelift/pkg/extract"
)

func TestExtractor_Name(t *testing.T) {
	e := New()
	if e.Name() != "tesseract" {
		t.Errorf("Expected name 'tesseract', got '%s'", e.Name())
	}
}

func TestExtractor_ValidateConfig(t *testing.T) {
	e := New()
	if err := e.ValidateConfig(extract.Config{DPI: 300}); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if err := e.ValidateConfig(extract.Config{DPI: -1}); err == nil {
		t.Error("Expected error for negative DPI")
	}
}

func TestRegionsFromBoxes(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(10, 10, 200, 40), Word: "first line", Confidence: 92},
		{Box: image.Rect(10, 50, 180, 80), Word: "   ", Confidence: 10},
		{Box: image.Rect(-5, 90, 210, 1250), Word: "clamped line", Confidence: 80},
	}

	regions := regionsFromBoxes(boxes, 200, 1200)

	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2 (whitespace-only line dropped)", len(regions))
	}
	if regions[0].RawText != "first line" || regions[0].Order != 0 {
		t.Errorf("region 0 = %+v", regions[0])
	}
	if got, want := regions[0].Confidence, 0.92; got != want {
		t.Errorf("region 0 confidence = %v, want %v", got, want)
	}
	r1 := regions[1]
	if r1.Order != 1 {
		t.Errorf("region 1 order = %d, want 1", r1.Order)
	}
	if r1.Box.X0 != 0 || r1.Box.X1 != 200 || r1.Box.Y1 != 1200 {
		t.Errorf("region 1 box not clamped to page: %+v", r1.Box)
	}
}

func TestRegionsFromBoxesEmpty(t *testing.T) {
	if regions := regionsFromBoxes(nil, 100, 100); regions != nil {
		t.Errorf("Expected nil regions for no boxes, got %+v", regions)
	}
}
