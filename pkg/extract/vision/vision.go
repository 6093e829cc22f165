package vision

import (
	"context"
	"fmt"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/pagelift/pagelift/pkg/align"
	"github.com/pagelift/pagelift/pkg/extract"
)

// Extractor implements the Google Cloud Vision geometry extractor. Document
// text detection returns paragraph geometry with per-symbol text; one region
// is emitted per paragraph.
type Extractor struct{}

// New creates a new Cloud Vision extractor
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name
func (e *Extractor) Name() string {
	return "vision"
}

// ValidateConfig validates the Cloud Vision configuration
func (e *Extractor) ValidateConfig(config extract.Config) error {
	// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or ambient
	// service-account auth; the client reports missing credentials itself.
	return nil
}

// Extract runs document text detection on the page image.
func (e *Extractor) Extract(ctx context.Context, config extract.Config, imagePath string) (align.Page, error) {
	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return align.Page{}, fmt.Errorf("create vision client: %w", err)
	}
	defer client.Close()

	f, err := os.Open(imagePath)
	if err != nil {
		return align.Page{}, err
	}
	defer f.Close()

	img, err := vision.NewImageFromReader(f)
	if err != nil {
		return align.Page{}, fmt.Errorf("read image: %w", err)
	}

	var ictx *visionpb.ImageContext
	if len(config.Languages) > 0 {
		ictx = &visionpb.ImageContext{LanguageHints: config.Languages}
	}

	annotation, err := client.DetectDocumentText(ctx, img, ictx)
	if err != nil {
		return align.Page{}, fmt.Errorf("detect document text: %w", err)
	}

	return pageFromAnnotation(annotation)
}

// pageFromAnnotation flattens the block/paragraph/word/symbol hierarchy into
// one detected region per paragraph.
func pageFromAnnotation(annotation *visionpb.TextAnnotation) (align.Page, error) {
	if annotation == nil || len(annotation.Pages) == 0 {
		return align.Page{}, fmt.Errorf("no pages in vision response")
	}

	p := annotation.Pages[0]
	page := align.Page{
		Width:  int(p.Width),
		Height: int(p.Height),
	}

	for _, block := range p.Blocks {
		for _, para := range block.Paragraphs {
			text := paragraphText(para)
			if text == "" {
				continue
			}
			box, ok := boundsFromPoly(para.BoundingBox, page.Width, page.Height)
			if !ok {
				continue
			}
			page.Regions = append(page.Regions, align.DetectedRegion{
				Box:        box,
				RawText:    text,
				Order:      len(page.Regions),
				Confidence: float64(para.Confidence),
			})
		}
	}

	return page, nil
}

func paragraphText(para *visionpb.Paragraph) string {
	var words []string
	for _, w := range para.Words {
		var b strings.Builder
		for _, s := range w.Symbols {
			b.WriteString(s.Text)
		}
		if b.Len() > 0 {
			words = append(words, b.String())
		}
	}
	return strings.Join(words, " ")
}

// boundsFromPoly reduces a bounding polygon to its axis-aligned envelope,
// clamped to the page.
func boundsFromPoly(poly *visionpb.BoundingPoly, width, height int) (align.Rect, bool) {
	if poly == nil || len(poly.Vertices) == 0 {
		return align.Rect{}, false
	}

	r := align.Rect{
		X0: float64(poly.Vertices[0].X),
		Y0: float64(poly.Vertices[0].Y),
		X1: float64(poly.Vertices[0].X),
		Y1: float64(poly.Vertices[0].Y),
	}
	for _, v := range poly.Vertices[1:] {
		r.X0 = min(r.X0, float64(v.X))
		r.Y0 = min(r.Y0, float64(v.Y))
		r.X1 = max(r.X1, float64(v.X))
		r.Y1 = max(r.Y1, float64(v.Y))
	}

	r.X0 = max(r.X0, 0)
	r.Y0 = max(r.Y0, 0)
	r.X1 = min(r.X1, float64(width))
	r.Y1 = min(r.Y1, float64(height))
	if r.X0 >= r.X1 || r.Y0 >= r.Y1 {
		return align.Rect{}, false
	}
	return r, true
}
