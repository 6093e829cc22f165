// Package align maps high-fidelity page transcriptions onto the bounding
// boxes produced by a geometry recognizer, producing a per-page text layer
// plan that downstream tooling can embed as an invisible, selectable layer.
package align

import "fmt"

// PlacementMode describes how a text layer entry is positioned on the page.
type PlacementMode string

const (
	// ModeAnchored ties the entry to a specific detected bounding box.
	ModeAnchored PlacementMode = "anchored"
	// ModeWholePage covers the page's full text-bearing extent, used when
	// box-level anchoring is unreliable.
	ModeWholePage PlacementMode = "whole_page"
)

// Rect is an axis-aligned rectangle in page-pixel coordinates.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	u := r
	if o.X0 < u.X0 {
		u.X0 = o.X0
	}
	if o.Y0 < u.Y0 {
		u.Y0 = o.Y0
	}
	if o.X1 > u.X1 {
		u.X1 = o.X1
	}
	if o.Y1 > u.Y1 {
		u.Y1 = o.Y1
	}
	return u
}

// DetectedRegion is one text region reported by the geometry recognizer.
// Regions are immutable once created by an extractor.
type DetectedRegion struct {
	Box        Rect    `json:"box"`
	RawText    string  `json:"raw_text"`
	Order      int     `json:"order"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Page is the geometry recognizer's result for one page image.
type Page struct {
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Regions []DetectedRegion `json:"regions"`
}

// PageTranscription is the vision model's full-page transcription.
type PageTranscription struct {
	Text      string `json:"text"`
	PageIndex int    `json:"page_index"`
}

// TextLayerEntry is one placed piece of the final text layer.
type TextLayerEntry struct {
	Box  Rect          `json:"box"`
	Text string        `json:"text"`
	Mode PlacementMode `json:"mode"`
}

// TextLayerPlan is the engine's sole output for one page. Entries are in
// reading order; concatenating their text reproduces the transcription up to
// whitespace normalization.
type TextLayerPlan struct {
	Entries            []TextLayerEntry `json:"entries"`
	PageAlignmentScore float64          `json:"page_alignment_score"`
	UsedFallback       bool             `json:"used_fallback"`
}

// ValidationError reports malformed engine input, such as an inverted or
// out-of-bounds box. The page that produced it yields no plan.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
