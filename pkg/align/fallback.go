package align

// bottomStripRatio sizes the trailing completeness entry's box relative to
// the detected text extent.
const bottomStripRatio = 0.15

// finalize applies the fallback policy to the raw alignment result.
//
//   - score >= HighScore: anchored plan; gap tokens fold into the preceding
//     region's range so nothing is dropped.
//   - score < LowScore: one whole-page entry carrying the untouched
//     transcription.
//   - in between: anchored entries for regions whose match quality clears
//     the token threshold, plus one trailing entry for the unassigned tail.
//
// The HighScore boundary is inclusive and the LowScore boundary lands in the
// middle band.
func (e *Engine) finalize(page Page, regions []DetectedRegion, assignments []regionAssignment, textTokens []token, text string, score float64) *TextLayerPlan {
	switch {
	case score >= e.opts.HighScore:
		kept := matchedRegions(assignments)
		if len(kept) == 0 {
			// Only reachable with a zero HighScore; keep the content anyway.
			return wholePagePlan(page, regions, text, score)
		}
		return anchoredPlan(regions, assignments, kept, textTokens, text, score)
	case score < e.opts.LowScore:
		return wholePagePlan(page, regions, text, score)
	default:
		return e.middlePlan(regions, assignments, textTokens, text, score)
	}
}

// matchedRegions lists the indices of regions that claimed at least one
// transcription token, in region order.
func matchedRegions(assignments []regionAssignment) []int {
	var kept []int
	for r, a := range assignments {
		if a.matched > 0 {
			kept = append(kept, r)
		}
	}
	return kept
}

// anchoredPlan emits one anchored entry per kept region. Region k's range
// runs from its first matched token to the next kept region's first match,
// with the first range pulled back to the start of the transcription and the
// last pushed to its end, so every token lands in exactly one entry.
func anchoredPlan(regions []DetectedRegion, assignments []regionAssignment, kept []int, textTokens []token, text string, score float64) *TextLayerPlan {
	var entries []TextLayerEntry
	for k, r := range kept {
		start := assignments[r].firstText
		if k == 0 {
			start = 0
		}
		end := len(textTokens)
		if k+1 < len(kept) {
			end = assignments[kept[k+1]].firstText
		}
		entries = append(entries, TextLayerEntry{
			Box:  regions[r].Box,
			Text: sliceText(text, textTokens, start, end),
			Mode: ModeAnchored,
		})
	}
	return &TextLayerPlan{Entries: entries, PageAlignmentScore: score}
}

// middlePlan keeps only regions whose match quality clears the token
// threshold, then appends a trailing entry for whatever transcription remains
// after the last kept region. The trailing box sits at the bottom of the
// detected text extent: positions there are approximate, but no transcribed
// content is lost.
func (e *Engine) middlePlan(regions []DetectedRegion, assignments []regionAssignment, textTokens []token, text string, score float64) *TextLayerPlan {
	minQuality := 1 - e.opts.MatchTokenThreshold
	var kept []int
	for r, a := range assignments {
		if a.matched > 0 && a.quality >= minQuality {
			kept = append(kept, r)
		}
	}

	extent, _ := unionBoxes(regions)
	strip := bottomStrip(extent)

	if len(kept) == 0 {
		return &TextLayerPlan{
			Entries:            []TextLayerEntry{{Box: strip, Text: text, Mode: ModeAnchored}},
			PageAlignmentScore: score,
		}
	}

	var entries []TextLayerEntry
	for k, r := range kept {
		start := assignments[r].firstText
		if k == 0 {
			start = 0
		}
		end := assignments[r].lastText + 1
		if k+1 < len(kept) {
			end = assignments[kept[k+1]].firstText
		}
		entries = append(entries, TextLayerEntry{
			Box:  regions[r].Box,
			Text: sliceText(text, textTokens, start, end),
			Mode: ModeAnchored,
		})
	}

	tailStart := assignments[kept[len(kept)-1]].lastText + 1
	if tailStart < len(textTokens) {
		entries = append(entries, TextLayerEntry{
			Box:  strip,
			Text: sliceText(text, textTokens, tailStart, len(textTokens)),
			Mode: ModeAnchored,
		})
	}

	return &TextLayerPlan{Entries: entries, PageAlignmentScore: score}
}

// wholePagePlan is the content-preserving fallback: one entry whose box is
// the union of all detected boxes (the whole page when there are none) and
// whose text is the complete, untouched transcription.
func wholePagePlan(page Page, regions []DetectedRegion, text string, score float64) *TextLayerPlan {
	box, ok := unionBoxes(regions)
	if !ok {
		box = Rect{X1: float64(page.Width), Y1: float64(page.Height)}
	}
	return &TextLayerPlan{
		Entries:            []TextLayerEntry{{Box: box, Text: text, Mode: ModeWholePage}},
		PageAlignmentScore: score,
		UsedFallback:       true,
	}
}

func unionBoxes(regions []DetectedRegion) (Rect, bool) {
	if len(regions) == 0 {
		return Rect{}, false
	}
	u := regions[0].Box
	for _, r := range regions[1:] {
		u = u.Union(r.Box)
	}
	return u, true
}

func bottomStrip(extent Rect) Rect {
	h := (extent.Y1 - extent.Y0) * bottomStripRatio
	return Rect{X0: extent.X0, Y0: extent.Y1 - h, X1: extent.X1, Y1: extent.Y1}
}
