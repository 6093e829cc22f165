package align

import (
	"fmt"
	"slices"
	"sort"
)

// Options holds the engine's tunable thresholds. All three are configuration,
// not hard-coded behavior; callers may override them per invocation.
type Options struct {
	// MatchTokenThreshold is the maximum normalized edit distance at which
	// two tokens still count as a match.
	MatchTokenThreshold float64 `json:"match_token_threshold" yaml:"match_token_threshold"`
	// LowScore is the page alignment score below which the engine discards
	// anchoring entirely and falls back to whole-page placement.
	LowScore float64 `json:"low_score" yaml:"low_score"`
	// HighScore is the page alignment score at or above which the anchored
	// plan is accepted as-is.
	HighScore float64 `json:"high_score" yaml:"high_score"`
}

// DefaultOptions returns the thresholds tuned against sample documents.
func DefaultOptions() Options {
	return Options{
		MatchTokenThreshold: 0.34,
		LowScore:            0.35,
		HighScore:           0.75,
	}
}

// Validate checks that all thresholds are in range and ordered.
func (o Options) Validate() error {
	if o.MatchTokenThreshold < 0 || o.MatchTokenThreshold > 1 {
		return fmt.Errorf("match token threshold must be in [0,1], got %v", o.MatchTokenThreshold)
	}
	if o.LowScore < 0 || o.HighScore > 1 || o.LowScore > o.HighScore {
		return fmt.Errorf("score thresholds must satisfy 0 <= low <= high <= 1, got low=%v high=%v", o.LowScore, o.HighScore)
	}
	return nil
}

// Engine aligns page transcriptions to detected regions. It is stateless and
// safe for concurrent use across pages; Align performs no I/O and never
// blocks.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the thresholds the engine was built with.
func (e *Engine) Options() Options {
	return e.opts
}

// regionToken carries one region's word token through the combined stream.
type regionToken struct {
	region int
	norm   string
}

// matchedPair links a region token to the transcription token it matched.
type matchedPair struct {
	regionToken int
	textToken   int
	similarity  float64
}

// regionAssignment aggregates the matches one region received: the span of
// transcription tokens it claimed and its match quality.
type regionAssignment struct {
	firstText int
	lastText  int
	matched   int
	quality   float64
}

// Align maps the transcription onto the page's detected regions and returns
// the text layer plan. Empty regions and/or an empty transcription are valid
// inputs; malformed boxes or a negative page index return a *ValidationError.
// The returned plan always satisfies the completeness invariant: no
// transcription character outside whitespace is dropped or invented.
func (e *Engine) Align(page Page, tr PageTranscription) (*TextLayerPlan, error) {
	if err := validateInputs(page, tr); err != nil {
		return nil, err
	}

	textTokens := tokenize(tr.Text)
	if len(textTokens) == 0 {
		// Nothing to place. Score 1 so the empty plan never looks like a
		// failed alignment to callers watching progress events.
		return &TextLayerPlan{PageAlignmentScore: 1}, nil
	}

	regions := orderedRegions(page.Regions)
	stream := regionTokenStream(regions)
	if len(stream) == 0 {
		return wholePagePlan(page, regions, tr.Text, 0), nil
	}

	pairs := matchTokens(stream, textTokens, e.opts.MatchTokenThreshold)
	score := float64(len(pairs)) / float64(len(textTokens))
	assignments := assignRegions(len(regions), stream, pairs)

	return e.finalize(page, regions, assignments, textTokens, tr.Text, score), nil
}

func validateInputs(page Page, tr PageTranscription) error {
	if tr.PageIndex < 0 {
		return &ValidationError{Field: "page_index", Reason: fmt.Sprintf("must be >= 0, got %d", tr.PageIndex)}
	}
	if page.Width <= 0 || page.Height <= 0 {
		return &ValidationError{Field: "page", Reason: fmt.Sprintf("dimensions must be positive, got %dx%d", page.Width, page.Height)}
	}
	w, h := float64(page.Width), float64(page.Height)
	for i, r := range page.Regions {
		b := r.Box
		if b.X0 >= b.X1 || b.Y0 >= b.Y1 {
			return &ValidationError{
				Field:  fmt.Sprintf("regions[%d].box", i),
				Reason: fmt.Sprintf("empty or inverted rectangle (%v,%v)-(%v,%v)", b.X0, b.Y0, b.X1, b.Y1),
			}
		}
		if b.X0 < 0 || b.Y0 < 0 || b.X1 > w || b.Y1 > h {
			return &ValidationError{
				Field:  fmt.Sprintf("regions[%d].box", i),
				Reason: fmt.Sprintf("outside page bounds %dx%d", page.Width, page.Height),
			}
		}
	}
	return nil
}

// orderedRegions returns the regions sorted by extractor emission order.
// The sort is stable so ties keep their input order.
func orderedRegions(regions []DetectedRegion) []DetectedRegion {
	out := make([]DetectedRegion, len(regions))
	copy(out, regions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

func regionTokenStream(regions []DetectedRegion) []regionToken {
	var stream []regionToken
	for i, r := range regions {
		for _, t := range tokenize(r.RawText) {
			stream = append(stream, regionToken{region: i, norm: t.norm})
		}
	}
	return stream
}

// matchTokens runs a longest-common-subsequence alignment between the
// concatenated region token stream and the transcription tokens. A pair
// matches when the normalized edit distance of the normalized tokens is at
// most threshold. The result is monotonic in both coordinates.
func matchTokens(stream []regionToken, textTokens []token, threshold float64) []matchedPair {
	m, n := len(stream), len(textTokens)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	minSim := 1 - threshold

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			best := max(dp[i-1][j], dp[i][j-1])
			if tokenSimilarity(stream[i-1].norm, textTokens[j-1].norm) >= minSim {
				if d := dp[i-1][j-1] + 1; d > best {
					best = d
				}
			}
			dp[i][j] = best
		}
	}

	// Backtrack from the end. Skipping a region token whenever doing so
	// loses nothing pushes matches toward earlier regions, which keeps
	// re-runs stable when adjacent regions match a token run equally well.
	var pairs []matchedPair
	i, j := m, n
	for i > 0 && j > 0 {
		switch {
		case dp[i-1][j] == dp[i][j]:
			i--
		case dp[i][j-1] == dp[i][j]:
			j--
		default:
			pairs = append(pairs, matchedPair{
				regionToken: i - 1,
				textToken:   j - 1,
				similarity:  tokenSimilarity(stream[i-1].norm, textTokens[j-1].norm),
			})
			i--
			j--
		}
	}
	slices.Reverse(pairs)
	return pairs
}

// assignRegions folds the matched pairs into per-region assignments. Quality
// is the mean similarity over the region's raw tokens, so raw tokens that
// matched nothing drag the region's quality down.
func assignRegions(regionCount int, stream []regionToken, pairs []matchedPair) []regionAssignment {
	assignments := make([]regionAssignment, regionCount)
	for i := range assignments {
		assignments[i].firstText = -1
		assignments[i].lastText = -1
	}

	simSum := make([]float64, regionCount)
	for _, p := range pairs {
		r := stream[p.regionToken].region
		a := &assignments[r]
		if a.firstText == -1 || p.textToken < a.firstText {
			a.firstText = p.textToken
		}
		if p.textToken > a.lastText {
			a.lastText = p.textToken
		}
		a.matched++
		simSum[r] += p.similarity
	}

	rawCounts := make([]int, regionCount)
	for _, rt := range stream {
		rawCounts[rt.region]++
	}
	for r := range assignments {
		if rawCounts[r] > 0 {
			assignments[r].quality = simSum[r] / float64(rawCounts[r])
		}
	}
	return assignments
}
