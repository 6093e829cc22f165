package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/pagelift/pagelift/pkg/align"
	"github.com/pagelift/pagelift/pkg/extract"
	"github.com/pagelift/pagelift/pkg/transcribe"
)

type fakeExtractor struct {
	pages map[string]align.Page
	fails map[string]int
	mu    sync.Mutex
}

func (f *fakeExtractor) Extract(ctx context.Context, config extract.Config, imagePath string) (align.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[imagePath] > 0 {
		f.fails[imagePath]--
		return align.Page{}, fmt.Errorf("transient extractor failure")
	}
	page, ok := f.pages[imagePath]
	if !ok {
		return align.Page{}, fmt.Errorf("no page for %s", imagePath)
	}
	return page, nil
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) ValidateConfig(config extract.Config) error { return nil }

type fakeTranscriber struct {
	texts map[string]string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, config transcribe.Config, imagePath, imageBase64 string) (string, transcribe.Usage, error) {
	text, ok := f.texts[imagePath]
	if !ok {
		return "", transcribe.Usage{}, fmt.Errorf("no transcription for %s", imagePath)
	}
	return text, transcribe.Usage{InputTokens: 10, OutputTokens: 5}, nil
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) ValidateConfig(config transcribe.Config) error { return nil }

func writeImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("page_%04d.png", i+1))
		if err := os.WriteFile(paths[i], []byte("image bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func simplePage(lines ...string) align.Page {
	page := align.Page{Width: 1000, Height: 1400}
	for i, line := range lines {
		page.Regions = append(page.Regions, align.DetectedRegion{
			Box:     align.Rect{X0: 50, Y0: float64(50 + i*60), X1: 900, Y1: float64(100 + i*60)},
			RawText: line,
			Order:   i,
		})
	}
	return page
}

func TestRunImages(t *testing.T) {
	paths := writeImages(t, 3)

	extractor := &fakeExtractor{
		pages: map[string]align.Page{
			paths[0]: simplePage("first page text"),
			paths[1]: simplePage("zzqx vvkw"), // garbage geometry text forces fallback
			paths[2]: simplePage("third page text"),
		},
		// One transient failure exercises the retry path.
		fails: map[string]int{paths[0]: 1},
	}
	transcriber := &fakeTranscriber{
		texts: map[string]string{
			paths[0]: "first page text",
			paths[1]: "completely different content",
			paths[2]: "third page text",
		},
	}

	var mu sync.Mutex
	var events []Progress

	p, err := New(Config{
		Extractor:   extractor,
		Transcriber: transcriber,
		Workers:     2,
		OnProgress: func(e Progress) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	result, err := p.RunImages(context.Background(), paths)
	if err != nil {
		t.Fatalf("RunImages() error: %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a run ID")
	}
	if len(result.Pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(result.Pages))
	}
	for i, page := range result.Pages {
		if page.PageIndex != i {
			t.Errorf("page %d has index %d; results must keep input order", i, page.PageIndex)
		}
		if page.Plan == nil {
			t.Fatalf("page %d has no plan", i)
		}
	}

	if result.Pages[0].Plan.UsedFallback {
		t.Error("page 0 matched exactly and should not fall back")
	}
	if !result.Pages[1].Plan.UsedFallback {
		t.Error("page 1 had unmatchable text and should fall back")
	}
	if result.FallbackPages != 1 {
		t.Errorf("FallbackPages = %d, want 1", result.FallbackPages)
	}
	if result.MeanScore <= 0 || result.MeanScore > 1 {
		t.Errorf("MeanScore = %v, want in (0, 1]", result.MeanScore)
	}
	if result.Pages[0].Usage.InputTokens != 10 {
		t.Errorf("usage not propagated: %+v", result.Pages[0].Usage)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	indexes := make([]int, len(events))
	for i, e := range events {
		indexes[i] = e.PageIndex
	}
	sort.Ints(indexes)
	for i, idx := range indexes {
		if idx != i {
			t.Errorf("progress events cover pages %v, want one per page", indexes)
			break
		}
	}
}

func TestRunImagesPageFailure(t *testing.T) {
	paths := writeImages(t, 2)

	extractor := &fakeExtractor{
		pages: map[string]align.Page{paths[0]: simplePage("ok")},
		// More failures than retry attempts
		fails: map[string]int{paths[1]: 10},
	}
	transcriber := &fakeTranscriber{texts: map[string]string{
		paths[0]: "ok",
		paths[1]: "never reached",
	}}

	p, err := New(Config{
		Extractor:     extractor,
		Transcriber:   transcriber,
		RetryAttempts: 2,
		Workers:       1,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = p.RunImages(context.Background(), paths)
	if err == nil {
		t.Fatal("expected error when a page exhausts retries")
	}
	if !strings.Contains(err.Error(), "page 1") {
		t.Errorf("error should name the failing page, got: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Transcriber: &fakeTranscriber{}}); err == nil {
		t.Error("expected error without extractor")
	}
	if _, err := New(Config{Extractor: &fakeExtractor{}}); err == nil {
		t.Error("expected error without transcriber")
	}
	if _, err := New(Config{
		Extractor:    &fakeExtractor{},
		Transcriber:  &fakeTranscriber{},
		AlignOptions: align.Options{MatchTokenThreshold: 2, LowScore: 0.3, HighScore: 0.7},
	}); err == nil {
		t.Error("expected error for invalid align options")
	}
}
