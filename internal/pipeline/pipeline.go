// Package pipeline orchestrates the page processing flow: render, detect
// geometry, transcribe, align, and report progress.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/pagelift/pagelift/pkg/align"
	"github.com/pagelift/pagelift/pkg/extract"
	"github.com/pagelift/pagelift/pkg/pdf"
	"github.com/pagelift/pagelift/pkg/transcribe"
)

// Progress is emitted after each page finishes aligning.
type Progress struct {
	PageIndex    int
	Score        float64
	UsedFallback bool
}

// ProgressFunc receives per-page progress events. Calls may arrive from
// multiple goroutines.
type ProgressFunc func(Progress)

// Config holds everything a run needs.
type Config struct {
	Extractor        extract.Extractor
	Transcriber      transcribe.Transcriber
	ExtractConfig    extract.Config
	TranscribeConfig transcribe.Config
	AlignOptions     align.Options

	// Workers caps concurrent page processing. Zero means NumCPU.
	Workers int
	// RetryAttempts covers each extractor and transcriber call. Zero means 3.
	RetryAttempts uint
	// DPI is the PDF render resolution. Zero means the pdf package default.
	DPI int

	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// PageResult holds one page's inputs and its finished plan.
type PageResult struct {
	PageIndex     int
	ImagePath     string
	Page          align.Page
	Transcription align.PageTranscription
	Plan          *align.TextLayerPlan
	Usage         transcribe.Usage
}

// Result summarizes a finished run.
type Result struct {
	RunID         string
	Pages         []PageResult
	MeanScore     float64
	FallbackPages int
}

// Pipeline runs pages through extraction, transcription, and alignment.
type Pipeline struct {
	cfg    Config
	engine *align.Engine
	log    *slog.Logger
}

// New validates the configuration and builds a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is required")
	}

	opts := cfg.AlignOptions
	if opts == (align.Options{}) {
		opts = align.DefaultOptions()
	}
	engine, err := align.NewEngine(opts)
	if err != nil {
		return nil, err
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{cfg: cfg, engine: engine, log: log}, nil
}

// Run renders every page of the PDF into workDir and processes them.
func (p *Pipeline) Run(ctx context.Context, pdfPath, workDir string) (*Result, error) {
	pageCount, err := pdf.PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	p.log.Info("starting run", "pdf", pdfPath, "pages", pageCount)

	imagePaths := make([]string, pageCount)
	for page := 1; page <= pageCount; page++ {
		imagePath, err := pdf.RenderPage(pdfPath, workDir, page, p.cfg.DPI)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", page, err)
		}
		imagePaths[page-1] = imagePath
	}

	return p.RunImages(ctx, imagePaths)
}

// RunImages processes pre-rendered page images. Pages run concurrently up to
// the worker cap; results keep input order.
func (p *Pipeline) RunImages(ctx context.Context, imagePaths []string) (*Result, error) {
	runID := uuid.New().String()
	p.log.Info("processing pages", "run_id", runID, "pages", len(imagePaths), "workers", p.cfg.Workers)

	type outcome struct {
		index int
		page  PageResult
		err   error
	}

	results := make(chan outcome, len(imagePaths))
	sem := make(chan struct{}, p.cfg.Workers)

	for i, imagePath := range imagePaths {
		sem <- struct{}{} // acquire
		go func(index int, path string) {
			defer func() { <-sem }() // release

			page, err := p.processPage(ctx, index, path)
			results <- outcome{index: index, page: page, err: err}
		}(i, imagePath)
	}

	pages := make([]PageResult, len(imagePaths))
	var errs []error
	for range imagePaths {
		r := <-results
		if r.err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", r.index, r.err))
			continue
		}
		pages[r.index] = r.page
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	result := &Result{RunID: runID, Pages: pages}
	var total float64
	for _, page := range pages {
		total += page.Plan.PageAlignmentScore
		if page.Plan.UsedFallback {
			result.FallbackPages++
		}
	}
	if len(pages) > 0 {
		result.MeanScore = total / float64(len(pages))
	}

	p.log.Info("run complete", "run_id", runID,
		"mean_score", result.MeanScore, "fallback_pages", result.FallbackPages)
	return result, nil
}

func (p *Pipeline) processPage(ctx context.Context, index int, imagePath string) (PageResult, error) {
	var page align.Page
	err := retry.Do(
		func() error {
			var err error
			page, err = p.cfg.Extractor.Extract(ctx, p.cfg.ExtractConfig, imagePath)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.RetryAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return PageResult{}, fmt.Errorf("extract: %w", err)
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return PageResult{}, err
	}
	imageBase64 := base64.StdEncoding.EncodeToString(imageData)

	var text string
	var usage transcribe.Usage
	err = retry.Do(
		func() error {
			var err error
			text, usage, err = p.cfg.Transcriber.Transcribe(ctx, p.cfg.TranscribeConfig, imagePath, imageBase64)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.cfg.RetryAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return PageResult{}, fmt.Errorf("transcribe: %w", err)
	}

	tr := align.PageTranscription{Text: text, PageIndex: index}
	plan, err := p.engine.Align(page, tr)
	if err != nil {
		return PageResult{}, fmt.Errorf("align: %w", err)
	}

	p.log.Debug("page aligned", "page", index,
		"regions", len(page.Regions), "score", plan.PageAlignmentScore, "fallback", plan.UsedFallback)

	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(Progress{
			PageIndex:    index,
			Score:        plan.PageAlignmentScore,
			UsedFallback: plan.UsedFallback,
		})
	}

	return PageResult{
		PageIndex:     index,
		ImagePath:     imagePath,
		Page:          page,
		Transcription: tr,
		Plan:          plan,
		Usage:         usage,
	}, nil
}
