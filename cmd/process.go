package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/pagelift/pagelift/internal/pipeline"
	"github.com/pagelift/pagelift/pkg/align"
	"github.com/pagelift/pagelift/pkg/extract"
	"github.com/pagelift/pagelift/pkg/hocr"
	"github.com/pagelift/pagelift/pkg/transcribe"
)

var processCmd = &cobra.Command{
	Use:   "process <input.pdf | page.png ...>",
	Short: "Build a searchable text layer for a scanned document",
	Long: `Process a scanned or handwritten document into an hOCR text layer.

Each page goes through three stages: a geometry extractor finds text line
bounding boxes, a vision model produces a high quality transcription, and the
two get aligned so every transcribed word lands on the page region it came
from. Pages where alignment fails keep their full transcription as a
whole-page entry, so the document stays searchable either way.

The input is a PDF (pages are rendered with pdftoppm) or one or more page
images.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

var (
	processExtractor   string
	processProvider    string
	processModel       string
	processPrompt      string
	processTemperature float64
	processLanguages   []string
	processDPI         int
	processWorkers     int
	processRetries     uint
	processConfigPath  string
	processOutputPath  string
	processSummaryPath string
	processWorkDir     string
)

// fileConfig is the optional YAML configuration for a run. Flags win over
// file values for everything except alignment thresholds, which only live
// here.
type fileConfig struct {
	Alignment align.Options `yaml:"alignment"`
}

// pageSummary is one page's row in the run summary
type pageSummary struct {
	PageIndex    int     `yaml:"page_index"`
	Score        float64 `yaml:"score"`
	UsedFallback bool    `yaml:"used_fallback"`
	Entries      int     `yaml:"entries"`
	Regions      int     `yaml:"regions"`
}

type runSummary struct {
	RunID         string        `yaml:"run_id"`
	Extractor     string        `yaml:"extractor"`
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model,omitempty"`
	MeanScore     float64       `yaml:"mean_score"`
	FallbackPages int           `yaml:"fallback_pages"`
	InputTokens   int           `yaml:"input_tokens"`
	OutputTokens  int           `yaml:"output_tokens"`
	Pages         []pageSummary `yaml:"pages"`
}

func init() {
	RootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processExtractor, "extractor", "tesseract", "Geometry extractor: tesseract, vision, azure")
	processCmd.Flags().StringVar(&processProvider, "provider", "openai", "Transcription provider: openai, claude, gemini, ollama")
	processCmd.Flags().StringVarP(&processModel, "model", "m", "gpt-4o", "Model to use")
	processCmd.Flags().StringVarP(&processPrompt, "prompt", "p", "", "Prompt to send to the provider (defaults to a verbatim transcription prompt)")
	processCmd.Flags().Float64VarP(&processTemperature, "temperature", "t", 0.0, "Temperature for the provider")
	processCmd.Flags().StringSliceVar(&processLanguages, "languages", nil, "Language hints for the extractor, e.g. eng,deu")
	processCmd.Flags().IntVar(&processDPI, "dpi", 0, "Render resolution for PDF pages (default 300)")
	processCmd.Flags().IntVar(&processWorkers, "workers", 0, "Concurrent pages (default NumCPU)")
	processCmd.Flags().UintVar(&processRetries, "retries", 0, "Retry attempts per extractor/provider call (default 3)")
	processCmd.Flags().StringVar(&processConfigPath, "config", "", "Path to YAML config with alignment thresholds")
	processCmd.Flags().StringVarP(&processOutputPath, "output", "o", "", "Output path for the hOCR document (stdout if not specified)")
	processCmd.Flags().StringVar(&processSummaryPath, "summary", "", "Output path for the YAML run summary (skipped if not specified)")
	processCmd.Flags().StringVar(&processWorkDir, "workdir", "", "Directory for rendered page images (temp dir if not specified)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	registry := newExtractorRegistry()
	extractor, err := registry.Get(processExtractor)
	if err != nil {
		return err
	}

	transcribers := newTranscriberRegistry()
	transcriber, err := transcribers.Get(processProvider)
	if err != nil {
		return err
	}

	extractConfig := extract.Config{Languages: processLanguages, DPI: processDPI}
	if err := extractor.ValidateConfig(extractConfig); err != nil {
		return fmt.Errorf("extractor config: %w", err)
	}

	transcribeConfig := transcribe.Config{
		Provider:    processProvider,
		Model:       processModel,
		Prompt:      processPrompt,
		Temperature: processTemperature,
		Timeout:     120 * time.Second,
	}
	if err := transcriber.ValidateConfig(transcribeConfig); err != nil {
		return fmt.Errorf("provider config: %w", err)
	}

	alignOpts := align.DefaultOptions()
	if processConfigPath != "" {
		loaded, err := loadFileConfig(processConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		alignOpts = loaded.Alignment
	}

	p, err := pipeline.New(pipeline.Config{
		Extractor:        extractor,
		Transcriber:      transcriber,
		ExtractConfig:    extractConfig,
		TranscribeConfig: transcribeConfig,
		AlignOptions:     alignOpts,
		Workers:          processWorkers,
		RetryAttempts:    processRetries,
		DPI:              processDPI,
	})
	if err != nil {
		return err
	}

	result, err := runInput(cmd, p, args)
	if err != nil {
		return err
	}

	doc := renderDocument(result)
	if processOutputPath != "" {
		if err := os.WriteFile(processOutputPath, []byte(doc), 0644); err != nil {
			return fmt.Errorf("failed to write hOCR: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, mean score %.3f)\n",
			processOutputPath, len(result.Pages), result.MeanScore)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), doc)
	}

	if processSummaryPath != "" {
		if err := writeSummary(result, processSummaryPath); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	return nil
}

func runInput(cmd *cobra.Command, p *pipeline.Pipeline, args []string) (*pipeline.Result, error) {
	ctx := cmd.Context()

	if len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), ".pdf") {
		workDir := processWorkDir
		if workDir == "" {
			tmp, err := os.MkdirTemp("", "pagelift-pages-*")
			if err != nil {
				return nil, err
			}
			defer os.RemoveAll(tmp)
			workDir = tmp
		}
		return p.Run(ctx, args[0], workDir)
	}

	for _, arg := range args {
		if strings.EqualFold(filepath.Ext(arg), ".pdf") {
			return nil, fmt.Errorf("mix of PDF and image inputs is not supported")
		}
	}
	return p.RunImages(ctx, args)
}

func renderDocument(result *pipeline.Result) string {
	pages := make([]string, len(result.Pages))
	for i, page := range result.Pages {
		pages[i] = hocr.FromPlan(page.Plan, page.PageIndex, page.Page.Width, page.Page.Height)
	}
	return hocr.WrapInDocument(pages...)
}

func writeSummary(result *pipeline.Result, path string) error {
	summary := runSummary{
		RunID:         result.RunID,
		Extractor:     processExtractor,
		Provider:      processProvider,
		Model:         processModel,
		MeanScore:     result.MeanScore,
		FallbackPages: result.FallbackPages,
	}
	for _, page := range result.Pages {
		summary.InputTokens += page.Usage.InputTokens
		summary.OutputTokens += page.Usage.OutputTokens
		summary.Pages = append(summary.Pages, pageSummary{
			PageIndex:    page.PageIndex,
			Score:        page.Plan.PageAlignmentScore,
			UsedFallback: page.Plan.UsedFallback,
			Entries:      len(page.Plan.Entries),
			Regions:      len(page.Page.Regions),
		})
	}

	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func loadFileConfig(path string) (fileConfig, error) {
	cfg := fileConfig{Alignment: align.DefaultOptions()}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}
