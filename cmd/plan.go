package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagelift/pagelift/pkg/align"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Align a transcription to detected regions without calling any backend",
	Long: `Run the alignment engine on pre-computed inputs.

Takes a regions JSON file (page dimensions plus detected regions, as produced
by any geometry extractor) and a plain text transcription, and prints the
resulting text layer plan as JSON. Useful for tuning thresholds against saved
pages without paying for extractor or model calls.`,
	RunE: runPlan,
}

var (
	planRegionsPath    string
	planTranscriptPath string
	planPageIndex      int
	planConfigPath     string
	planOutputPath     string
)

func init() {
	RootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planRegionsPath, "regions", "", "Path to regions JSON file (required)")
	planCmd.Flags().StringVar(&planTranscriptPath, "transcript", "", "Path to transcription text file (required)")
	planCmd.Flags().IntVar(&planPageIndex, "page-index", 0, "Zero-based page index recorded in the plan")
	planCmd.Flags().StringVar(&planConfigPath, "config", "", "Path to YAML config with alignment thresholds")
	planCmd.Flags().StringVarP(&planOutputPath, "output", "o", "", "Output path for the plan JSON (stdout if not specified)")

	if err := planCmd.MarkFlagRequired("regions"); err != nil {
		panic(err)
	}
	if err := planCmd.MarkFlagRequired("transcript"); err != nil {
		panic(err)
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(planRegionsPath)
	if err != nil {
		return fmt.Errorf("failed to read regions: %w", err)
	}
	var page align.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return fmt.Errorf("failed to parse regions: %w", err)
	}

	text, err := os.ReadFile(planTranscriptPath)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	opts := align.DefaultOptions()
	if planConfigPath != "" {
		cfg, err := loadFileConfig(planConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts = cfg.Alignment
	}

	engine, err := align.NewEngine(opts)
	if err != nil {
		return err
	}

	plan, err := engine.Align(page, align.PageTranscription{
		Text:      string(text),
		PageIndex: planPageIndex,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}

	if planOutputPath != "" {
		return os.WriteFile(planOutputPath, append(out, '\n'), 0644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
