package cmd

import (
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/pagelift/pagelift/pkg/transcribe"
)

type EvalConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	CSVPath     string  `json:"csv_path"`
	TestRows    []int   `json:"rows"`
	Timestamp   string  `json:"timestamp"`
}

type EvalResult struct {
	Identifier       string `json:"identifier"`
	ImagePath        string `json:"image_path"`
	TranscriptPath   string `json:"transcript_path"`
	Public           bool   `json:"public"`
	ProviderResponse string `json:"provider_response"`
	AccuracyMetrics  `json:",inline" yaml:",inline"`
}

type EvalSummary struct {
	Config  EvalConfig   `json:"config"`
	Results []EvalResult `json:"results"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate transcription quality against ground truth transcripts",
	Long: `Evaluate transcription provider output by comparing it with ground truth transcripts.

The CSV needs three columns: image path, transcript path, and a public flag.
You can either provide individual flags or rerun a previous evaluation config file.`,
	RunE: runEval,
}

var (
	evalProvider    string
	evalModel       string
	evalPrompt      string
	evalTemperature float64
	evalCSVPath     string
	evalConfigPath  string
	evalDir         string
	evalRows        []int
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVar(&evalProvider, "provider", "openai", "Provider to use: openai, claude, gemini, ollama")
	evalCmd.Flags().StringVarP(&evalModel, "model", "m", "gpt-4o", "Model to use")
	evalCmd.Flags().StringVarP(&evalPrompt, "prompt", "p", "", "Prompt to send to the provider")
	evalCmd.Flags().Float64VarP(&evalTemperature, "temperature", "t", 0.0, "Temperature for API")
	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data")
	evalCmd.Flags().StringVar(&evalConfigPath, "config", "", "Path to previous evaluation config file to rerun")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSliceVar(&evalRows, "rows", []int{}, "A list of row numbers to run the test on")

	evalCmd.MarkFlagsMutuallyExclusive("csv", "config")
}

func runEval(cmd *cobra.Command, args []string) error {
	var config EvalConfig
	var err error

	if evalConfigPath != "" {
		config, err = loadEvalConfig(evalConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Printf("Loaded configuration from %s\n", evalConfigPath)
	} else {
		config = EvalConfig{
			Provider:    evalProvider,
			Model:       evalModel,
			Prompt:      evalPrompt,
			Temperature: evalTemperature,
			CSVPath:     evalCSVPath,
			Timestamp:   time.Now().Format("2006-01-02_15-04-05"),
		}
	}
	config.TestRows = evalRows

	transcriber, err := newTranscriberRegistry().Get(config.Provider)
	if err != nil {
		return err
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	results, err := processEvaluation(cmd, transcriber, config)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  config,
		Results: results,
	}

	outputPath := filepath.Join(evalsDir, fmt.Sprintf("eval_%s.yaml", config.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(results)

	return nil
}

func loadEvalConfig(configPath string) (EvalConfig, error) {
	var summary EvalSummary

	data, err := os.ReadFile(configPath)
	if err != nil {
		return EvalConfig{}, err
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return EvalConfig{}, err
	}

	// Update timestamp for rerun
	summary.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")

	return summary.Config, nil
}

func processEvaluation(cmd *cobra.Command, transcriber transcribe.Transcriber, config EvalConfig) ([]EvalResult, error) {
	file, err := os.Open(config.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip header row if present
	dataRows := records
	if strings.EqualFold(records[0][0], "image") {
		dataRows = records[1:]
	}

	if len(config.TestRows) == 0 {
		for i := 0; i < len(dataRows); i++ {
			config.TestRows = append(config.TestRows, i)
		}
	}

	var results []EvalResult
	for i, row := range dataRows {
		if !slices.Contains(config.TestRows, i) {
			slog.Warn("Skipping row", "row", i+1)
			continue
		}
		if len(row) < 3 {
			slog.Warn("Insufficient columns", "row", i+1)
			continue
		}

		result, err := processRow(cmd, transcriber, row, config)
		if err != nil {
			slog.Error("Error processing row", "row", i+1, "err", err)
			continue
		}

		results = append(results, result)

		printRowResult(result)
	}

	return results, nil
}

func processRow(cmd *cobra.Command, transcriber transcribe.Transcriber, row []string, config EvalConfig) (EvalResult, error) {
	imagePath := filepath.Join(evalDir, strings.TrimSpace(row[0]))
	transcriptPath := filepath.Join(evalDir, strings.TrimSpace(row[1]))
	publicStr := strings.TrimSpace(row[2])

	public, err := strconv.ParseBool(publicStr)
	if err != nil && publicStr != "0" && publicStr != "1" {
		return EvalResult{}, fmt.Errorf("invalid public value: %s", publicStr)
	}
	if publicStr == "1" {
		public = true
	}

	groundTruth, err := readTextFile(transcriptPath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read transcript: %w", err)
	}

	imageBase64, err := getImageAsBase64(imagePath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to process image: %w", err)
	}

	transcribeConfig := transcribe.Config{
		Provider:    config.Provider,
		Model:       config.Model,
		Prompt:      config.Prompt,
		Temperature: config.Temperature,
		Timeout:     120 * time.Second,
	}
	response, _, err := transcriber.Transcribe(cmd.Context(), transcribeConfig, imagePath, imageBase64)
	if err != nil {
		return EvalResult{}, fmt.Errorf("provider API call failed: %w", err)
	}

	return EvalResult{
		Identifier:       filepath.Base(imagePath),
		ImagePath:        imagePath,
		TranscriptPath:   transcriptPath,
		Public:           public,
		ProviderResponse: response,
		AccuracyMetrics:  CalculateAccuracyMetrics(groundTruth, response),
	}, nil
}

func readTextFile(path string) (string, error) {
	// Transcripts may live behind a URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func getImageAsBase64(imagePath string) (string, error) {
	var imageData []byte

	if strings.HasPrefix(imagePath, "http://") || strings.HasPrefix(imagePath, "https://") {
		resp, err := http.Get(imagePath)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		imageData, err = io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
	} else {
		var err error
		imageData, err = os.ReadFile(imagePath)
		if err != nil {
			return "", err
		}
	}

	return base64.StdEncoding.EncodeToString(imageData), nil
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(result EvalResult) {
	fmt.Printf("\n=== Results for %s ===\n", result.Identifier)
	fmt.Printf("Image: %s\n", result.ImagePath)
	fmt.Printf("Transcript: %s\n", result.TranscriptPath)
	fmt.Printf("Character Similarity: %.3f\n", result.CharacterSimilarity)
	fmt.Printf("Word Similarity: %.3f\n", result.WordSimilarity)
	fmt.Printf("Word Accuracy: %.3f\n", result.WordAccuracy)
	fmt.Printf("Word Error Rate: %.3f\n", result.WordErrorRate)
	fmt.Printf("Total Words (Original): %d\n", result.TotalWordsOriginal)
	fmt.Printf("Total Words (Transcribed): %d\n", result.TotalWordsTranscribed)
	fmt.Printf("Correct Words: %d\n", result.CorrectWords)
	fmt.Printf("Substitutions: %d\n", result.Substitutions)
	fmt.Printf("Deletions: %d\n", result.Deletions)
	fmt.Printf("Insertions: %d\n", result.Insertions)
}

func printSummaryStats(results []EvalResult) {
	if len(results) == 0 {
		return
	}

	var totalCharSim, totalWordSim, totalWordAcc, totalWER float64

	for _, result := range results {
		totalCharSim += result.CharacterSimilarity
		totalWordSim += result.WordSimilarity
		totalWordAcc += result.WordAccuracy
		totalWER += result.WordErrorRate
	}

	count := float64(len(results))

	fmt.Printf("\n=== SUMMARY STATISTICS ===\n")
	fmt.Printf("Total Evaluations: %d\n", len(results))
	fmt.Printf("Average Character Similarity: %.3f\n", totalCharSim/count)
	fmt.Printf("Average Word Similarity: %.3f\n", totalWordSim/count)
	fmt.Printf("Average Word Accuracy: %.3f\n", totalWordAcc/count)
	fmt.Printf("Average Word Error Rate: %.3f\n", totalWER/count)
}
