package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/pagelift/pagelift/pkg/transcribe"
)

// Provider implements the Ollama local transcriber
type Provider struct{}

// Response represents an Ollama generate API response
type Response struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// New creates a new Ollama transcriber
func New() *Provider {
	return &Provider{}
}

// Name returns the transcriber name
func (p *Provider) Name() string {
	return "ollama"
}

// ValidateConfig validates the Ollama configuration
func (p *Provider) ValidateConfig(config transcribe.Config) error {
	// Nothing to check up front; the URL defaults to localhost.
	return nil
}

// Transcribe reads the page text from an image using a local Ollama instance
func (p *Provider) Transcribe(ctx context.Context, config transcribe.Config, imagePath, imageBase64 string) (string, transcribe.Usage, error) {
	ollamaURL := config.BaseURL
	if ollamaURL == "" {
		ollamaURL = os.Getenv("OLLAMA_URL")
	}
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}

	model := config.Model
	if model == "" {
		model = "llava"
	}

	prompt := config.Prompt
	if prompt == "" {
		prompt = transcribe.DefaultPrompt
	}

	requestBody := map[string]any{
		"model":  model,
		"prompt": prompt,
		"images": []string{imageBase64},
		"stream": false,
		"options": map[string]any{
			"temperature": config.Temperature,
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", strings.TrimSuffix(ollamaURL, "/"))
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", transcribe.Usage{}, err
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 300 * time.Second} // Longer timeout for local inference
	resp, err := client.Do(req)
	if err != nil {
		return "", transcribe.Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", transcribe.Usage{}, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var ollamaResp Response
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", transcribe.Usage{}, err
	}

	if ollamaResp.Response == "" {
		return "", transcribe.Usage{}, fmt.Errorf("no response from Ollama")
	}

	usage := transcribe.Usage{
		InputTokens:  ollamaResp.PromptEvalCount,
		OutputTokens: ollamaResp.EvalCount,
	}

	return transcribe.ProcessResponse(p, ollamaResp.Response), usage, nil
}

// CleanResponse cleans up Ollama API responses
func (p *Provider) CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	// Local models are chattier than hosted ones
	prefixPatterns := []string{
		`(?i)^(the\s+)?text\s+in\s+(the\s+)?image\s+(is|says|reads):?\s*`,
		`(?i)^(the\s+)?image\s+contains\s+(the\s+following\s+)?text:?\s*`,
		`(?i)^here'?s?\s+(the\s+)?text\s+from\s+(the\s+)?image:?\s*`,
		`(?i)^(i\s+can\s+see\s+)?text\s+(that\s+says|reading):?\s*`,
	}

	for _, pattern := range prefixPatterns {
		re := regexp.MustCompile(pattern)
		response = re.ReplaceAllString(response, "")
		response = strings.TrimSpace(response)
	}

	response = strings.Trim(response, `"'`)

	if strings.HasPrefix(response, "```") && strings.HasSuffix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	return response
}
