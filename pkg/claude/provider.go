package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pagelift/pagelift/pkg/transcribe"
)

const defaultURL = "https://api.anthropic.com/v1/messages"

// Provider implements the Anthropic Claude vision transcriber
type Provider struct{}

// Response represents an Anthropic API response
type Response struct {
	Content []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// New creates a new Claude transcriber
func New() *Provider {
	return &Provider{}
}

// Name returns the transcriber name
func (p *Provider) Name() string {
	return "claude"
}

// ValidateConfig validates the Claude configuration
func (p *Provider) ValidateConfig(config transcribe.Config) error {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	return nil
}

// Transcribe reads the page text from an image using Claude's vision API
func (p *Provider) Transcribe(ctx context.Context, config transcribe.Config, imagePath, imageBase64 string) (string, transcribe.Usage, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return "", transcribe.Usage{}, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	// Claude uses "media_type" instead of "mime_type"
	mediaType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	prompt := config.Prompt
	if prompt == "" {
		prompt = transcribe.DefaultPrompt
	}

	requestBody := map[string]any{
		"model":      config.Model,
		"max_tokens": 4096,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": mediaType,
							"data":       imageBase64,
						},
					},
					{
						"type": "text",
						"text": prompt,
					},
				},
			},
		},
	}

	if config.Temperature > 0 {
		requestBody["temperature"] = config.Temperature
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := defaultURL
	if config.BaseURL != "" {
		url = strings.TrimSuffix(config.BaseURL, "/") + "/v1/messages"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", transcribe.Usage{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: 120 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", transcribe.Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", transcribe.Usage{}, fmt.Errorf("claude API error: %d - %s", resp.StatusCode, string(body))
	}

	var claudeResp Response
	if err := json.NewDecoder(resp.Body).Decode(&claudeResp); err != nil {
		return "", transcribe.Usage{}, err
	}

	if len(claudeResp.Content) == 0 {
		return "", transcribe.Usage{}, fmt.Errorf("no response from Claude")
	}

	// Extract text from the first text content block
	var extractedText string
	for _, content := range claudeResp.Content {
		if content.Type == "text" {
			extractedText = content.Text
			break
		}
	}

	if extractedText == "" {
		return "", transcribe.Usage{}, fmt.Errorf("no text content in Claude response")
	}

	usage := transcribe.Usage{
		InputTokens:  claudeResp.Usage.InputTokens,
		OutputTokens: claudeResp.Usage.OutputTokens,
	}

	return transcribe.ProcessResponse(p, extractedText), usage, nil
}
