package gemini

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

	"github.com/pagelift/pagelift/internal/utils"
	"github.com/pagelift/pagelift/pkg/transcribe"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Provider implements the Google Gemini vision transcriber
type Provider struct{}

// Response represents a Gemini generateContent response
type Response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// New creates a new Gemini transcriber
func New() *Provider {
	return &Provider{}
}

// Name returns the transcriber name
func (p *Provider) Name() string {
	return "gemini"
}

// ValidateConfig validates the Gemini configuration
func (p *Provider) ValidateConfig(config transcribe.Config) error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// Transcribe reads the page text from an image using the Gemini API
func (p *Provider) Transcribe(ctx context.Context, config transcribe.Config, imagePath, imageBase64 string) (string, transcribe.Usage, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", transcribe.Usage{}, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	prompt := config.Prompt
	if prompt == "" {
		prompt = transcribe.DefaultPrompt
	}

	requestBody := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{
						"text": prompt,
					},
					{
						"inline_data": map[string]any{
							"mime_type": mimeType,
							"data":      imageBase64,
						},
					},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": config.Temperature,
		},
	}

	model := config.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	baseURL := defaultBaseURL
	if config.BaseURL != "" {
		baseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", baseURL, model, apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return "", transcribe.Usage{}, utils.MaskSensitiveError(err)
	}

	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		// Transport errors quote the request URL, which carries the key
		return "", transcribe.Usage{}, utils.MaskSensitiveError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", transcribe.Usage{}, fmt.Errorf("gemini API error: %d - %s", resp.StatusCode, string(body))
	}

	var geminiResp Response
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to parse JSON response: %w - body: %s", err, transcribe.TruncateBody(body))
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", transcribe.Usage{}, fmt.Errorf("no response from Gemini - body: %s", transcribe.TruncateBody(body))
	}

	text := geminiResp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", transcribe.Usage{}, fmt.Errorf("no text in Gemini response")
	}

	usage := transcribe.Usage{
		InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
		OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
	}

	return transcribe.ProcessResponse(p, text), usage, nil
}
