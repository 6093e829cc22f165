package openai

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
	"text/template"

	"github.com/pagelift/pagelift/pkg/transcribe"
)

const defaultURL = "https://api.openai.com/v1/chat/completions"

// Provider implements the OpenAI vision transcriber
type Provider struct{}

// Response represents an OpenAI API response
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// TemplateData represents data for API request template
type TemplateData struct {
	Model       string
	Prompt      string
	Temperature float64
	ImageBase64 string
	MimeType    string
}

// New creates a new OpenAI transcriber
func New() *Provider {
	return &Provider{}
}

// Name returns the transcriber name
func (p *Provider) Name() string {
	return "openai"
}

// ValidateConfig validates the OpenAI configuration
func (p *Provider) ValidateConfig(config transcribe.Config) error {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return nil
}

// Transcribe reads the page text from an image using OpenAI's vision API
func (p *Provider) Transcribe(ctx context.Context, config transcribe.Config, imagePath, imageBase64 string) (string, transcribe.Usage, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", transcribe.Usage{}, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	prompt := config.Prompt
	if prompt == "" {
		prompt = transcribe.DefaultPrompt
	}

	templateData := TemplateData{
		Model:       jsonEscape(config.Model),
		Prompt:      jsonEscape(prompt),
		Temperature: config.Temperature,
		ImageBase64: imageBase64,
		MimeType:    mimeType,
	}

	tmpl, err := template.New("openai").Parse(requestTemplate)
	if err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to parse template: %w", err)
	}

	var requestBuffer bytes.Buffer
	if err := tmpl.Execute(&requestBuffer, templateData); err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to execute template: %w", err)
	}

	// Validate JSON before sending
	var jsonTest any
	if err := json.Unmarshal(requestBuffer.Bytes(), &jsonTest); err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("generated invalid JSON: %w", err)
	}

	url := defaultURL
	if config.BaseURL != "" {
		url = strings.TrimSuffix(config.BaseURL, "/") + "/v1/chat/completions"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, &requestBuffer)
	if err != nil {
		return "", transcribe.Usage{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: config.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", transcribe.Usage{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", transcribe.Usage{}, fmt.Errorf("openAI API error: %d - %s", resp.StatusCode, string(body))
	}

	var openaiResp Response
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return "", transcribe.Usage{}, fmt.Errorf("failed to parse JSON response: %w - body: %s", err, transcribe.TruncateBody(body))
	}

	if len(openaiResp.Choices) == 0 {
		return "", transcribe.Usage{}, fmt.Errorf("no response from OpenAI - body: %s", transcribe.TruncateBody(body))
	}

	usage := transcribe.Usage{
		InputTokens:  openaiResp.Usage.PromptTokens,
		OutputTokens: openaiResp.Usage.CompletionTokens,
	}

	return transcribe.ProcessResponse(p, openaiResp.Choices[0].Message.Content), usage, nil
}

// jsonEscape properly escapes a string for use in JSON
func jsonEscape(s string) string {
	escaped, _ := json.Marshal(s)
	// Remove the surrounding quotes that json.Marshal adds
	return string(escaped[1 : len(escaped)-1])
}

const requestTemplate = `{
  "model": "{{.Model}}",
  "temperature": {{.Temperature}},
  "messages": [
    {
      "role": "user",
      "content": [
        {
          "type": "text",
          "text": "{{.Prompt}}"
        },
        {
          "type": "image_url",
          "image_url": {
            "url": "data:{{.MimeType}};base64,{{.ImageBase64}}"
          }
        }
      ]
    }
  ]
}`
