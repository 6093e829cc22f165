package transcribe

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// DefaultPrompt asks the model for a verbatim transcription with no
// commentary, so responses can flow into alignment without post-editing.
const DefaultPrompt = "Transcribe every word in this image exactly as written, " +
	"preserving line breaks. Output only the transcription, with no commentary, " +
	"no markdown, and no description of the image."

// Config represents the configuration for a transcriber
type Config struct {
	Provider    string
	Model       string
	Prompt      string
	Temperature float64
	Timeout     time.Duration
	// BaseURL overrides the provider's API endpoint. Leave empty for the
	// provider default; tests point it at a local server.
	BaseURL string
}

// Usage represents token usage information from a provider
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Transcriber is implemented by all vision-model backends that can turn a
// page image into text.
type Transcriber interface {
	// Transcribe returns the page text read from the image, plus token usage
	// when the backend reports it.
	Transcribe(ctx context.Context, config Config, imagePath, imageBase64 string) (string, Usage, error)
	// Name returns the transcriber's name
	Name() string
	// ValidateConfig validates the transcriber-specific configuration
	ValidateConfig(config Config) error
}

// ResponseCleaner is an optional interface for transcribers with custom
// response cleaning logic
type ResponseCleaner interface {
	CleanResponse(response string) string
}

// CleanResponse strips the conversational wrapping vision models add around
// transcriptions. Works for most providers.
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	// Remove common prefixes from model responses (case insensitive)
	prefixPatterns := []string{
		`(?i)^(the\s+)?text\s+in\s+(the\s+)?image\s+(is|says|reads):?\s*`,
		`(?i)^(the\s+)?image\s+contains\s+(the\s+following\s+)?text:?\s*`,
		`(?i)^here'?s?\s+(the\s+)?text\s+(extracted\s+)?from\s+(the\s+)?image:?\s*`,
		`(?i)^here'?s?\s+(the\s+)?transcription(\s+of\s+the\s+image)?:?\s*`,
		`(?i)^(i\s+can\s+see\s+)?text\s+(that\s+says|reading):?\s*`,
		`(?i)^certainly!\s+here'?s?\s+(the\s+)?text\s+(extracted\s+)?from\s+(the\s+)?image:?\s*`,
	}

	for _, pattern := range prefixPatterns {
		re := regexp.MustCompile(pattern)
		response = re.ReplaceAllString(response, "")
		response = strings.TrimSpace(response)
	}

	// Remove surrounding quotes
	response = strings.Trim(response, `"'`)

	// Remove markdown code blocks if present
	if strings.HasPrefix(response, "```") && strings.HasSuffix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	return response
}

// ProcessResponse cleans a response using the transcriber's custom cleaner if
// available, otherwise uses the general CleanResponse function
func ProcessResponse(tr Transcriber, response string) string {
	if cleaner, ok := tr.(ResponseCleaner); ok {
		return cleaner.CleanResponse(response)
	}
	return CleanResponse(response)
}

// TruncateBody truncates a response body to a maximum length for error
// messages. Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}
