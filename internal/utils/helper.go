package utils

import (
	"regexp"
)

// maskPatterns covers the credential shapes of every backend this tool talks
// to: key-in-query (Gemini), Bearer tokens (OpenAI), subscription keys
// (Azure Read), and x-api-key headers (Anthropic).
var maskPatterns = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`), `${1}${2}=***MASKED***`},
	{regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`), `Bearer ***MASKED***`},
	{regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`), `Ocp-Apim-Subscription-Key: ***MASKED***`},
	{regexp.MustCompile(`x-api-key:\s*([^\s]+)`), `x-api-key: ***MASKED***`},
}

// MaskSensitiveData masks API keys and tokens in strings so they never reach
// logs or error output.
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, p := range maskPatterns {
		s = p.re.ReplaceAllString(s, p.replacement)
	}
	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error
// is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}
