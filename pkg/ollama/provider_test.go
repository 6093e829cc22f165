package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagelift/pagelift/pkg/transcribe"
)

func TestProvider_Name(t *testing.T) {
	p := New()
	if p.Name() != "ollama" {
		t.Errorf("Expected name 'ollama', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	if err := New().ValidateConfig(transcribe.Config{}); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestProvider_Transcribe(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse string
		statusCode     int
		expectedText   string
		expectError    bool
		errorContains  string
	}{
		{
			name:           "successful response",
			statusCode:     http.StatusOK,
			serverResponse: `{"response": "County Fair Entry Form", "prompt_eval_count": 210, "eval_count": 12}`,
			expectedText:   "County Fair Entry Form",
		},
		{
			name:           "chatty response gets cleaned",
			statusCode:     http.StatusOK,
			serverResponse: `{"response": "The text in the image says: Ledger page 4"}`,
			expectedText:   "Ledger page 4",
		},
		{
			name:           "API error response",
			statusCode:     http.StatusInternalServerError,
			serverResponse: `{"error": "model not found"}`,
			expectError:    true,
			errorContains:  "ollama API error",
		},
		{
			name:           "empty response field",
			statusCode:     http.StatusOK,
			serverResponse: `{"done": true}`,
			expectError:    true,
			errorContains:  "no response from Ollama",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/generate" {
					t.Errorf("Expected /api/generate path, got %s", r.URL.Path)
				}

				var reqBody map[string]any
				if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
					t.Errorf("Request body is not valid JSON: %v", err)
				} else {
					if stream, ok := reqBody["stream"].(bool); !ok || stream {
						t.Error("Expected stream: false in request body")
					}
					if images, ok := reqBody["images"].([]any); !ok || len(images) != 1 {
						t.Error("Expected one image in request body")
					}
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.serverResponse)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			config := transcribe.Config{Model: "llava", BaseURL: server.URL}
			text, _, err := New().Transcribe(context.Background(), config, "page.png", "aW1hZ2U=")

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if text != tt.expectedText {
				t.Errorf("Expected '%s', got '%s'", tt.expectedText, text)
			}
		})
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no cleaning needed",
			input:    "Simple text",
			expected: "Simple text",
		},
		{
			name:     "remove prefix",
			input:    "The text in the image says: Hello",
			expected: "Hello",
		},
		{
			name:     "remove quotes",
			input:    `"Quoted text"`,
			expected: "Quoted text",
		},
		{
			name:     "remove code blocks",
			input:    "```\nCode block text\n```",
			expected: "Code block text",
		},
		{
			name:     "trim whitespace",
			input:    "   Spaced text   ",
			expected: "Spaced text",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := p.CleanResponse(tt.input)
			if result != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
