package gemini

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pagelift/pagelift/pkg/transcribe"
)

func TestProvider_Name(t *testing.T) {
	p := New()
	if p.Name() != "gemini" {
		t.Errorf("Expected name 'gemini', got '%s'", p.Name())
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		expectError bool
	}{
		{"valid API key", "test-key", false},
		{"missing API key", "", true},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.apiKey)

			err := p.ValidateConfig(transcribe.Config{})
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
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
			name:       "successful response",
			statusCode: http.StatusOK,
			serverResponse: `{
				"candidates": [
					{"content": {"parts": [{"text": "Minutes of the meeting"}]}}
				],
				"usageMetadata": {"promptTokenCount": 100, "candidatesTokenCount": 5}
			}`,
			expectedText: "Minutes of the meeting",
		},
		{
			name:           "API error response",
			statusCode:     http.StatusForbidden,
			serverResponse: `{"error": {"message": "API key invalid"}}`,
			expectError:    true,
			errorContains:  "gemini API error",
		},
		{
			name:           "no candidates",
			statusCode:     http.StatusOK,
			serverResponse: `{"candidates": []}`,
			expectError:    true,
			errorContains:  "no response from Gemini",
		},
		{
			name:           "empty text part",
			statusCode:     http.StatusOK,
			serverResponse: `{"candidates": [{"content": {"parts": [{"text": ""}]}}]}`,
			expectError:    true,
			errorContains:  "no text in Gemini response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if !strings.Contains(r.URL.Path, ":generateContent") {
					t.Errorf("Expected generateContent path, got %s", r.URL.Path)
				}
				if r.URL.Query().Get("key") == "" {
					t.Error("Expected API key in query string")
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.serverResponse)); err != nil {
					t.Errorf("Failed to write response: %v", err)
				}
			}))
			defer server.Close()

			t.Setenv("GEMINI_API_KEY", "test-key")

			config := transcribe.Config{BaseURL: server.URL}
			text, _, err := New().Transcribe(context.Background(), config, "page.jpg", "aW1hZ2U=")

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
