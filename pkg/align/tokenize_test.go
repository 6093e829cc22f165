package align

import "testing"

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "only whitespace",
			input:    "  \n\t ",
			expected: nil,
		},
		{
			name:     "simple words",
			input:    "hello world",
			expected: []string{"hello", "world"},
		},
		{
			name:     "punctuation stays attached",
			input:    "Hello, world!",
			expected: []string{"Hello,", "world!"},
		},
		{
			name:     "line breaks delimit",
			input:    "first line\nsecond line",
			expected: []string{"first", "line", "second", "line"},
		},
		{
			name:     "leading and trailing whitespace",
			input:    "  padded  ",
			expected: []string{"padded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenize(tt.input)
			if len(tokens) != len(tt.expected) {
				t.Fatalf("tokenize(%q) returned %d tokens, want %d", tt.input, len(tokens), len(tt.expected))
			}
			for i, tok := range tokens {
				if tok.text != tt.expected[i] {
					t.Errorf("token %d: got %q, want %q", i, tok.text, tt.expected[i])
				}
				if tt.input[tok.start:tok.end] != tok.text {
					t.Errorf("token %d: offsets %d:%d do not slice back to %q", i, tok.start, tok.end, tok.text)
				}
			}
		})
	}
}

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello,", "hello"},
		{"world!", "world"},
		{"it's", "its"},
		{"---", ""},
		{"Catch-22", "catch22"},
		{"ÉCOLE", "école"},
	}

	for _, tt := range tests {
		if got := normalizeToken(tt.input); got != tt.expected {
			t.Errorf("normalizeToken(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSliceTextPreservesSpacing(t *testing.T) {
	text := "alpha  bravo\ncharlie"
	tokens := tokenize(text)
	if got := sliceText(text, tokens, 0, 2); got != "alpha  bravo" {
		t.Errorf("sliceText(0,2) = %q, want %q", got, "alpha  bravo")
	}
	if got := sliceText(text, tokens, 1, 3); got != "bravo\ncharlie" {
		t.Errorf("sliceText(1,3) = %q, want %q", got, "bravo\ncharlie")
	}
	if got := sliceText(text, tokens, 2, 2); got != "" {
		t.Errorf("sliceText(2,2) = %q, want empty", got)
	}
}

func TestTokenSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "hello", "hello", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "hello", "", 0.0},
		{"completely different", "abc", "xyz", 0.0},
		{"one substitution in five", "house", "mouse", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenSimilarity(tt.a, tt.b)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("tokenSimilarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}

	for _, tt := range tests {
		if got := levenshtein([]rune(tt.s1), []rune(tt.s2)); got != tt.expected {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.expected)
		}
	}
}
