package cmd

import (
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  padded  ", "padded"},
		{"line\none\n\nline two", "line one line two"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeText(tt.input); got != tt.expected {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}

	for _, tt := range tests {
		if got := levenshteinDistance(tt.s1, tt.s2); got != tt.expected {
			t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.s1, tt.s2, got, tt.expected)
		}
	}
}

func TestCalculateAccuracyMetrics(t *testing.T) {
	t.Run("perfect transcription", func(t *testing.T) {
		m := CalculateAccuracyMetrics("The quick brown fox", "The quick brown fox")

		if m.CharacterSimilarity != 1.0 {
			t.Errorf("CharacterSimilarity = %v, want 1.0", m.CharacterSimilarity)
		}
		if m.WordAccuracy != 1.0 {
			t.Errorf("WordAccuracy = %v, want 1.0", m.WordAccuracy)
		}
		if m.WordErrorRate != 0.0 {
			t.Errorf("WordErrorRate = %v, want 0.0", m.WordErrorRate)
		}
		if m.CorrectWords != 4 {
			t.Errorf("CorrectWords = %d, want 4", m.CorrectWords)
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		m := CalculateAccuracyMetrics("Hello  World", "hello world")
		if m.WordAccuracy != 1.0 {
			t.Errorf("WordAccuracy = %v, want 1.0", m.WordAccuracy)
		}
	})

	t.Run("one substitution", func(t *testing.T) {
		m := CalculateAccuracyMetrics("the quick brown fox", "the quick brawn fox")

		if m.Substitutions != 1 {
			t.Errorf("Substitutions = %d, want 1", m.Substitutions)
		}
		if m.CorrectWords != 3 {
			t.Errorf("CorrectWords = %d, want 3", m.CorrectWords)
		}
		if m.WordErrorRate != 0.25 {
			t.Errorf("WordErrorRate = %v, want 0.25", m.WordErrorRate)
		}
	})

	t.Run("missing word counts as deletion", func(t *testing.T) {
		m := CalculateAccuracyMetrics("one two three", "one three")

		if m.Deletions != 1 {
			t.Errorf("Deletions = %d, want 1", m.Deletions)
		}
		if m.TotalWordsOriginal != 3 || m.TotalWordsTranscribed != 2 {
			t.Errorf("word counts = %d/%d, want 3/2", m.TotalWordsOriginal, m.TotalWordsTranscribed)
		}
	})

	t.Run("extra word counts as insertion", func(t *testing.T) {
		m := CalculateAccuracyMetrics("one two", "one extra two")
		if m.Insertions != 1 {
			t.Errorf("Insertions = %d, want 1", m.Insertions)
		}
	})

	t.Run("both empty", func(t *testing.T) {
		m := CalculateAccuracyMetrics("", "")
		if m.CharacterSimilarity != 1.0 {
			t.Errorf("CharacterSimilarity = %v, want 1.0", m.CharacterSimilarity)
		}
	})
}
