package align

import (
	"strings"
	"unicode"
)

// token is one whitespace-delimited word with its byte offsets into the
// source string. Punctuation stays attached to the word; norm is the
// case-folded, punctuation-stripped form used for matching.
type token struct {
	text  string
	start int
	end   int
	norm  string
}

func tokenize(s string) []token {
	var tokens []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, newToken(s, start, i))
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, newToken(s, start, len(s)))
	}
	return tokens
}

func newToken(s string, start, end int) token {
	raw := s[start:end]
	return token{text: raw, start: start, end: end, norm: normalizeToken(raw)}
}

// normalizeToken lowercases and strips punctuation so "Hello," and "hello"
// compare equal during matching.
func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sliceText returns the original text spanned by tokens[start:end],
// preserving interior spacing and line breaks.
func sliceText(s string, tokens []token, start, end int) string {
	if start >= end {
		return ""
	}
	return s[tokens[start].start:tokens[end-1].end]
}

// tokenSimilarity is 1 minus the normalized Levenshtein distance of the two
// normalized tokens. Two empty normalized tokens (pure punctuation) count as
// identical.
func tokenSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(s1, s2 []rune) int {
	len1, len2 := len(s1), len(s2)
	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				min(matrix[i-1][j]+1, matrix[i][j-1]+1), // deletion, insertion
				matrix[i-1][j-1]+cost,                   // substitution
			)
		}
	}

	return matrix[len1][len2]
}
