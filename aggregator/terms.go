package aggregator

import (
	"strings"
	"unicode"

	"surveypulse/api/models"
)

// TermFrequency maps a lowercased word to the number of times it appears.
type TermFrequency map[string]int

// DefaultMinTermLength drops short filler words from the word cloud.
const DefaultMinTermLength = 4

// ComputeTermFrequency tokenizes the free-text answer returned by sel and
// counts every token of at least minLength characters.
func ComputeTermFrequency(records []models.SurveyResponse, sel Selector, minLength int) TermFrequency {
	if minLength <= 0 {
		minLength = DefaultMinTermLength
	}

	freq := make(TermFrequency)
	for _, r := range records {
		text := sel(r)
		if text == nil || *text == "" {
			continue
		}
		for _, tok := range Tokenize(*text) {
			if len(tok) < minLength {
				continue
			}
			freq[tok]++
		}
	}
	return freq
}

// Tokenize lowercases text, removes everything that is neither an ASCII word
// character nor whitespace, and splits on whitespace.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case isWordChar(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
