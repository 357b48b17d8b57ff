package aggregator

import (
	"reflect"
	"strings"
	"testing"
	"unicode"

	"surveypulse/api/models"
)

func challenge(r models.SurveyResponse) *string { return r.MainChallenge }

func withChallenges(texts ...string) []models.SurveyResponse {
	records := make([]models.SurveyResponse, 0, len(texts))
	for _, t := range texts {
		records = append(records, models.SurveyResponse{MainChallenge: models.StringPtr(t)})
	}
	return records
}

func TestComputeTermFrequency_ShortWordsOnly(t *testing.T) {
	got := ComputeTermFrequency(withChallenges("the the the cat sat"), challenge, 4)
	if len(got) != 0 {
		t.Fatalf("expected no terms, got %v", got)
	}
}

func TestComputeTermFrequency(t *testing.T) {
	records := withChallenges(
		"Prioritization is HARD; stakeholder alignment, too!",
		"Stakeholder management and prioritization.",
		"",
	)
	records = append(records, models.SurveyResponse{})

	got := ComputeTermFrequency(records, challenge, 4)
	want := TermFrequency{
		"prioritization": 2,
		"hard":           1,
		"stakeholder":    2,
		"alignment":      1,
		"management":     1,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeTermFrequency_DefaultMinLength(t *testing.T) {
	got := ComputeTermFrequency(withChallenges("data data ops roadmap"), challenge, 0)
	want := TermFrequency{"data": 2, "roadmap": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeTermFrequency_CustomMinLength(t *testing.T) {
	got := ComputeTermFrequency(withChallenges("ux is key to growth"), challenge, 2)
	want := TermFrequency{"ux": 1, "is": 1, "key": 1, "to": 1, "growth": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeTermFrequency_NoPunctuationOrShortTokens(t *testing.T) {
	records := withChallenges(
		"Don't know... what's next?!",
		"café-owners' (re)search — e-mail: hello@example.com",
		"tabs\tand\nnewlines   everywhere",
		"snake_case_words and 2024 numbers",
	)

	got := ComputeTermFrequency(records, challenge, 4)
	for tok := range got {
		if len(tok) < 4 {
			t.Errorf("token %q shorter than min length", tok)
		}
		for _, r := range tok {
			if !(r == '_' || unicode.IsDigit(r) || (r >= 'a' && r <= 'z')) {
				t.Errorf("token %q contains non-word character %q", tok, r)
			}
		}
		if strings.ToLower(tok) != tok {
			t.Errorf("token %q is not lowercased", tok)
		}
	}
	if got["dont"] != 1 || got["whats"] != 1 {
		t.Errorf("expected apostrophes stripped inside words, got %v", got)
	}
	if got["snake_case_words"] != 1 || got["2024"] != 1 {
		t.Errorf("expected underscores and digits kept, got %v", got)
	}
	if got["newlines"] != 1 || got["everywhere"] != 1 {
		t.Errorf("expected split on any whitespace, got %v", got)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  Hello,   World! It's 9am ")
	want := []string{"hello", "world", "its", "9am"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
