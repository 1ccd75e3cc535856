package enrichment

import (
	"context"
	"strings"
	"unicode"
)

// MockEnricher is a rule-based Enricher for tests and offline runs. The
// KeywordsFn and StoriesFn hooks let tests script exact responses; without
// hooks it falls back to cheap heuristics so the pipelines stay exercisable
// with no API key.
type MockEnricher struct {
	KeywordsFn func(text string, exclusions []string) (KeywordResult, error)
	StoriesFn  func(subject, body, sender string) ([]StoryDraft, error)
}

// NewMockEnricher creates a heuristic-only mock.
func NewMockEnricher() *MockEnricher {
	return &MockEnricher{}
}

// ExtractKeywords returns scripted or heuristic keywords.
func (m *MockEnricher) ExtractKeywords(ctx context.Context, text string, exclusions []string) (KeywordResult, error) {
	if m.KeywordsFn != nil {
		return m.KeywordsFn(text, exclusions)
	}

	result := KeywordResult{
		Keywords: filterKeywords(capitalizedTokens(text), exclusions),
		Language: DetectLanguage(text),
		Score:    DefaultScore,
	}
	return result, nil
}

// ExtractStories returns scripted or heuristic story drafts.
func (m *MockEnricher) ExtractStories(ctx context.Context, subject, body, sender string) ([]StoryDraft, error) {
	if m.StoriesFn != nil {
		return m.StoriesFn(subject, body, sender)
	}

	// One draft per non-empty paragraph, first line as title.
	var drafts []StoryDraft
	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		title := para
		if idx := strings.IndexByte(title, '\n'); idx >= 0 {
			title = title[:idx]
		}
		drafts = append(drafts, StoryDraft{
			Title:    truncate(title, 100),
			Bullets:  []string{truncate(para, 200)},
			Keywords: capitalizedTokens(para),
			Score:    DefaultScore,
		})
	}
	return drafts, nil
}

// capitalizedTokens picks distinct capitalized words as stand-in keywords.
func capitalizedTokens(text string) []string {
	seen := map[string]struct{}{}
	var tokens []string
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(word) < 3 {
			continue
		}
		first := []rune(word)[0]
		if !unicode.IsUpper(first) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		tokens = append(tokens, word)
		if len(tokens) == MaxKeywords {
			break
		}
	}
	return tokens
}
