package enrichment

import (
	"context"
	"testing"
)

func TestMockEnricherHeuristicKeywords(t *testing.T) {
	enricher := NewMockEnricher()

	result, err := enricher.ExtractKeywords(context.Background(),
		"Petrobras cut Diesel prices as Brazil inflation eased", []string{"brazil"})
	if err != nil {
		t.Fatalf("ExtractKeywords: %v", err)
	}

	if result.Score != DefaultScore {
		t.Errorf("score = %v, want %v", result.Score, DefaultScore)
	}
	for _, kw := range result.Keywords {
		if kw == "Brazil" {
			t.Error("excluded keyword survived the filter")
		}
	}
	if len(result.Keywords) == 0 {
		t.Error("expected capitalized tokens as keywords")
	}
	if result.Keywords[0] != "Petrobras" {
		t.Errorf("first keyword = %q, want Petrobras", result.Keywords[0])
	}
}

func TestMockEnricherHeuristicStories(t *testing.T) {
	enricher := NewMockEnricher()

	body := "Fed holds rates steady\nNo change at the May meeting.\n\nOil prices slide\nBrent fell under 80."
	drafts, err := enricher.ExtractStories(context.Background(), "Daily Brief", body, "Newsbrief")
	if err != nil {
		t.Fatalf("ExtractStories: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want one per paragraph", len(drafts))
	}
	if drafts[0].Title != "Fed holds rates steady" {
		t.Errorf("title = %q", drafts[0].Title)
	}
	if drafts[1].Title != "Oil prices slide" {
		t.Errorf("title = %q", drafts[1].Title)
	}
}

func TestMockEnricherScriptedHooks(t *testing.T) {
	enricher := NewMockEnricher()
	enricher.KeywordsFn = func(text string, exclusions []string) (KeywordResult, error) {
		return KeywordResult{Keywords: []string{"scripted"}, Language: LanguageEnglish, Score: 9}, nil
	}
	enricher.StoriesFn = func(subject, body, sender string) ([]StoryDraft, error) {
		return []StoryDraft{{Title: "scripted story", Score: 1}}, nil
	}

	kw, err := enricher.ExtractKeywords(context.Background(), "x", nil)
	if err != nil || kw.Score != 9 {
		t.Fatalf("scripted keywords = %+v, err %v", kw, err)
	}
	drafts, err := enricher.ExtractStories(context.Background(), "s", "b", "f")
	if err != nil || len(drafts) != 1 || drafts[0].Title != "scripted story" {
		t.Fatalf("scripted stories = %+v, err %v", drafts, err)
	}
}
