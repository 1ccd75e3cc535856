// Package enrichment turns raw feed text into keywords, relevance scores,
// and split-out digest stories by calling an LLM API. The model is treated
// as an unreliable collaborator: every response shape it can produce, from
// prose-wrapped JSON to nothing at all, degrades to a defined default
// instead of failing a batch.
package enrichment

import "context"

// Languages the keyword prompts understand.
const (
	LanguageEnglish    = "en"
	LanguagePortuguese = "pt"
)

// Score assigned when a response parses but carries no score field. Mid-scale
// rather than zero so a real-but-unscored item is not mistaken for junk.
const DefaultScore = 5.0

// MaxKeywords caps keyword output regardless of what the model returns.
const MaxKeywords = 6

// KeywordResult is the normalized outcome of single-item enrichment.
type KeywordResult struct {
	Keywords []string
	Language string
	Score    float64
}

// ZeroKeywordResult marks an item as not enriched: no keywords, english,
// score 0. Downstream junk thresholding treats score 0 as "unscored" and
// leaves the item alone.
func ZeroKeywordResult() KeywordResult {
	return KeywordResult{Keywords: []string{}, Language: LanguageEnglish, Score: 0}
}

// StoryDraft is one news story the model extracted from a digest email.
type StoryDraft struct {
	Title    string
	Bullets  []string
	Link     string
	Keywords []string
	Score    float64
}

// Enricher is the boundary to the LLM. Implementations must degrade
// malformed model output to defaults and only return an error for transport
// failures (network, auth, rate-limit exhaustion).
type Enricher interface {
	// ExtractKeywords enriches one item's text, suppressing the given
	// generic terms.
	ExtractKeywords(ctx context.Context, text string, exclusions []string) (KeywordResult, error)

	// ExtractStories splits a digest email into individually scored
	// stories. An empty slice means the model found nothing usable.
	ExtractStories(ctx context.Context, subject, body, sender string) ([]StoryDraft, error)
}
