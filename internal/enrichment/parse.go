package enrichment

import (
	"strings"

	"github.com/tidwall/gjson"
)

// extractJSONObject isolates the first well-formed JSON object inside a model
// response. Handles markdown code fences and prose wrapped around the JSON.
// Returns ok=false when no valid object can be found.
func extractJSONObject(raw string) (string, bool) {
	text := strings.TrimSpace(raw)

	// Strip markdown fences first; models add them despite instructions.
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	// Walk brace depth from each opening brace, skipping string literals,
	// and validate the balanced candidate. Prose can carry stray brace
	// pairs ahead of the real object ("formatted as {key: value} pairs");
	// an invalid candidate moves the scan to the next opening brace
	// instead of giving up.
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if candidate, ok := balancedObject(text, start); ok && gjson.Valid(candidate) {
			return candidate, true
		}
		offset := strings.IndexByte(text[start+1:], '{')
		if offset < 0 {
			return "", false
		}
		start += 1 + offset
	}
	return "", false
}

// balancedObject returns the brace-balanced substring opening at start, or
// ok=false when the braces never close.
func balancedObject(text string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// parseKeywordResult converts a raw model response into a KeywordResult,
// filling defaults for absent fields. An unusable response yields the zero
// result.
func parseKeywordResult(raw string) KeywordResult {
	jsonStr, ok := extractJSONObject(raw)
	if !ok {
		return ZeroKeywordResult()
	}

	result := KeywordResult{
		Keywords: []string{},
		Language: LanguageEnglish,
		Score:    DefaultScore,
	}

	if kw := gjson.Get(jsonStr, "keywords"); kw.IsArray() {
		for _, entry := range kw.Array() {
			word := strings.TrimSpace(entry.String())
			if word != "" {
				result.Keywords = append(result.Keywords, word)
			}
		}
	}

	if lang := gjson.Get(jsonStr, "language"); lang.Exists() {
		switch strings.ToLower(strings.TrimSpace(lang.String())) {
		case LanguagePortuguese:
			result.Language = LanguagePortuguese
		case LanguageEnglish:
			result.Language = LanguageEnglish
		}
	}

	if score := gjson.Get(jsonStr, "score"); score.Exists() {
		result.Score = clampScore(score.Float())
	}

	return result
}

// parseStoryDrafts converts a raw digest-enrichment response into story
// drafts. Stories missing a title are dropped; other absent fields default.
func parseStoryDrafts(raw string) []StoryDraft {
	jsonStr, ok := extractJSONObject(raw)
	if !ok {
		return nil
	}

	stories := gjson.Get(jsonStr, "stories")
	if !stories.IsArray() {
		return nil
	}

	var drafts []StoryDraft
	for _, entry := range stories.Array() {
		title := strings.TrimSpace(entry.Get("title").String())
		if title == "" {
			continue
		}

		draft := StoryDraft{
			Title: title,
			Link:  strings.TrimSpace(entry.Get("link").String()),
			Score: DefaultScore,
		}

		for _, bullet := range entry.Get("bullets").Array() {
			if text := strings.TrimSpace(bullet.String()); text != "" {
				draft.Bullets = append(draft.Bullets, text)
			}
		}
		for _, kw := range entry.Get("keywords").Array() {
			if word := strings.TrimSpace(kw.String()); word != "" {
				draft.Keywords = append(draft.Keywords, word)
			}
		}
		if score := entry.Get("ai_score"); score.Exists() {
			draft.Score = clampScore(score.Float())
		}

		drafts = append(drafts, draft)
	}
	return drafts
}

// filterKeywords removes excluded terms case-insensitively and caps the list
// at MaxKeywords. The prompt already asks the model to avoid these terms;
// the post-filter covers prompt non-compliance.
func filterKeywords(keywords, exclusions []string) []string {
	excluded := make(map[string]struct{}, len(exclusions))
	for _, term := range exclusions {
		excluded[strings.ToLower(term)] = struct{}{}
	}

	filtered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if _, skip := excluded[strings.ToLower(kw)]; skip {
			continue
		}
		filtered = append(filtered, kw)
		if len(filtered) == MaxKeywords {
			break
		}
	}
	return filtered
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
