package enrichment

import "strings"

// Marker words that indicate a Portuguese-language briefing. Checked against
// the first portion of the body only; this is a hint for selecting the
// prompt variant, not a correctness-bearing classification.
var portugueseMarkers = []string{
	"notícias",
	"brasil",
	"governo",
	"mercado",
	"economia",
	"empresas",
}

const languageSniffWindow = 500

// DetectLanguage sniffs the opening of a text for Portuguese marker words.
func DetectLanguage(text string) string {
	window := strings.ToLower(text)
	if len(window) > languageSniffWindow {
		window = window[:languageSniffWindow]
	}
	for _, marker := range portugueseMarkers {
		if strings.Contains(window, marker) {
			return LanguagePortuguese
		}
	}
	return LanguageEnglish
}
