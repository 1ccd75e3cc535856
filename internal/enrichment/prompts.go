package enrichment

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Tweet text beyond this length adds cost without adding signal.
	keywordPromptTextLimit = 500
	// Digest bodies are truncated before prompting; the stories worth
	// extracting live in the opening sections.
	storyPromptBodyLimit = 10000
	// How many exclusion terms to sample into the prompt. The full list is
	// enforced by the post-filter regardless.
	exclusionSampleSize = 20
)

// BuildKeywordPrompt renders the single-item keyword extraction prompt.
func BuildKeywordPrompt(text string, exclusions []string) string {
	sample := exclusions
	if len(sample) > exclusionSampleSize {
		sample = sample[:exclusionSampleSize]
	}

	return fmt.Sprintf(`Analyze this text and extract keywords.

CRITICAL LANGUAGE RULE:
- If the text is in Portuguese, return keywords in PORTUGUESE
- If the text is in English, return keywords in ENGLISH
- DO NOT translate keywords to another language!

Text: %q

Extract 4-6 keywords focusing on:
- Companies/Organizations (Tesla, Petrobras, Goldman Sachs, Congresso, etc.)
- People (Jerome Powell, Lula, Trump, Elon Musk, etc.)
- Topics (Inflation/Inflacao, Tariffs/Tarifas, Trade/Comercio, etc.)
- Locations (Brazil/Brasil, China, USA, Washington, Sao Paulo, etc.)
- Concepts (Monetary Policy/Politica Monetaria, AI/IA, etc.)

EXCLUDE generic terms like:
- Source names (CNN, Bloomberg, FT, InfoMoney)
- Generic words (Breaking News, Noticias, Update, Analise)
- Examples to exclude: %s

Return ONLY valid JSON (no markdown):
{
  "keywords": ["keyword1", "keyword2", "keyword3", "keyword4"],
  "language": "en" or "pt",
  "score": 0-10
}

Score 0-10 based on financial/market relevance.`,
		truncate(text, keywordPromptTextLimit),
		strings.Join(sample, ", "),
	)
}

// BuildStoriesPrompt renders the batch digest-splitting prompt, choosing the
// Portuguese variant when the body sniffs as Portuguese.
func BuildStoriesPrompt(body string) string {
	truncated := truncate(body, storyPromptBodyLimit)
	if DetectLanguage(body) == LanguagePortuguese {
		return portugueseStoriesPrompt + "\n" + truncated
	}
	return englishStoriesPrompt + "\n" + truncated
}

const englishStoriesPrompt = `Extract 6-12 main news stories from this briefing.

For EACH story, provide in JSON:
{
  "stories": [
    {
      "title": "Story title",
      "bullets": [
        "Specific detail with words from text",
        "Detail with numbers/names/specific data"
      ],
      "link": "URL if mentioned in content, or empty",
      "keywords": ["keyword1", "keyword2", "keyword3", "keyword4"],
      "ai_score": 8
    }
  ]
}

KEYWORDS: 4-6 SPECIFIC keywords in ENGLISH (companies, people, concepts, locations)
- Exclude generic terms: "Breaking News", "Analysis", "Market", "News"
- Focus on the SUBJECT of the story

AI_SCORE: Rate importance 0-10
- 9-10: Critical news (policy decisions, major market moves)
- 7-8: Important (economic data, earnings, M&A)
- 5-6: Relevant (analysis, opinions)
- 3-4: Minor importance
- 1-2: Trivial

Newsletter content:`

const portugueseStoriesPrompt = `Extraia 6-12 noticias principais deste briefing.

Para CADA noticia, forneca em JSON:
{
  "stories": [
    {
      "title": "Titulo da noticia",
      "bullets": [
        "Detalhe especifico com palavras do texto",
        "Detalhe com numeros/nomes/dados especificos"
      ],
      "link": "URL se mencionado no conteudo, ou vazio",
      "keywords": ["palavra1", "palavra2", "palavra3", "palavra4"],
      "ai_score": 8
    }
  ]
}

KEYWORDS: 4-6 palavras-chave ESPECIFICAS em PORTUGUES (empresas, pessoas, conceitos, locais)
- Exclua termos genericos: "Breaking News", "Analise", "Mercado", "Noticias"
- Foque no ASSUNTO da noticia

AI_SCORE: Avalie a importancia de 0-10
- 9-10: Noticia critica (decisoes de politica, grandes movimentos de mercado)
- 7-8: Importante (dados economicos, earnings, M&A)
- 5-6: Relevante (analises, opinioes)
- 3-4: Menor importancia
- 1-2: Trivial

Conteudo do newsletter:`

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Back off to a rune boundary so the cut never produces invalid UTF-8.
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
