package enrichment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sagenews/sage/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	apiCfg := openai.DefaultConfig("test-key")
	apiCfg.BaseURL = server.URL + "/v1"

	c := &Client{
		api: openai.NewClientWithConfig(apiCfg),
		cfg: config.EnrichmentConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 4096,
			Timeout:   5 * time.Second,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep:  func(time.Duration) {},
	}
	return c, server
}

func completionResponse(content string) []byte {
	resp := map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	}
	raw, _ := json.Marshal(resp)
	return raw
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.EnrichmentConfig{}, nil)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestExtractKeywordsParsesModelOutput(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(`{"keywords": ["Petrobras", "Diesel", "Brazil"], "language": "pt", "score": 6}`))
	})

	result, err := c.ExtractKeywords(context.Background(), "Petrobras corta preco do diesel", nil)
	if err != nil {
		t.Fatalf("ExtractKeywords: %v", err)
	}
	if len(result.Keywords) != 3 || result.Keywords[0] != "Petrobras" {
		t.Fatalf("keywords = %v", result.Keywords)
	}
	if result.Language != LanguagePortuguese {
		t.Errorf("language = %q", result.Language)
	}
	if result.Score != 6 {
		t.Errorf("score = %v", result.Score)
	}
}

func TestExtractKeywordsTransportFailureReturnsZeroResult(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	result, err := c.ExtractKeywords(context.Background(), "anything", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if result.Score != 0 || len(result.Keywords) != 0 {
		t.Errorf("want zero result, got %+v", result)
	}
}

func TestExtractKeywordsFiltersExclusions(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(`{"keywords": ["Economy", "Petrobras"], "language": "en", "score": 4}`))
	})

	result, err := c.ExtractKeywords(context.Background(), "text", []string{"economy"})
	if err != nil {
		t.Fatalf("ExtractKeywords: %v", err)
	}
	if len(result.Keywords) != 1 || result.Keywords[0] != "Petrobras" {
		t.Fatalf("keywords = %v, want excluded term dropped", result.Keywords)
	}
}

func TestExtractStoriesParsesJSON(t *testing.T) {
	const payload = `{"stories": [
		{"title": "Fed holds rates", "bullets": ["No change at 5.5%"], "link": "https://example.com/fed", "keywords": ["Fed"], "ai_score": 8},
		{"title": "Oil slides", "bullets": ["Brent under 80"], "ai_score": 4}
	]}`
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(payload))
	})

	drafts, err := c.ExtractStories(context.Background(), "Daily Brief", "body", "Newsbrief")
	if err != nil {
		t.Fatalf("ExtractStories: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(drafts))
	}
	if drafts[0].Title != "Fed holds rates" || drafts[0].Score != 8 {
		t.Errorf("first draft = %+v", drafts[0])
	}
	if drafts[0].Link != "https://example.com/fed" {
		t.Errorf("link = %q", drafts[0].Link)
	}
}

func TestExtractStoriesFallsBackToSummaryParsing(t *testing.T) {
	const summary = `<html><body>
		<strong>1. Fed holds rates</strong>
		<p>No change at 5.5%. <a href="https://example.com/fed">Read more</a></p>
		<strong>2. Oil slides</strong>
		<p>Brent under 80.</p>
	</body></html>`
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(summary))
	})

	drafts, err := c.ExtractStories(context.Background(), "Daily Brief", "body", "Newsbrief")
	if err != nil {
		t.Fatalf("ExtractStories: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(drafts))
	}
	if drafts[0].Title != "Fed holds rates" {
		t.Errorf("title = %q", drafts[0].Title)
	}
	if drafts[0].Link != "https://example.com/fed" {
		t.Errorf("link = %q", drafts[0].Link)
	}
	if drafts[0].Score != DefaultScore {
		t.Errorf("score = %v, want default for summary-recovered drafts", drafts[0].Score)
	}
	if len(drafts[0].Bullets) == 0 {
		t.Error("expected bullets recovered from story text")
	}
}

func TestCompleteRetriesOnRateLimit(t *testing.T) {
	var calls int
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(completionResponse(`{"keywords": [], "language": "en", "score": 2}`))
	})

	result, err := c.ExtractKeywords(context.Background(), "text", nil)
	if err != nil {
		t.Fatalf("ExtractKeywords after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if result.Score != 2 {
		t.Errorf("score = %v", result.Score)
	}
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	})

	_, err := c.ExtractKeywords(context.Background(), "text", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != maxAttempts {
		t.Errorf("calls = %d, want %d", calls, maxAttempts)
	}
}
