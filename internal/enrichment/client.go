package enrichment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/digest"
)

// Client is the OpenAI-backed Enricher.
type Client struct {
	api    *openai.Client
	cfg    config.EnrichmentConfig
	logger *slog.Logger

	// sleep is swappable in tests so retry backoff does not slow the suite.
	sleep func(time.Duration)
}

// NewClient creates an OpenAI-backed enricher.
func NewClient(cfg config.EnrichmentConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("enrichment api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    openai.NewClient(cfg.APIKey),
		cfg:    cfg,
		logger: logger,
		sleep:  time.Sleep,
	}, nil
}

// ExtractKeywords enriches one item's text. Malformed model output degrades
// to the zero result; only transport failures return an error.
func (c *Client) ExtractKeywords(ctx context.Context, text string, exclusions []string) (KeywordResult, error) {
	prompt := BuildKeywordPrompt(text, exclusions)

	raw, err := c.complete(ctx, prompt, 200)
	if err != nil {
		return ZeroKeywordResult(), fmt.Errorf("keyword extraction call: %w", err)
	}

	result := parseKeywordResult(raw)
	result.Keywords = filterKeywords(result.Keywords, exclusions)
	return result, nil
}

// ExtractStories splits a digest into scored stories. A response the parser
// cannot use yields an empty slice, not an error.
func (c *Client) ExtractStories(ctx context.Context, subject, body, sender string) ([]StoryDraft, error) {
	c.logger.Debug("digest enrichment",
		"sender", sender,
		"subject_prefix", truncate(subject, 60),
		"language", DetectLanguage(body),
	)

	raw, err := c.complete(ctx, BuildStoriesPrompt(body), c.cfg.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("story extraction call: %w", err)
	}

	drafts := parseStoryDrafts(raw)
	if len(drafts) == 0 {
		// Some models ignore the JSON instruction and return the formatted
		// summary instead. Its numbered blocks are still usable.
		drafts = draftsFromSummary(raw)
	}
	return drafts, nil
}

// draftsFromSummary recovers story drafts from an HTML summary with
// numbered <strong> headings. Scores are left unset; the per-story keyword
// pass assigns them.
func draftsFromSummary(raw string) []StoryDraft {
	var drafts []StoryDraft
	for _, story := range digest.ParseStories(raw) {
		draft := StoryDraft{
			Title: story.Title,
			Link:  story.Link,
			Score: DefaultScore,
		}
		for _, line := range strings.Split(story.Text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				draft.Bullets = append(draft.Bullets, line)
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts
}

const maxAttempts = 3

// complete runs one chat completion with a per-call timeout and bounded
// retry on rate limiting.
func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var resp openai.ChatCompletionResponse
	var err error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		resp, err = c.api.CreateChatCompletion(callCtx, request)
		cancel()

		if err == nil {
			break
		}
		if !isRateLimited(err) || attempt == maxAttempts-1 {
			return "", err
		}

		// Exponential backoff with jitter before the next attempt.
		delay := time.Second*time.Duration(1<<uint(attempt)) +
			time.Duration(rand.Intn(500))*time.Millisecond
		c.logger.Warn("rate limited, retrying",
			"attempt", attempt+1,
			"delay_ms", delay.Milliseconds(),
		)
		c.sleep(delay)
	}
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned from model %s", c.cfg.Model)
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty response from model %s (finish_reason: %s)",
			c.cfg.Model, resp.Choices[0].FinishReason)
	}
	return content, nil
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "Rate limit")
}
