package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/feedstore"
	"github.com/sagenews/sage/internal/metrics"
	"github.com/sagenews/sage/internal/models"
)

// How many junk candidates the preview log lists before eliding the rest.
const junkPreviewLimit = 10

// JunkStats summarizes one re-classification pass.
type JunkStats struct {
	Candidates int
	Junked     int
	Errors     int
}

// JunkClassifier flags low-scoring tweets as junk in place. Only rows with a
// strictly positive score qualify: score 0 means the item was never scored,
// and unscored items are left alone.
type JunkClassifier struct {
	store   feedstore.FeedStore
	cfg     config.IngestConfig
	metrics *metrics.Collector
	logger  *slog.Logger
	sleep   func(time.Duration)
}

func NewJunkClassifier(
	store feedstore.FeedStore,
	cfg config.IngestConfig,
	collector *metrics.Collector,
	logger *slog.Logger,
) *JunkClassifier {
	return &JunkClassifier{
		store:   store,
		cfg:     cfg,
		metrics: collector,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Run selects and flags every qualifying tweet. Per-row update failures are
// logged and counted, not fatal.
func (c *JunkClassifier) Run(ctx context.Context) (JunkStats, error) {
	var stats JunkStats

	tweets, err := c.store.List(ctx, feedstore.Query{
		SourceType: models.SourceTypeTweet,
	})
	if err != nil {
		return stats, fmt.Errorf("list tweets: %w", err)
	}

	candidates := SelectJunkCandidates(tweets, c.cfg.JunkThreshold)
	stats.Candidates = len(candidates)

	c.logger.Info("junk scan complete",
		"tweets", len(tweets),
		"candidates", len(candidates),
		"threshold", c.cfg.JunkThreshold)
	if len(candidates) == 0 {
		return stats, nil
	}

	for i, item := range candidates {
		if i >= junkPreviewLimit {
			c.logger.Info("more junk candidates elided",
				"remaining", len(candidates)-junkPreviewLimit)
			break
		}
		title := item.Title
		if title == "" {
			title = item.ContentText
		}
		c.logger.Info("will junk",
			"score", item.AIScore,
			"sender", preview(item.SenderTag, 20),
			"title", preview(title, 60))
	}

	for _, item := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := c.store.SetJunk(ctx, item.ID, true); err != nil {
			c.logger.Error("junk update failed", "id", item.ID, "error", err)
			stats.Errors++
			continue
		}
		c.metrics.RecordJunked()
		stats.Junked++

		c.sleep(c.cfg.ItemDelay)
	}

	c.logger.Info("junk pass complete",
		"junked", stats.Junked, "errors", stats.Errors)
	return stats, nil
}

// SelectJunkCandidates returns the tweets eligible for auto-junking, sorted
// by ascending score. The order only shapes the progress log; it carries no
// correctness meaning.
func SelectJunkCandidates(items []models.FeedItem, threshold float64) []models.FeedItem {
	var candidates []models.FeedItem
	for _, item := range items {
		if item.SourceType != models.SourceTypeTweet || item.IsJunk {
			continue
		}
		if item.AIScore <= 0 || item.AIScore > threshold {
			continue
		}
		candidates = append(candidates, item)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AIScore < candidates[j].AIScore
	})
	return candidates
}
