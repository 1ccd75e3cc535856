package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/enrichment"
	"github.com/sagenews/sage/internal/feedstore"
	"github.com/sagenews/sage/internal/identity"
	"github.com/sagenews/sage/internal/metrics"
	"github.com/sagenews/sage/internal/models"
	"github.com/sagenews/sage/internal/social"
	"github.com/sagenews/sage/internal/timeutil"
	"github.com/sagenews/sage/internal/tracker"
)

// TweetStats summarizes one tweet run.
type TweetStats struct {
	Fetched    int
	Skipped    int
	WithMedia  int
	Inserted   int
	Duplicates int
}

// TweetPipeline ingests a Twitter list timeline into the feed, enriching
// each unseen tweet and pre-flagging low scorers as junk.
type TweetPipeline struct {
	list     social.TwitterList
	enricher enrichment.Enricher
	tracker  *tracker.Tracker
	store    feedstore.FeedStore
	inserter *feedstore.Inserter
	settings config.Settings
	cfg      config.IngestConfig
	metrics  *metrics.Collector
	logger   *slog.Logger
	retry    RetryPolicy
	sleep    func(time.Duration)
}

func NewTweetPipeline(
	list social.TwitterList,
	enricher enrichment.Enricher,
	trk *tracker.Tracker,
	store feedstore.FeedStore,
	inserter *feedstore.Inserter,
	settings config.Settings,
	cfg config.IngestConfig,
	collector *metrics.Collector,
	logger *slog.Logger,
) *TweetPipeline {
	return &TweetPipeline{
		list:     list,
		enricher: enricher,
		tracker:  trk,
		store:    store,
		inserter: inserter,
		settings: settings,
		cfg:      cfg,
		metrics:  collector,
		logger:   logger,
		retry:    DefaultRetryPolicy(),
		sleep:    time.Sleep,
	}
}

// Run fetches the list timeline and appends every unseen tweet in a single
// batch, marking the tracker only after the append is confirmed.
func (p *TweetPipeline) Run(ctx context.Context) (TweetStats, error) {
	var stats TweetStats

	var tweets []social.Tweet
	err := Retry(ctx, p.retry, func() error {
		var fetchErr error
		tweets, fetchErr = p.list.FetchTweets(ctx)
		if fetchErr != nil {
			return NewRetryableError(fetchErr)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("fetch list tweets: %w", err)
	}
	stats.Fetched = len(tweets)

	// The store is checked up front as well as at insert time: the early
	// check saves an enrichment call per already-stored tweet, the insert
	// check is the correctness gate.
	existing, err := p.store.ListIDs(ctx)
	if err != nil {
		return stats, fmt.Errorf("list existing ids: %w", err)
	}

	exclusions := p.settings.AllExclusions()

	var batch []models.FeedItem
	for _, tweet := range tweets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		id := identity.TweetID(tweet.ID)
		if p.tracker.IsProcessed(tracker.KindTweet, id) {
			stats.Skipped++
			continue
		}
		if _, ok := existing[id]; ok {
			stats.Skipped++
			continue
		}

		record, hasMedia := p.buildRecord(ctx, id, tweet, exclusions)
		if hasMedia {
			stats.WithMedia++
		}
		batch = append(batch, record)

		p.sleep(p.cfg.ItemDelay)
	}

	if len(batch) == 0 {
		p.logger.Info("no new tweets", "fetched", stats.Fetched, "skipped", stats.Skipped)
		return stats, nil
	}

	inserted, duplicates, err := p.inserter.Insert(ctx, batch)
	if err != nil {
		return stats, fmt.Errorf("insert tweet batch: %w", err)
	}
	stats.Inserted = inserted
	stats.Duplicates = duplicates

	for _, record := range batch {
		if err := p.tracker.MarkProcessed(tracker.KindTweet, record.ID); err != nil {
			p.logger.Error("tracker mark failed", "id", record.ID, "error", err)
		}
	}

	p.metrics.RecordIngest(string(models.SourceTwitterAPI), inserted, duplicates)
	p.logger.Info("tweet run complete",
		"fetched", stats.Fetched, "skipped", stats.Skipped,
		"with_media", stats.WithMedia, "inserted", inserted,
		"duplicates", duplicates)
	return stats, nil
}

func (p *TweetPipeline) buildRecord(
	ctx context.Context,
	id string,
	tweet social.Tweet,
	exclusions []string,
) (models.FeedItem, bool) {
	result, err := p.enricher.ExtractKeywords(ctx, tweet.Text, exclusions)
	if err != nil {
		p.logger.Warn("tweet enrichment failed", "id", id, "error", err)
		p.metrics.RecordEnrichmentFailure(string(models.SourceTwitterAPI))
		result = enrichment.ZeroKeywordResult()
	}

	// Score 0 means "not scored": never pre-junked.
	isJunk := result.Score > 0 && result.Score <= p.cfg.JunkThreshold

	media := extractMedia(tweet)
	handle := "@" + tweet.UserName()
	keywords := models.JoinKeywords(result.Keywords)

	record := models.FeedItem{
		ID:              id,
		SourceType:      models.SourceTypeTweet,
		Source:          models.SourceTwitterAPI,
		CreatedAt:       timeutil.NormalizeOrNow(tweet.CreatedAt),
		Author:          tweet.DisplayName(),
		Sender:          handle,
		SenderTag:       handle,
		Title:           preview(tweet.Text, 100),
		Subject:         preview(tweet.Text, 120),
		ContentText:     tweet.Text,
		EnrichedContent: tweet.Text,
		Themes:          keywords,
		Actors:          keywords,
		AIScore:         result.Score,
		Category:        "tweet",
		Link:            tweet.FirstLink(),
		IsJunk:          isJunk,
	}
	if err := record.SetCustomFields(map[string]any{
		"display_name": tweet.DisplayName(),
		"likes":        tweet.Likes,
		"retweets":     tweet.Retweets,
		"replies":      tweet.Replies,
		"views":        tweet.Views,
		"has_media":    len(media) > 0,
		"media":        media,
		"language":     result.Language,
		"keywords":     result.Keywords,
		"ai_score":     result.Score,
	}); err != nil {
		p.logger.Warn("custom fields encode failed", "id", id, "error", err)
	}
	return record, len(media) > 0
}

// extractMedia keeps photos and the best mp4 variant per video, matching
// what the dashboard can render.
func extractMedia(tweet social.Tweet) []map[string]string {
	var media []map[string]string
	for _, item := range tweet.MediaItems() {
		switch item.Type {
		case "photo":
			if item.MediaURLHTTPS != "" {
				media = append(media, map[string]string{
					"type": "photo",
					"url":  item.MediaURLHTTPS,
				})
			}
		case "video", "animated_gif":
			if best := item.BestVariant(); best != nil {
				media = append(media, map[string]string{
					"type":      item.Type,
					"url":       best.URL,
					"thumbnail": item.MediaURLHTTPS,
				})
			}
		}
	}
	return media
}
