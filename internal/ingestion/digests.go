// Package ingestion holds the batch orchestrators that pull candidates from
// their sources, enrich them, and hand batches to the existence-checked
// inserter. Each run is sequential and rate-limited; a tracker mark only ever
// follows a confirmed successful append.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/enrichment"
	"github.com/sagenews/sage/internal/feedstore"
	"github.com/sagenews/sage/internal/identity"
	"github.com/sagenews/sage/internal/mailbox"
	"github.com/sagenews/sage/internal/metrics"
	"github.com/sagenews/sage/internal/models"
	"github.com/sagenews/sage/internal/timeutil"
	"github.com/sagenews/sage/internal/tracker"
)

// Score recorded for a story whose keyword pass failed. High enough to keep
// the story out of junk range without pretending it was scored highly.
const fallbackStoryScore = 7.0

// DigestStats summarizes one digest run.
type DigestStats struct {
	Candidates int
	Processed  int
	Skipped    int
	Inserted   int
	Duplicates int
}

// DigestPipeline splits newsletter digests into individually enriched story
// rows.
type DigestPipeline struct {
	mailbox  mailbox.Mailbox
	enricher enrichment.Enricher
	tracker  *tracker.Tracker
	inserter *feedstore.Inserter
	settings config.Settings
	cfg      config.IngestConfig
	metrics  *metrics.Collector
	logger   *slog.Logger
	retry    RetryPolicy
	sleep    func(time.Duration)
}

func NewDigestPipeline(
	mb mailbox.Mailbox,
	enricher enrichment.Enricher,
	trk *tracker.Tracker,
	inserter *feedstore.Inserter,
	settings config.Settings,
	cfg config.IngestConfig,
	collector *metrics.Collector,
	logger *slog.Logger,
) *DigestPipeline {
	return &DigestPipeline{
		mailbox:  mb,
		enricher: enricher,
		tracker:  trk,
		inserter: inserter,
		settings: settings,
		cfg:      cfg,
		metrics:  collector,
		logger:   logger,
		retry:    DefaultRetryPolicy(),
		sleep:    time.Sleep,
	}
}

// Run processes every unseen digest candidate. A fetch failure aborts the
// run; per-digest failures are logged and skipped so one bad digest cannot
// block the rest.
func (p *DigestPipeline) Run(ctx context.Context) (DigestStats, error) {
	var stats DigestStats

	var candidates []mailbox.DigestCandidate
	err := Retry(ctx, p.retry, func() error {
		var fetchErr error
		candidates, fetchErr = p.mailbox.FetchCandidates(ctx)
		if fetchErr != nil {
			return NewRetryableError(fetchErr)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("fetch digest candidates: %w", err)
	}
	stats.Candidates = len(candidates)

	exclusions := p.settings.AllExclusions()

	for seq, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		digestID := identity.DigestID(candidate.MessageID, seq+1)
		if p.tracker.IsProcessed(tracker.KindDigest, digestID) {
			p.logger.Debug("digest already processed",
				"id", digestID, "subject", preview(candidate.Subject, 60))
			stats.Skipped++
			continue
		}

		p.logger.Info("processing digest",
			"sender", candidate.Sender, "subject", preview(candidate.Subject, 60))

		drafts, err := p.enricher.ExtractStories(ctx,
			candidate.Subject, candidate.Body(), candidate.Sender)
		if err != nil {
			p.logger.Error("digest enrichment failed",
				"id", digestID, "error", err)
			p.metrics.RecordEnrichmentFailure(string(models.SourceNewsbriefStory))
			continue
		}
		if len(drafts) == 0 {
			p.logger.Warn("no stories extracted from digest", "id", digestID)
			continue
		}

		records := p.buildRecords(ctx, digestID, candidate, drafts, exclusions)

		inserted, duplicates, err := p.inserter.Insert(ctx, records)
		if err != nil {
			// The tracker must not advance here: an unmarked digest is
			// re-attempted next run, and the existence check keeps any
			// partially appended stories from doubling.
			p.logger.Error("digest insert failed", "id", digestID, "error", err)
			continue
		}

		if err := p.tracker.MarkProcessed(tracker.KindDigest, digestID); err != nil {
			p.logger.Error("tracker mark failed", "id", digestID, "error", err)
		}

		p.metrics.RecordIngest(string(models.SourceNewsbriefStory), inserted, duplicates)
		stats.Processed++
		stats.Inserted += inserted
		stats.Duplicates += duplicates

		p.logger.Info("digest done",
			"id", digestID, "stories", len(drafts),
			"inserted", inserted, "duplicates", duplicates)

		p.sleep(p.cfg.ItemDelay)
	}

	p.logger.Info("digest run complete",
		"candidates", stats.Candidates, "processed", stats.Processed,
		"skipped", stats.Skipped, "inserted", stats.Inserted)
	return stats, nil
}

// buildRecords turns a digest and its story drafts into feed rows: one
// parent digest row plus one row per story.
func (p *DigestPipeline) buildRecords(
	ctx context.Context,
	digestID string,
	candidate mailbox.DigestCandidate,
	drafts []enrichment.StoryDraft,
	exclusions []string,
) []models.FeedItem {
	createdAt := timeutil.UTCString(candidate.Date)

	parent := models.FeedItem{
		ID:          digestID,
		SourceType:  models.SourceTypeEmail,
		Source:      models.SourceEmailDigest,
		CreatedAt:   createdAt,
		Author:      candidate.Sender,
		Sender:      candidate.Sender,
		SenderTag:   models.BuildSenderTag(candidate.Sender, models.SourceEmailDigest),
		Title:       candidate.Subject,
		Subject:     candidate.Subject,
		ContentText: candidate.BodyText,
		ContentHTML: candidate.BodyHTML,
		Category:    "digest",
	}

	records := []models.FeedItem{parent}
	for i, draft := range drafts {
		number := i + 1
		storyText := strings.Join(draft.Bullets, "\n")

		themes := models.JoinKeywords(draft.Keywords)
		score := draft.Score
		result, err := p.enricher.ExtractKeywords(ctx, storyText, exclusions)
		if err != nil {
			p.logger.Warn("story keyword extraction failed",
				"digest", digestID, "story", number, "error", err)
			p.metrics.RecordEnrichmentFailure(string(models.SourceNewsbriefStory))
			score = fallbackStoryScore
		} else {
			themes = models.JoinKeywords(result.Keywords)
			score = result.Score
		}

		storySender := fmt.Sprintf("%s - Newsbrief", candidate.Sender)
		record := models.FeedItem{
			ID:              identity.StoryID(digestID, number),
			SourceType:      models.SourceTypeEmail,
			Source:          models.SourceNewsbriefStory,
			CreatedAt:       createdAt,
			Author:          candidate.Sender,
			Sender:          storySender,
			SenderTag:       storySender,
			Title:           fmt.Sprintf("%d. %s", number, draft.Title),
			Subject:         fmt.Sprintf("%s - Story %d", candidate.Subject, number),
			ContentText:     storyText,
			ContentHTML:     renderStoryHTML(draft),
			EnrichedContent: renderStoryHTML(draft),
			Themes:          themes,
			AIScore:         score,
			Category:        "news",
			Link:            draft.Link,
			ParentID:        digestID,
			StoryNumber:     number,
		}
		if err := record.SetCustomFields(map[string]any{
			"digest_subject": candidate.Subject,
		}); err != nil {
			p.logger.Warn("custom fields encode failed",
				"id", record.ID, "error", err)
		}
		records = append(records, record)
	}
	return records
}

func renderStoryHTML(draft enrichment.StoryDraft) string {
	var b strings.Builder
	for _, bullet := range draft.Bullets {
		fmt.Fprintf(&b, "<p>%s</p>\n", bullet)
	}
	if draft.Link != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Read more</a></p>`, draft.Link)
	}
	return strings.TrimSpace(b.String())
}

// preview truncates a log field without splitting runes.
func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
