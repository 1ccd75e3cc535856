package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/sagenews/sage/internal/ingestion"
)

// DigestRunner ingests unseen mail digests.
type DigestRunner interface {
	Run(ctx context.Context) (ingestion.DigestStats, error)
}

// TweetRunner ingests unseen list tweets.
type TweetRunner interface {
	Run(ctx context.Context) (ingestion.TweetStats, error)
}

// JunkRunner flags low-scoring tweets.
type JunkRunner interface {
	Run(ctx context.Context) (ingestion.JunkStats, error)
}

// IngestScheduler runs the ingestion pipelines on a fixed interval. Digests
// and tweets run first so a freshly ingested batch is junk-classified in the
// same cycle.
type IngestScheduler struct {
	digests  DigestRunner
	tweets   TweetRunner
	junk     JunkRunner
	logger   *slog.Logger
	stopChan chan struct{}
	interval time.Duration
}

// NewIngestScheduler creates a scheduler over the three pipelines. Any of
// them may be nil, in which case that stage is skipped.
func NewIngestScheduler(
	digests DigestRunner,
	tweets TweetRunner,
	junk JunkRunner,
	interval time.Duration,
	logger *slog.Logger,
) *IngestScheduler {
	return &IngestScheduler{
		digests:  digests,
		tweets:   tweets,
		junk:     junk,
		logger:   logger,
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or the
// context is cancelled.
func (s *IngestScheduler) Start(ctx context.Context) {
	s.logger.Info("starting ingest scheduler", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx)
		case <-s.stopChan:
			s.logger.Info("ingest scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("ingest scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler.
func (s *IngestScheduler) Stop() {
	close(s.stopChan)
}

func (s *IngestScheduler) runCycle(ctx context.Context) {
	start := time.Now()

	if s.digests != nil {
		stats, err := s.digests.Run(ctx)
		if err != nil {
			s.logger.Error("digest ingestion failed", "error", err)
		} else {
			s.logger.Info("digest ingestion complete",
				"candidates", stats.Candidates,
				"processed", stats.Processed,
				"inserted", stats.Inserted,
				"duplicates", stats.Duplicates)
		}
	}

	if s.tweets != nil {
		stats, err := s.tweets.Run(ctx)
		if err != nil {
			s.logger.Error("tweet ingestion failed", "error", err)
		} else {
			s.logger.Info("tweet ingestion complete",
				"fetched", stats.Fetched,
				"inserted", stats.Inserted,
				"duplicates", stats.Duplicates,
				"with_media", stats.WithMedia)
		}
	}

	if s.junk != nil {
		stats, err := s.junk.Run(ctx)
		if err != nil {
			s.logger.Error("junk classification failed", "error", err)
		} else if stats.Candidates > 0 {
			s.logger.Info("junk classification complete",
				"candidates", stats.Candidates,
				"junked", stats.Junked,
				"errors", stats.Errors)
		}
	}

	s.logger.Info("ingest cycle finished", "duration", time.Since(start).Round(time.Millisecond))
}
