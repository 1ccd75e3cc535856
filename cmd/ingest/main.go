// Command ingest runs the feed ingestion pipelines as one-shot batch jobs,
// the shape a cron entry or Cloud Run job expects. Each subcommand performs a
// single pass and exits non-zero when the pass fails outright.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	_ "github.com/lib/pq"
	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/enrichment"
	"github.com/sagenews/sage/internal/feedstore"
	"github.com/sagenews/sage/internal/ingestion"
	"github.com/sagenews/sage/internal/logging"
	"github.com/sagenews/sage/internal/mailbox"
	"github.com/sagenews/sage/internal/metrics"
	"github.com/sagenews/sage/internal/social"
	"github.com/sagenews/sage/internal/tracker"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ingest",
		Usage: "Run the sage feed ingestion pipelines",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mock-enricher", Usage: "Use the deterministic mock enricher instead of OpenAI"},
		},
		Commands: []*cli.Command{
			digestsCmd(),
			tweetsCmd(),
			junkCmd(),
			allCmd(),
		},
	}
}

// runtime bundles everything a pipeline pass needs. Built once per
// invocation so `ingest all` shares one store connection and tracker.
type runtime struct {
	cfg       config.Config
	settings  config.Settings
	store     feedstore.FeedStore
	tracker   *tracker.Tracker
	inserter  *feedstore.Inserter
	enricher  enrichment.Enricher
	collector *metrics.Collector
	logger    *slog.Logger
	close     func()
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	settings, err := config.LoadSettings(cfg.Ingest.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	db, err := feedstore.Connect(c.Context, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	store := feedstore.NewPostgresStore(db)
	if err := store.EnsureSchema(c.Context); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure feed schema: %w", err)
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var enricher enrichment.Enricher
	if c.Bool("mock-enricher") {
		enricher = enrichment.NewMockEnricher()
	} else {
		openaiEnricher, err := enrichment.NewClient(cfg.Enrichment, logger)
		if err != nil {
			logger.Warn("failed to initialize OpenAI enricher, using mock enricher", "error", err)
			enricher = enrichment.NewMockEnricher()
		} else {
			enricher = openaiEnricher
		}
	}

	return &runtime{
		cfg:       cfg,
		settings:  settings,
		store:     store,
		tracker:   tracker.New(tracker.NewFileStore(cfg.Ingest.TrackerPath)),
		inserter:  feedstore.NewInserter(store, logger),
		enricher:  enricher,
		collector: collector,
		logger:    logger,
		close:     func() { db.Close() },
	}, nil
}

func digestsCmd() *cli.Command {
	return &cli.Command{
		Name:  "digests",
		Usage: "Ingest unseen newsletter digests from the mail directory",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()
			return runDigests(c.Context, rt)
		},
	}
}

func tweetsCmd() *cli.Command {
	return &cli.Command{
		Name:  "tweets",
		Usage: "Ingest unseen tweets from the configured Twitter list",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()
			return runTweets(c.Context, rt)
		},
	}
}

func junkCmd() *cli.Command {
	return &cli.Command{
		Name:  "junk",
		Usage: "Flag low-scoring tweets as junk",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()
			return runJunk(c.Context, rt)
		},
	}
}

func allCmd() *cli.Command {
	return &cli.Command{
		Name:  "all",
		Usage: "Run digests, tweets, then junk classification in one pass",
		Action: func(c *cli.Context) error {
			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := runDigests(c.Context, rt); err != nil {
				return err
			}
			if err := runTweets(c.Context, rt); err != nil {
				return err
			}
			return runJunk(c.Context, rt)
		},
	}
}

func runDigests(ctx context.Context, rt *runtime) error {
	logger := logging.ForComponent(rt.logger, "digest-pipeline")
	mb := mailbox.NewDirMailbox(rt.cfg.Mail, rt.settings, logger)
	pipeline := ingestion.NewDigestPipeline(mb, rt.enricher, rt.tracker, rt.inserter, rt.settings, rt.cfg.Ingest, rt.collector, logger)

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("digest ingestion: %w", err)
	}
	rt.logger.Info("digest ingestion complete",
		"candidates", stats.Candidates,
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates)
	return nil
}

func runTweets(ctx context.Context, rt *runtime) error {
	logger := logging.ForComponent(rt.logger, "tweet-pipeline")
	list, err := social.NewListClient(rt.cfg.Twitter, logger)
	if err != nil {
		return fmt.Errorf("twitter list source: %w", err)
	}
	pipeline := ingestion.NewTweetPipeline(list, rt.enricher, rt.tracker, rt.store, rt.inserter, rt.settings, rt.cfg.Ingest, rt.collector, logger)

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("tweet ingestion: %w", err)
	}
	rt.logger.Info("tweet ingestion complete",
		"fetched", stats.Fetched,
		"skipped", stats.Skipped,
		"with_media", stats.WithMedia,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates)
	return nil
}

func runJunk(ctx context.Context, rt *runtime) error {
	classifier := ingestion.NewJunkClassifier(rt.store, rt.cfg.Ingest, rt.collector, logging.ForComponent(rt.logger, "junk-classifier"))

	stats, err := classifier.Run(ctx)
	if err != nil {
		return fmt.Errorf("junk classification: %w", err)
	}
	rt.logger.Info("junk classification complete",
		"candidates", stats.Candidates,
		"junked", stats.Junked,
		"errors", stats.Errors)
	return nil
}
