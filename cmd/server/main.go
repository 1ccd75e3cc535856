package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/sagenews/sage/internal/api"
	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/enrichment"
	"github.com/sagenews/sage/internal/feedstore"
	"github.com/sagenews/sage/internal/ingestion"
	"github.com/sagenews/sage/internal/logging"
	"github.com/sagenews/sage/internal/mailbox"
	"github.com/sagenews/sage/internal/metrics"
	"github.com/sagenews/sage/internal/scheduler"
	"github.com/sagenews/sage/internal/server"
	"github.com/sagenews/sage/internal/social"
	"github.com/sagenews/sage/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logging", "error", err)
		os.Exit(1)
	}
	logger.Info("starting sage dashboard server")

	ctx := context.Background()

	logger.Info("connecting to feed database")
	db, err := feedstore.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := feedstore.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure feed schema", "error", err)
		os.Exit(1)
	}
	logger.Info("feed database ready")

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"sage","status":"ready","version":"0.1.0"}`))
	})

	logger.Info("setting up dashboard API")
	api.SetupRoutes(mux, store, cfg.Auth, logger)
	logger.Info("auth configured", "jwt_secret_set", cfg.Auth.JWTSecret != "change-this-secret")

	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	var ingestSched *scheduler.IngestScheduler
	if cfg.Ingest.RunInterval > 0 {
		ingestSched, err = buildScheduler(cfg, store, collector, logger)
		if err != nil {
			logger.Error("failed to build ingest scheduler", "error", err)
			os.Exit(1)
		}
		go ingestSched.Start(schedCtx)
	} else {
		logger.Info("in-process ingestion disabled, use the ingest command")
	}

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
		if ingestSched != nil {
			ingestSched.Stop()
		}
		cancelSched()
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// buildScheduler wires the three ingestion pipelines against the shared
// store. Sources that are not configured drop out of the cycle instead of
// failing startup: a dashboard with no Twitter key still ingests mail.
func buildScheduler(
	cfg config.Config,
	store feedstore.FeedStore,
	collector *metrics.Collector,
	logger *slog.Logger,
) (*scheduler.IngestScheduler, error) {
	settings, err := config.LoadSettings(cfg.Ingest.SettingsPath)
	if err != nil {
		return nil, err
	}

	trk := tracker.New(tracker.NewFileStore(cfg.Ingest.TrackerPath))
	inserter := feedstore.NewInserter(store, logger)

	var enricher enrichment.Enricher
	openaiEnricher, err := enrichment.NewClient(cfg.Enrichment, logger)
	if err != nil {
		logger.Warn("failed to initialize OpenAI enricher, using mock enricher", "error", err)
		enricher = enrichment.NewMockEnricher()
	} else {
		enricher = openaiEnricher
	}

	digestLogger := logging.ForComponent(logger, "digest-pipeline")
	mb := mailbox.NewDirMailbox(cfg.Mail, settings, digestLogger)
	digests := ingestion.NewDigestPipeline(mb, enricher, trk, inserter, settings, cfg.Ingest, collector, digestLogger)

	var tweets scheduler.TweetRunner
	list, err := social.NewListClient(cfg.Twitter, logger)
	if err != nil {
		logger.Warn("twitter list source not configured, skipping tweet ingestion", "error", err)
	} else {
		tweets = ingestion.NewTweetPipeline(list, enricher, trk, store, inserter, settings, cfg.Ingest, collector, logging.ForComponent(logger, "tweet-pipeline"))
	}

	junk := ingestion.NewJunkClassifier(store, cfg.Ingest, collector, logging.ForComponent(logger, "junk-classifier"))

	return scheduler.NewIngestScheduler(digests, tweets, junk, cfg.Ingest.RunInterval, logger), nil
}
