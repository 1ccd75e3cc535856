package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Database   DatabaseConfig
	Enrichment EnrichmentConfig
	Mail       MailConfig
	Twitter    TwitterConfig
	Ingest     IngestConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds the feed store connection settings.
type DatabaseConfig struct {
	URL             string
	MaxConnections  int
	ConnMaxLifetime time.Duration
}

// EnrichmentConfig holds LLM API settings.
type EnrichmentConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// MailConfig controls the digest candidate source.
type MailConfig struct {
	Dir         string // directory of .eml files exported by the mail fetcher
	WindowDays  int
	MaxDigests  int
	MinBodySize int
}

// TwitterConfig controls the tweet candidate source.
type TwitterConfig struct {
	APIKey     string
	ListID     string
	FetchCount int
}

// IngestConfig holds shared orchestrator settings.
type IngestConfig struct {
	TrackerPath   string
	SettingsPath  string // optional YAML: allowlist, exclusions, thresholds
	ItemDelay     time.Duration
	JunkThreshold float64
	RunInterval   time.Duration // 0 disables the in-process scheduler
}

// AuthConfig holds dashboard write-endpoint credentials.
type AuthConfig struct {
	JWTSecret     string
	AdminPassword string
	TokenDuration time.Duration
}

const (
	defaultPort            = "8545"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultModel         = "gpt-4o-mini"
	defaultMaxTokens     = 4096
	defaultEnrichTimeout = 60 * time.Second

	defaultWindowDays  = 7
	defaultMaxDigests  = 20
	defaultMinBodySize = 4000

	defaultFetchCount = 30

	defaultTrackerPath   = "processed_ids.json"
	defaultItemDelay     = 1 * time.Second
	defaultJunkThreshold = 3.0

	defaultTokenDuration = 24 * time.Hour
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConnections:  20,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Enrichment: EnrichmentConfig{
			APIKey:    os.Getenv("OPENAI_API_KEY"),
			Model:     getEnv("OPENAI_MODEL", defaultModel),
			MaxTokens: defaultMaxTokens,
			Timeout:   defaultEnrichTimeout,
		},
		Mail: MailConfig{
			Dir:         getEnv("MAIL_DIR", "mail"),
			WindowDays:  defaultWindowDays,
			MaxDigests:  defaultMaxDigests,
			MinBodySize: defaultMinBodySize,
		},
		Twitter: TwitterConfig{
			APIKey:     os.Getenv("TWITTERAPI_KEY"),
			ListID:     os.Getenv("TWITTER_LIST_ID"),
			FetchCount: defaultFetchCount,
		},
		Ingest: IngestConfig{
			TrackerPath:   getEnv("TRACKER_PATH", defaultTrackerPath),
			SettingsPath:  os.Getenv("INGEST_SETTINGS_PATH"),
			ItemDelay:     defaultItemDelay,
			JunkThreshold: defaultJunkThreshold,
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("ADMIN_JWT_SECRET", "change-this-secret"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
			TokenDuration: defaultTokenDuration,
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("ENRICH_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENRICH_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Enrichment.Timeout = d
	}

	if v := os.Getenv("MAIL_WINDOW_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAIL_WINDOW_DAYS: %w", err)
		}
		cfg.Mail.WindowDays = n
	}

	if v := os.Getenv("MAIL_MAX_DIGESTS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAIL_MAX_DIGESTS: %w", err)
		}
		cfg.Mail.MaxDigests = n
	}

	if v := os.Getenv("TWITTER_FETCH_COUNT"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TWITTER_FETCH_COUNT: %w", err)
		}
		cfg.Twitter.FetchCount = n
	}

	if v := os.Getenv("INGEST_ITEM_DELAY_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INGEST_ITEM_DELAY_SECONDS: %w", err)
		}
		cfg.Ingest.ItemDelay = d
	}

	if v := os.Getenv("JUNK_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 10 {
			return Config{}, fmt.Errorf("invalid JUNK_THRESHOLD: must be a float in [0,10]")
		}
		cfg.Ingest.JunkThreshold = f
	}

	if v := os.Getenv("INGEST_INTERVAL_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INGEST_INTERVAL_MINUTES: %w", err)
		}
		cfg.Ingest.RunInterval = time.Duration(n) * time.Minute
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
