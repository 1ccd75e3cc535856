package feedstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const feedTable = "unified_feed"

var feedColumns = []string{
	"id", "source_type", "source", "created_at", "author", "sender",
	"sender_tag", "title", "subject", "content_text", "content_html",
	"enriched_content", "themes", "actors", "ai_score", "sentiment",
	"category", "market_impact", "link", "parent_id", "story_number",
	"is_junk", "is_attention", "custom_fields",
}

// PostgresStore implements FeedStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// Connect opens the database, configures the pool, and verifies the
// connection.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// NewPostgresStore wraps an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the feed table when absent. There is deliberately no
// primary key on id: the table mirrors the append-only convention where a
// racing duplicate insert is a logged anomaly, not a constraint violation
// that fails a whole batch.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS unified_feed (
    id               TEXT NOT NULL,
    source_type      TEXT NOT NULL,
    source           TEXT NOT NULL,
    created_at       TEXT NOT NULL,
    author           TEXT NOT NULL DEFAULT '',
    sender           TEXT NOT NULL DEFAULT '',
    sender_tag       TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL DEFAULT '',
    subject          TEXT NOT NULL DEFAULT '',
    content_text     TEXT NOT NULL DEFAULT '',
    content_html     TEXT NOT NULL DEFAULT '',
    enriched_content TEXT NOT NULL DEFAULT '',
    themes           TEXT NOT NULL DEFAULT '',
    actors           TEXT NOT NULL DEFAULT '',
    ai_score         DOUBLE PRECISION NOT NULL DEFAULT 0,
    sentiment        TEXT NOT NULL DEFAULT '',
    category         TEXT NOT NULL DEFAULT '',
    market_impact    TEXT NOT NULL DEFAULT '',
    link             TEXT NOT NULL DEFAULT '',
    parent_id        TEXT NOT NULL DEFAULT '',
    story_number     INTEGER NOT NULL DEFAULT 0,
    is_junk          BOOLEAN NOT NULL DEFAULT FALSE,
    is_attention     BOOLEAN NOT NULL DEFAULT FALSE,
    custom_fields    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_unified_feed_id ON unified_feed (id);
CREATE INDEX IF NOT EXISTS idx_unified_feed_created_at ON unified_feed (created_at DESC);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure feed schema: %w", err)
	}
	return nil
}

// ListIDs returns the distinct ids currently in the table.
func (s *PostgresStore) ListIDs(ctx context.Context) (map[string]struct{}, error) {
	query, args, err := psql.Select("DISTINCT id").From(feedTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build id query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan feed id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed ids: %w", err)
	}
	return ids, nil
}

// List returns matching rows, newest created_at first.
func (s *PostgresStore) List(ctx context.Context, q Query) ([]models.FeedItem, error) {
	builder := psql.Select(feedColumns...).
		From(feedTable).
		Where(sq.Eq{"is_junk": q.JunkView}).
		OrderBy("created_at DESC")

	if q.SourceType != "" {
		builder = builder.Where(sq.Eq{"source_type": string(q.SourceType)})
	}
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	var items []models.FeedItem
	for rows.Next() {
		item, err := scanFeedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed rows: %w", err)
	}
	return items, nil
}

// GetByID returns one row, or nil when absent.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.FeedItem, error) {
	query, args, err := psql.Select(feedColumns...).
		From(feedTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed item: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query feed item: %w", err)
		}
		return nil, nil
	}

	item, err := scanFeedItem(rows)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Append inserts the batch in a single multi-row statement.
func (s *PostgresStore) Append(ctx context.Context, items []models.FeedItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := psql.Insert(feedTable).Columns(feedColumns...)
	for _, item := range items {
		builder = builder.Values(
			item.ID, string(item.SourceType), string(item.Source),
			item.CreatedAt, item.Author, item.Sender, item.SenderTag,
			item.Title, item.Subject, item.ContentText, item.ContentHTML,
			item.EnrichedContent, item.Themes, item.Actors, item.AIScore,
			item.Sentiment, item.Category, item.MarketImpact, item.Link,
			item.ParentID, item.StoryNumber, item.IsJunk, item.IsAttention,
			item.CustomFields,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build feed insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append feed rows: %w", err)
	}
	return nil
}

// SetJunk updates the junk flag in place by id.
func (s *PostgresStore) SetJunk(ctx context.Context, id string, junk bool) error {
	query, args, err := psql.Update(feedTable).
		Set("is_junk", junk).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build junk update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update junk flag for %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("no feed row with id %s", id)
	}
	return nil
}

// Stats returns feed summary counts in one aggregate query.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	const query = `
SELECT
    COUNT(*),
    COUNT(*) FILTER (WHERE source = 'email_digest'),
    COUNT(*) FILTER (WHERE source = 'newsbrief_story'),
    COUNT(*) FILTER (WHERE source_type = 'tweet'),
    COUNT(*) FILTER (WHERE ai_score > 0),
    COUNT(*) FILTER (WHERE themes <> '')
FROM unified_feed`

	var stats Stats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalItems,
		&stats.EmailDigests,
		&stats.NewsbriefStories,
		&stats.Tweets,
		&stats.WithAIScores,
		&stats.WithKeywords,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("query feed stats: %w", err)
	}
	return stats, nil
}

func scanFeedItem(rows *sql.Rows) (models.FeedItem, error) {
	var item models.FeedItem
	err := rows.Scan(
		&item.ID, &item.SourceType, &item.Source, &item.CreatedAt,
		&item.Author, &item.Sender, &item.SenderTag, &item.Title,
		&item.Subject, &item.ContentText, &item.ContentHTML,
		&item.EnrichedContent, &item.Themes, &item.Actors, &item.AIScore,
		&item.Sentiment, &item.Category, &item.MarketImpact, &item.Link,
		&item.ParentID, &item.StoryNumber, &item.IsJunk, &item.IsAttention,
		&item.CustomFields,
	)
	if err != nil {
		return models.FeedItem{}, fmt.Errorf("scan feed row: %w", err)
	}
	return item, nil
}
