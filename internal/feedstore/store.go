// Package feedstore persists the unified feed table. The table is
// append-only: rows are never deleted or rewritten, and the store does not
// enforce id uniqueness itself — callers run the existence-checked Inserter
// in front of Append. The junk and attention flags are the single sanctioned
// in-place mutation.
package feedstore

import (
	"context"

	"github.com/sagenews/sage/internal/models"
)

// Query filters a feed listing. The zero value lists every non-junk row.
type Query struct {
	// SourceType limits rows to one transport; empty means all.
	SourceType models.SourceType
	// JunkView flips the listing to junked rows only.
	JunkView bool
	// Limit caps the number of rows returned; 0 means no cap.
	Limit int
}

// Stats summarizes the feed for the dashboard.
type Stats struct {
	TotalItems       int `json:"total_items"`
	EmailDigests     int `json:"email_digests"`
	NewsbriefStories int `json:"newsbrief_stories"`
	Tweets           int `json:"tweets"`
	WithAIScores     int `json:"with_ai_scores"`
	WithKeywords     int `json:"with_keywords"`
}

// FeedStore is the boundary to the unified feed table.
type FeedStore interface {
	// ListIDs returns the distinct ids currently in the store. This is the
	// ground truth for existence checks; the tracker only knows what one
	// orchestrator wrote.
	ListIDs(ctx context.Context) (map[string]struct{}, error)

	// List returns rows matching the query, newest created_at first.
	List(ctx context.Context, query Query) ([]models.FeedItem, error)

	// GetByID returns one row, or nil when absent.
	GetByID(ctx context.Context, id string) (*models.FeedItem, error)

	// Append writes a batch of new rows. It never updates existing rows.
	Append(ctx context.Context, items []models.FeedItem) error

	// SetJunk updates the junk flag of the row with the given id in place.
	SetJunk(ctx context.Context, id string, junk bool) error

	// Stats returns feed summary counts.
	Stats(ctx context.Context) (Stats, error)
}
