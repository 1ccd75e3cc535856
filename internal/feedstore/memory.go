package feedstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sagenews/sage/internal/models"
)

// MemoryStore is an in-memory FeedStore for tests and local development.
// Like the real table it does not enforce id uniqueness on append.
type MemoryStore struct {
	mu    sync.RWMutex
	items []models.FeedItem

	// AppendErr, when set, is returned by Append to simulate write failure.
	AppendErr error
}

// NewMemoryStore creates an empty in-memory feed store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ListIDs returns the distinct ids currently stored.
func (s *MemoryStore) ListIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.items))
	for _, item := range s.items {
		ids[item.ID] = struct{}{}
	}
	return ids, nil
}

// List returns matching rows, newest created_at first.
func (s *MemoryStore) List(ctx context.Context, query Query) ([]models.FeedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.FeedItem
	for _, item := range s.items {
		if query.SourceType != "" && item.SourceType != query.SourceType {
			continue
		}
		if item.IsJunk != query.JunkView {
			continue
		}
		result = append(result, item)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}
	return result, nil
}

// GetByID returns the first row with the id, or nil.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.FeedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

// Append stores the batch.
func (s *MemoryStore) Append(ctx context.Context, items []models.FeedItem) error {
	if s.AppendErr != nil {
		return s.AppendErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

// SetJunk flips the junk flag of every row with the id.
func (s *MemoryStore) SetJunk(ctx context.Context, id string, junk bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched bool
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsJunk = junk
			matched = true
		}
	}
	if !matched {
		return fmt.Errorf("no feed row with id %s", id)
	}
	return nil
}

// Stats summarizes the stored rows.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalItems: len(s.items)}
	for _, item := range s.items {
		switch item.Source {
		case models.SourceEmailDigest:
			stats.EmailDigests++
		case models.SourceNewsbriefStory:
			stats.NewsbriefStories++
		}
		if item.SourceType == models.SourceTypeTweet {
			stats.Tweets++
		}
		if item.AIScore > 0 {
			stats.WithAIScores++
		}
		if item.Themes != "" {
			stats.WithKeywords++
		}
	}
	return stats, nil
}
