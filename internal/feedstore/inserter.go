package feedstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagenews/sage/internal/models"
)

// Inserter appends feed items while preserving the append-only contract:
// the store itself is the ground truth for what exists, so every batch is
// filtered against the live id set immediately before the insert.
type Inserter struct {
	store  FeedStore
	logger *slog.Logger
}

func NewInserter(store FeedStore, logger *slog.Logger) *Inserter {
	return &Inserter{store: store, logger: logger}
}

// Insert validates the batch, drops rows whose id already exists in the
// store, and appends the remainder in one call. It returns how many rows
// were appended and how many were skipped as duplicates.
func (i *Inserter) Insert(ctx context.Context, items []models.FeedItem) (inserted, duplicates int, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return 0, 0, fmt.Errorf("invalid feed item %q: %w", item.ID, err)
		}
	}

	existing, err := i.store.ListIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list existing ids: %w", err)
	}

	fresh := make([]models.FeedItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := existing[item.ID]; ok {
			duplicates++
			continue
		}
		// A batch can repeat an id when two fetch passes overlap; only
		// the first occurrence is inserted.
		if _, ok := seen[item.ID]; ok {
			duplicates++
			continue
		}
		seen[item.ID] = struct{}{}
		fresh = append(fresh, item)
	}

	if len(fresh) == 0 {
		i.logger.Debug("all items already present", "batch", len(items))
		return 0, duplicates, nil
	}

	if err := i.store.Append(ctx, fresh); err != nil {
		return 0, duplicates, fmt.Errorf("append batch: %w", err)
	}

	i.logger.Info("appended feed items",
		"inserted", len(fresh),
		"duplicates", duplicates,
	)
	return len(fresh), duplicates, nil
}
