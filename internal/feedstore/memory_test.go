package feedstore

import (
	"context"
	"testing"

	"github.com/sagenews/sage/internal/models"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	items := []models.FeedItem{
		{
			ID: "digest-1", SourceType: models.SourceTypeEmail,
			Source: models.SourceEmailDigest, CreatedAt: "2026-08-03T08:00:00Z",
			Themes: "inflation • rates",
		},
		{
			ID: "digest-1_story_1", SourceType: models.SourceTypeEmail,
			Source: models.SourceNewsbriefStory, CreatedAt: "2026-08-03T08:00:00Z",
			ParentID: "digest-1", StoryNumber: 1, AIScore: 7,
		},
		{
			ID: "tweet_100", SourceType: models.SourceTypeTweet,
			Source: models.SourceTwitterAPI, CreatedAt: "2026-08-04T10:30:00Z",
			AIScore: 2,
		},
		{
			ID: "tweet_101", SourceType: models.SourceTypeTweet,
			Source: models.SourceTwitterAPI, CreatedAt: "2026-08-02T09:00:00Z",
			AIScore: 8, IsJunk: true,
		},
	}
	if err := store.Append(context.Background(), items); err != nil {
		t.Fatalf("seed append: %v", err)
	}
	return store
}

func TestListFiltersAndSorts(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	all, err := store.List(ctx, Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("default view returned %d rows, want 3", len(all))
	}
	if all[0].ID != "tweet_100" {
		t.Errorf("newest row is %s, want tweet_100", all[0].ID)
	}

	tweets, err := store.List(ctx, Query{SourceType: models.SourceTypeTweet})
	if err != nil {
		t.Fatalf("List tweets: %v", err)
	}
	if len(tweets) != 1 || tweets[0].ID != "tweet_100" {
		t.Errorf("tweet view = %v, want only tweet_100", tweets)
	}

	junk, err := store.List(ctx, Query{JunkView: true})
	if err != nil {
		t.Fatalf("List junk: %v", err)
	}
	if len(junk) != 1 || junk[0].ID != "tweet_101" {
		t.Errorf("junk view = %v, want only tweet_101", junk)
	}

	limited, err := store.List(ctx, Query{Limit: 2})
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited view returned %d rows, want 2", len(limited))
	}
}

func TestGetByID(t *testing.T) {
	store := seedStore(t)
	ctx := context.Background()

	item, err := store.GetByID(ctx, "digest-1_story_1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item == nil || item.ParentID != "digest-1" {
		t.Errorf("got %v, want story with parent digest-1", item)
	}

	missing, err := store.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown id, got %v", missing)
	}
}

func TestSetJunkFlipsAllRowsWithID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Duplicate ids can exist when two writers race; the flag update must
	// cover every copy so the row cannot straddle both views.
	dup := testItem("tweet_dup")
	if err := store.Append(ctx, []models.FeedItem{dup, dup}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := store.SetJunk(ctx, "tweet_dup", true); err != nil {
		t.Fatalf("SetJunk: %v", err)
	}

	junk, _ := store.List(ctx, Query{JunkView: true})
	if len(junk) != 2 {
		t.Errorf("junk view has %d rows, want 2", len(junk))
	}
	active, _ := store.List(ctx, Query{})
	if len(active) != 0 {
		t.Errorf("default view has %d rows, want 0", len(active))
	}

	if err := store.SetJunk(ctx, "tweet_missing", true); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestStatsCounts(t *testing.T) {
	store := seedStore(t)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	want := Stats{
		TotalItems:       4,
		EmailDigests:     1,
		NewsbriefStories: 1,
		Tweets:           2,
		WithAIScores:     3,
		WithKeywords:     1,
	}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
}
