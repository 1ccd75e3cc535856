package social

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagenews/sage/internal/config"
)

const listPayload = `{
  "tweets": [
    {
      "id": "1901",
      "text": "Fed holds rates steady",
      "createdAt": "Mon Aug 03 14:05:00 +0000 2026",
      "author": {"userName": "macrodesk", "name": "Macro Desk"},
      "entities": {"urls": [{"url": "https://t.co/x", "expanded_url": "https://example.com/fed"}]},
      "likeCount": 42, "retweetCount": 7, "replyCount": 3, "viewCount": 9000,
      "extendedEntities": {
        "media": [
          {"type": "photo", "media_url_https": "https://img.example/p.jpg"},
          {
            "type": "video",
            "media_url_https": "https://img.example/thumb.jpg",
            "video_info": {"variants": [
              {"content_type": "application/x-mpegURL", "url": "https://v.example/pl.m3u8"},
              {"content_type": "video/mp4", "bitrate": 832000, "url": "https://v.example/lo.mp4"},
              {"content_type": "video/mp4", "bitrate": 2176000, "url": "https://v.example/hi.mp4"}
            ]}
          }
        ]
      }
    },
    {"id": "1902", "text": "quiet day", "author": {}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *ListClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewListClient(config.TwitterConfig{
		APIKey: "secret", ListID: "42", FetchCount: 30,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewListClient: %v", err)
	}
	client.baseURL = server.URL
	return client
}

func TestFetchTweets(t *testing.T) {
	var gotPath, gotKey, gotListID, gotCount string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotListID = r.URL.Query().Get("listId")
		gotCount = r.URL.Query().Get("count")
		w.Write([]byte(listPayload))
	})

	tweets, err := client.FetchTweets(context.Background())
	if err != nil {
		t.Fatalf("FetchTweets: %v", err)
	}

	if gotPath != "/twitter/list/tweets" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" || gotListID != "42" || gotCount != "30" {
		t.Errorf("request params = key=%q listId=%q count=%q", gotKey, gotListID, gotCount)
	}
	if len(tweets) != 2 {
		t.Fatalf("got %d tweets, want 2", len(tweets))
	}

	first := tweets[0]
	if first.ID != "1901" || first.DisplayName() != "Macro Desk" || first.UserName() != "macrodesk" {
		t.Errorf("first tweet = %+v", first)
	}
	if first.FirstLink() != "https://example.com/fed" {
		t.Errorf("FirstLink = %q", first.FirstLink())
	}
	if first.Likes != 42 || first.Views != 9000 {
		t.Errorf("engagement = likes=%d views=%d", first.Likes, first.Views)
	}

	second := tweets[1]
	if second.DisplayName() != "unknown" {
		t.Errorf("fallback display name = %q", second.DisplayName())
	}
	if second.FirstLink() != "" {
		t.Errorf("expected empty link, got %q", second.FirstLink())
	}
}

func TestMediaExtraction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listPayload))
	})

	tweets, err := client.FetchTweets(context.Background())
	if err != nil {
		t.Fatalf("FetchTweets: %v", err)
	}

	media := tweets[0].MediaItems()
	if len(media) != 2 {
		t.Fatalf("got %d media items, want 2", len(media))
	}
	if media[0].Type != "photo" || media[0].MediaURLHTTPS != "https://img.example/p.jpg" {
		t.Errorf("photo item = %+v", media[0])
	}

	best := media[1].BestVariant()
	if best == nil {
		t.Fatal("expected an mp4 variant")
	}
	if best.URL != "https://v.example/hi.mp4" {
		t.Errorf("best variant = %q, want highest bitrate mp4", best.URL)
	}

	if media[0].BestVariant() != nil {
		t.Error("photo should carry no video variant")
	}
}

func TestFetchTweetsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	if _, err := client.FetchTweets(context.Background()); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestNewListClientValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewListClient(config.TwitterConfig{ListID: "42"}, logger); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewListClient(config.TwitterConfig{APIKey: "k"}, logger); err == nil {
		t.Error("expected error for missing list id")
	}
}
