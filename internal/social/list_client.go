// Package social fetches tweet candidates from the TwitterAPI.io list
// endpoint, which proxies the Twitter list timeline without OAuth.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sagenews/sage/internal/config"
)

const defaultBaseURL = "https://api.twitterapi.io"

// Tweet is one entry of the list timeline response.
type Tweet struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	CreatedAt string       `json:"createdAt"`
	Author    TweetAuthor  `json:"author"`
	Entities  TweetEntity  `json:"entities"`
	Extended  *TweetMedia  `json:"extendedEntities"`
	Media     []MediaItem  `json:"media"`
	Likes     int          `json:"likeCount"`
	Retweets  int          `json:"retweetCount"`
	Replies   int          `json:"replyCount"`
	Views     int          `json:"viewCount"`
}

type TweetAuthor struct {
	UserName string `json:"userName"`
	Name     string `json:"name"`
}

type TweetEntity struct {
	URLs []TweetURL `json:"urls"`
}

type TweetURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
}

type TweetMedia struct {
	Media []MediaItem `json:"media"`
}

type MediaItem struct {
	Type          string     `json:"type"`
	MediaURLHTTPS string     `json:"media_url_https"`
	VideoInfo     *VideoInfo `json:"video_info"`
}

type VideoInfo struct {
	Variants []VideoVariant `json:"variants"`
}

type VideoVariant struct {
	ContentType string `json:"content_type"`
	Bitrate     int    `json:"bitrate"`
	URL         string `json:"url"`
}

// DisplayName returns the author's display name, falling back to the handle.
func (t Tweet) DisplayName() string {
	if t.Author.Name != "" {
		return t.Author.Name
	}
	return t.UserName()
}

// UserName returns the author's handle, or "unknown" when absent.
func (t Tweet) UserName() string {
	if t.Author.UserName != "" {
		return t.Author.UserName
	}
	return "unknown"
}

// FirstLink returns the first expanded URL in the tweet, or "".
func (t Tweet) FirstLink() string {
	if len(t.Entities.URLs) == 0 {
		return ""
	}
	u := t.Entities.URLs[0]
	if u.ExpandedURL != "" {
		return u.ExpandedURL
	}
	return u.URL
}

// MediaItems returns the media list, preferring extendedEntities over the
// top-level field the way the API sometimes flattens it.
func (t Tweet) MediaItems() []MediaItem {
	if t.Extended != nil && len(t.Extended.Media) > 0 {
		return t.Extended.Media
	}
	return t.Media
}

// BestVariant picks the highest-bitrate video/mp4 variant, or nil.
func (m MediaItem) BestVariant() *VideoVariant {
	if m.VideoInfo == nil {
		return nil
	}
	var best *VideoVariant
	maxBitrate := -1
	for i, v := range m.VideoInfo.Variants {
		if v.ContentType != "video/mp4" {
			continue
		}
		if v.Bitrate > maxBitrate {
			maxBitrate = v.Bitrate
			best = &m.VideoInfo.Variants[i]
		}
	}
	return best
}

// TwitterList fetches recent tweets from a configured list.
type TwitterList interface {
	FetchTweets(ctx context.Context) ([]Tweet, error)
}

// ListClient is the TwitterAPI.io implementation of TwitterList.
type ListClient struct {
	cfg        config.TwitterConfig
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewListClient(cfg config.TwitterConfig, logger *slog.Logger) (*ListClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("twitter API key is required")
	}
	if cfg.ListID == "" {
		return nil, fmt.Errorf("twitter list id is required")
	}
	return &ListClient{
		cfg:     cfg,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

type listResponse struct {
	Tweets []Tweet `json:"tweets"`
}

// FetchTweets retrieves up to FetchCount tweets from the list timeline.
func (c *ListClient) FetchTweets(ctx context.Context) ([]Tweet, error) {
	endpoint := c.baseURL + "/twitter/list/tweets"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)

	query := url.Values{}
	query.Set("listId", c.cfg.ListID)
	query.Set("count", strconv.Itoa(c.cfg.FetchCount))
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch list tweets: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read list response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter list API returned status %d: %s",
			resp.StatusCode, string(body))
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}

	c.logger.Info("fetched list tweets",
		"list_id", c.cfg.ListID,
		"requested", c.cfg.FetchCount,
		"received", len(parsed.Tweets))
	return parsed.Tweets, nil
}
