package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceType identifies the transport a feed item came from.
type SourceType string

const (
	SourceTypeEmail SourceType = "email"
	SourceTypeTweet SourceType = "tweet"
)

// Source is the finer provenance tag within a source type.
type Source string

const (
	SourceEmailDigest    Source = "email_digest"
	SourceNewsbriefStory Source = "newsbrief_story"
	SourceTwitterAPI     Source = "twitter_api"
)

// FeedItem is one row of the append-only unified feed table. Rows are never
// deleted; the junk and attention flags are the only fields ever updated in
// place.
type FeedItem struct {
	ID              string     `json:"id"`
	SourceType      SourceType `json:"source_type"`
	Source          Source     `json:"source"`
	CreatedAt       string     `json:"created_at"` // RFC3339 UTC, Z suffix
	Author          string     `json:"author"`
	Sender          string     `json:"sender"`
	SenderTag       string     `json:"sender_tag"`
	Title           string     `json:"title"`
	Subject         string     `json:"subject"`
	ContentText     string     `json:"content_text"`
	ContentHTML     string     `json:"content_html"`
	EnrichedContent string     `json:"enriched_content"`
	Themes          string     `json:"themes"` // keywords, bullet-joined
	Actors          string     `json:"actors"`
	AIScore         float64    `json:"ai_score"` // 0 means not yet enriched
	Sentiment       string     `json:"sentiment"`
	Category        string     `json:"category"`
	MarketImpact    string     `json:"market_impact"`
	Link            string     `json:"link"`
	ParentID        string     `json:"parent_id"`
	StoryNumber     int        `json:"story_number"`
	IsJunk          bool       `json:"is_junk"`
	IsAttention     bool       `json:"is_attention"`
	CustomFields    string     `json:"custom_fields"` // JSON-encoded map
}

// Validate checks the invariants a row must satisfy before insertion.
func (f *FeedItem) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("feed item missing id")
	}
	switch f.SourceType {
	case SourceTypeEmail, SourceTypeTweet:
	default:
		return fmt.Errorf("invalid source_type: %q", f.SourceType)
	}
	if f.CreatedAt == "" {
		return fmt.Errorf("feed item %s missing created_at", f.ID)
	}
	return nil
}

// SetCustomFields encodes the given map into the CustomFields column.
func (f *FeedItem) SetCustomFields(fields map[string]any) error {
	if len(fields) == 0 {
		f.CustomFields = ""
		return nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode custom fields: %w", err)
	}
	f.CustomFields = string(raw)
	return nil
}

// DecodeCustomFields parses the CustomFields column back into a map. An empty
// or malformed column yields an empty map rather than an error; the side
// channel is opaque and best-effort by design.
func (f *FeedItem) DecodeCustomFields() map[string]any {
	if strings.TrimSpace(f.CustomFields) == "" {
		return map[string]any{}
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(f.CustomFields), &fields); err != nil {
		return map[string]any{}
	}
	return fields
}

// JoinKeywords renders a keyword slice in the bullet-joined form stored in
// the themes column.
func JoinKeywords(keywords []string) string {
	return strings.Join(keywords, " • ")
}

// BuildSenderTag derives the human-readable source label shown in the feed.
// Email display names arrive as `Name <addr>`; newsbrief stories get a
// "- Newsbrief" suffix.
func BuildSenderTag(sender string, source Source) string {
	if sender == "" {
		return "Unknown"
	}
	name := sender
	if idx := strings.Index(name, "<"); idx >= 0 {
		name = name[:idx]
	}
	name = strings.Trim(strings.TrimSpace(name), `"`)
	if name == "" {
		return "Unknown"
	}
	if strings.Contains(strings.ToLower(string(source)), "newsbrief") &&
		!strings.Contains(name, "Newsbrief") {
		name = name + " - Newsbrief"
	}
	return name
}
