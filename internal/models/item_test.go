package models

import "testing"

func TestFeedItem_Validate(t *testing.T) {
	valid := FeedItem{
		ID:         "tweet_1",
		SourceType: SourceTypeTweet,
		Source:     SourceTwitterAPI,
		CreatedAt:  "2026-01-02T15:04:05Z",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*FeedItem)
	}{
		{"missing id", func(f *FeedItem) { f.ID = "" }},
		{"bad source type", func(f *FeedItem) { f.SourceType = "rss" }},
		{"missing created_at", func(f *FeedItem) { f.CreatedAt = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid
			tt.mutate(&item)
			if err := item.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFeedItem_CustomFieldsRoundTrip(t *testing.T) {
	var item FeedItem
	if err := item.SetCustomFields(map[string]any{"likes": 12.0, "has_media": true}); err != nil {
		t.Fatalf("set custom fields: %v", err)
	}

	fields := item.DecodeCustomFields()
	if fields["likes"] != 12.0 {
		t.Errorf("likes = %v, want 12", fields["likes"])
	}
	if fields["has_media"] != true {
		t.Errorf("has_media = %v, want true", fields["has_media"])
	}
}

func TestFeedItem_DecodeCustomFields_Malformed(t *testing.T) {
	item := FeedItem{CustomFields: "{not json"}
	if fields := item.DecodeCustomFields(); len(fields) != 0 {
		t.Errorf("expected empty map for malformed payload, got %v", fields)
	}
}

func TestJoinKeywords(t *testing.T) {
	got := JoinKeywords([]string{"Fed", "Rates", "Inflation"})
	want := "Fed • Rates • Inflation"
	if got != want {
		t.Errorf("JoinKeywords = %q, want %q", got, want)
	}
	if JoinKeywords(nil) != "" {
		t.Error("nil keywords should render empty")
	}
}

func TestBuildSenderTag(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		source Source
		want   string
	}{
		{"plain sender", "Bloomberg", SourceEmailDigest, "Bloomberg"},
		{"address stripped", `"Reuters" <news@reuters.com>`, SourceEmailDigest, "Reuters"},
		{"newsbrief suffix", "Bloomberg", SourceNewsbriefStory, "Bloomberg - Newsbrief"},
		{"suffix not doubled", "Bloomberg - Newsbrief", SourceNewsbriefStory, "Bloomberg - Newsbrief"},
		{"empty sender", "", SourceTwitterAPI, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSenderTag(tt.sender, tt.source); got != tt.want {
				t.Errorf("BuildSenderTag(%q, %q) = %q, want %q", tt.sender, tt.source, got, tt.want)
			}
		})
	}
}
