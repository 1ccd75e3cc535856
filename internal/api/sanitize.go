package api

import (
	"math"

	"github.com/sagenews/sage/internal/models"
	"github.com/sagenews/sage/internal/timeutil"
)

// Text fields in list responses are previews; the detail endpoint returns
// the full row.
const contentPreviewLimit = 1000

// ItemView is the JSON shape the dashboard consumes. Every field is already
// sanitized: no nulls, no NaN, timestamps in display form.
type ItemView struct {
	ID              string  `json:"id"`
	SourceType      string  `json:"source_type"`
	Source          string  `json:"source"`
	CreatedAt       string  `json:"created_at"`
	Author          string  `json:"author"`
	Title           string  `json:"title"`
	Subject         string  `json:"subject"`
	ContentText     string  `json:"content_text"`
	ContentHTML     string  `json:"content_html"`
	Sender          string  `json:"sender"`
	SenderTag       string  `json:"sender_tag"`
	AIScore         float64 `json:"ai_score"`
	EnrichedContent string  `json:"enriched_content"`
	Actors          string  `json:"actors"`
	Themes          string  `json:"themes"`
	Link            string  `json:"link"`
	IsJunk          bool    `json:"is_junk"`
	IsAttention     bool    `json:"is_attention"`
	CustomFields    string  `json:"custom_fields"`
}

// formatItem builds the list view of one row: preview-truncated text,
// sanitized timestamp, sender tag backfilled when the row predates tagging.
func formatItem(item models.FeedItem) ItemView {
	sender := item.Sender
	if sender == "" {
		sender = item.Author
	}

	senderTag := item.SenderTag
	if senderTag == "" {
		senderTag = models.BuildSenderTag(sender, item.Source)
	}

	enriched := item.EnrichedContent
	if enriched == "" {
		enriched = item.ContentText
	}

	return ItemView{
		ID:              item.ID,
		SourceType:      string(item.SourceType),
		Source:          string(item.Source),
		CreatedAt:       timeutil.SanitizeDisplay(item.CreatedAt),
		Author:          item.Author,
		Title:           item.Title,
		Subject:         item.Subject,
		ContentText:     previewText(item.ContentText, contentPreviewLimit),
		ContentHTML:     item.ContentHTML,
		Sender:          sender,
		SenderTag:       senderTag,
		AIScore:         sanitizeScore(item.AIScore),
		EnrichedContent: enriched,
		Actors:          item.Actors,
		Themes:          item.Themes,
		Link:            item.Link,
		IsJunk:          item.IsJunk,
		IsAttention:     item.IsAttention,
		CustomFields:    item.CustomFields,
	}
}

// formatDetail is formatItem without the content preview cap.
func formatDetail(item models.FeedItem) ItemView {
	view := formatItem(item)
	view.ContentText = item.ContentText
	return view
}

func sanitizeScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

func previewText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
