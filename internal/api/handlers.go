// Package api serves the dashboard JSON endpoints: the unified feed, feed
// stats, item detail, and the junk flag mutation.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sagenews/sage/internal/feedstore"
	"github.com/sagenews/sage/internal/models"
)

// FeedHandlers serves the read and flag endpoints over the feed store.
type FeedHandlers struct {
	store  feedstore.FeedStore
	logger *slog.Logger
}

func NewFeedHandlers(store feedstore.FeedStore, logger *slog.Logger) *FeedHandlers {
	return &FeedHandlers{store: store, logger: logger}
}

// FeedResponse wraps a feed listing.
type FeedResponse struct {
	Items     []ItemView `json:"items"`
	Total     int        `json:"total"`
	Timestamp string     `json:"timestamp"`
}

// GetFeed handles GET /api/feed?view=default|junk&source=all|email|tweet.
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := feedstore.Query{
		JunkView: r.URL.Query().Get("view") == "junk",
	}
	switch r.URL.Query().Get("source") {
	case "email":
		query.SourceType = models.SourceTypeEmail
	case "tweet":
		query.SourceType = models.SourceTypeTweet
	}

	items, err := h.store.List(r.Context(), query)
	if err != nil {
		h.logger.Error("feed query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve feed")
		return
	}

	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, formatItem(item))
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, FeedResponse{
		Items:     views,
		Total:     len(views),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// GetStats handles GET /api/stats.
func (h *FeedHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetItem handles GET /api/items/{id}.
func (h *FeedHandlers) GetItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := itemID(r.URL.Path)
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing item id")
		return
	}

	item, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("item query failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, formatDetail(*item))
}

// MarkJunk handles POST /api/items/{id}/junk. The flag is flipped in place;
// content rows themselves are never rewritten.
func (h *FeedHandlers) MarkJunk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := itemID(strings.TrimSuffix(r.URL.Path, "/junk"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing item id")
		return
	}

	item, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("item lookup failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to look up item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	if err := h.store.SetJunk(r.Context(), id, true); err != nil {
		h.logger.Error("junk flag update failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to mark item as junk")
		return
	}

	h.logger.Info("item marked junk", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "marked as junk"})
}

// Health handles GET /health.
func (h *FeedHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// itemID extracts the id segment from /api/items/{id} paths.
func itemID(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/items/")
	if trimmed == path {
		return ""
	}
	return strings.Trim(trimmed, "/")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
