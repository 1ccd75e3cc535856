package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sagenews/sage/internal/auth"
	"github.com/sagenews/sage/internal/config"
	"github.com/sagenews/sage/internal/feedstore"
)

// SetupRoutes wires the dashboard API onto the mux. Reads are public; the
// junk mutation sits behind the auth middleware.
func SetupRoutes(
	mux *http.ServeMux,
	store feedstore.FeedStore,
	authCfg config.AuthConfig,
	logger *slog.Logger,
) {
	feed := NewFeedHandlers(store, logger)
	authHandler := NewAuthHandler(authCfg, logger)
	protect := auth.Middleware(authCfg)

	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/feed", feed.GetFeed)
	mux.HandleFunc("/api/stats", feed.GetStats)
	mux.HandleFunc("/api/items/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/junk") {
			protect(http.HandlerFunc(feed.MarkJunk)).ServeHTTP(w, r)
			return
		}
		feed.GetItem(w, r)
	})
	mux.HandleFunc("/health", feed.Health)
}
