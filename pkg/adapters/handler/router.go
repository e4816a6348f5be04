package handler

import (
	"log/slog"
	"net/http"

	"github.com/aurora-borealis222/url-shortener/pkg/config"
	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.LinkService, logger *slog.Logger) http.Handler {
	h := NewHTTPHandler(service, logger)
	mw := NewMiddleware(cfg, logger)
	authHandler := NewAuthHandler(cfg, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})

	// Identity is delegated to Google; these endpoints only exchange it
	// for the auth cookie the middleware reads.
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Public link routes. Literal segments take precedence over {code}.
	mux.HandleFunc("POST /links/shorten", mw.OptionalAuth(h.Shorten))
	mux.HandleFunc("GET /links/search", h.Search)
	mux.HandleFunc("GET /links/{code}", h.Redirect)
	mux.HandleFunc("GET /links/{code}/stats", h.Stats)

	// Owner-scoped routes.
	mux.HandleFunc("GET /links/history_expired", mw.RequireAuth(h.HistoryExpired))
	mux.HandleFunc("GET /links/all", mw.RequireAuth(h.ListAll))
	mux.HandleFunc("DELETE /links/{code}", mw.RequireAuth(h.Delete))
	mux.HandleFunc("PUT /links/{code}", mw.RequireAuth(h.Rotate))

	return mw.RequestLogger(mux)
}
