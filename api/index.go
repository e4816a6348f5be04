package handler

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/aurora-borealis222/url-shortener/pkg/adapters/cache"
	"github.com/aurora-borealis222/url-shortener/pkg/adapters/handler"
	"github.com/aurora-borealis222/url-shortener/pkg/adapters/repository/sqlite"
	"github.com/aurora-borealis222/url-shortener/pkg/config"
	"github.com/aurora-borealis222/url-shortener/pkg/core/services"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Note: on serverless hosts db.sqlite is ephemeral unless DATABASE_URL
	// points at a remote libsql/Turso database. The sweeper is not started
	// here; run it from cmd/server alongside a durable store.
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	service := services.NewLinkService(repo, services.NewCodeGenerator(),
		cache.NewMemoryCache(cfg.CacheTTL), cfg.CacheTTL)
	mux = handler.NewRouter(cfg, service, logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
