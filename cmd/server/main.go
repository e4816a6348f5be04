package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aurora-borealis222/url-shortener/pkg/adapters/cache"
	"github.com/aurora-borealis222/url-shortener/pkg/adapters/handler"
	"github.com/aurora-borealis222/url-shortener/pkg/adapters/repository/sqlite"
	"github.com/aurora-borealis222/url-shortener/pkg/config"
	"github.com/aurora-borealis222/url-shortener/pkg/core/services"
	"github.com/aurora-borealis222/url-shortener/pkg/ports"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	var linkCache ports.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		linkCache = redisCache
	} else {
		linkCache = cache.NewMemoryCache(cfg.CacheTTL)
	}

	service := services.NewLinkService(repo, services.NewCodeGenerator(), linkCache, cfg.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := services.NewSweeper(repo, logger, cfg.SweepExpiredEvery, cfg.SweepInactiveEvery, cfg.DaysToExpire)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(cfg, service, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
