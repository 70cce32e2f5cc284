package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Wirsuchen/wisuchen-sub003/internal/aggregator"
	"github.com/Wirsuchen/wisuchen-sub003/internal/cache"
	"github.com/Wirsuchen/wisuchen-sub003/internal/config"
	"github.com/Wirsuchen/wisuchen-sub003/internal/httpclient"
	"github.com/Wirsuchen/wisuchen-sub003/internal/ratelimit"
	"github.com/Wirsuchen/wisuchen-sub003/internal/scheduler"
	"github.com/Wirsuchen/wisuchen-sub003/internal/server"
	"github.com/Wirsuchen/wisuchen-sub003/internal/sources"
	"github.com/Wirsuchen/wisuchen-sub003/internal/storage"
	syncengine "github.com/Wirsuchen/wisuchen-sub003/internal/sync"
)

func main() {
	initLogger()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	client := httpclient.New(httpclient.Options{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.HTTPMaxRetries,
		Verbose:    true,
	})

	registry := sources.NewRegistry(
		sources.NewAdzuna(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, client),
		sources.NewJooble(cfg.JoobleAPIKey, client),
		sources.NewAwin(cfg.AwinAPIToken, cfg.AwinPublisherID, client),
		sources.NewDealFeed(cfg.DealFeedBaseURL, client),
	)

	searchCache := cache.New()
	sourceRL := ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitWindow)
	callerRL := ratelimit.New(cfg.RateLimitPerMinute, cfg.RateLimitWindow)

	agg := aggregator.New(registry, searchCache, sourceRL, cfg.CacheTTL)
	engine := syncengine.New(registry, store, sourceRL, cfg.SyncQueries)

	if cfg.SyncCronEnabled {
		sched := scheduler.New(engine, cfg.SyncIntervalHours)
		if err := sched.Start(ctx); err != nil {
			slog.Error("failed to start sync scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	srv := server.New(agg, engine, registry, searchCache, sourceRL, callerRL)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("received signal, shutting down gracefully", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
	}()

	slog.Info("listening", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("failed to listen and serve", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newStore picks the storage backend and returns it with its cleanup func.
func newStore(ctx context.Context, cfg *config.Config) (syncengine.OfferStore, func(), error) {
	if cfg.StoreKind == "memory" {
		slog.Warn("using in-memory store, offers will not survive a restart")
		return storage.NewMemory(), func() {}, nil
	}

	pg, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// initLogger mirrors the deployment convention: JSON to stdout by default,
// text when LOG_FORMAT=console.
func initLogger() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if os.Getenv("LOG_FORMAT") == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
