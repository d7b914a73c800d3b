package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/pixelprops/internal/api"
	"github.com/dunamismax/pixelprops/internal/config"
	"github.com/dunamismax/pixelprops/internal/logging"
	"github.com/dunamismax/pixelprops/internal/presets"
	"github.com/dunamismax/pixelprops/internal/queue"
	"github.com/dunamismax/pixelprops/internal/ratelimit"
	"github.com/dunamismax/pixelprops/internal/resolver"
	"github.com/dunamismax/pixelprops/internal/storage"
	"github.com/dunamismax/pixelprops/internal/store"
	"github.com/dunamismax/pixelprops/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	registry, err := presets.NewRegistry(cfg.Images.PresetsFile, logger.Named("presets"))
	if err != nil {
		logger.Fatal("load presets failed", zap.Error(err))
	}
	go func() {
		if err := registry.Watch(ctx); err != nil {
			logger.Warn("presets watcher stopped", zap.Error(err))
		}
	}()

	assetStore, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("asset store setup failed", zap.Error(err))
	}
	defer func() {
		if err := assetStore.Close(); err != nil {
			logger.Warn("asset store close failed", zap.Error(err))
		}
	}()

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close failed", zap.Error(err))
		}
	}()

	deps := api.Deps{
		Logger:       logger,
		Resolver:     resolver.New(cfg.Images, registry),
		Store:        assetStore,
		Queue:        queueClient,
		UserIDHeader: cfg.API.UserIDHeader,
	}

	if storageClient, err := storage.NewClient(storage.Config{
		Endpoint: cfg.Storage.Endpoint,
		Access:   cfg.Storage.AccessKey,
		Secret:   cfg.Storage.SecretKey,
		Bucket:   cfg.Storage.Bucket,
		UseSSL:   cfg.Storage.UseSSL,
	}); err != nil {
		logger.Warn("object storage unavailable, imports disabled", zap.Error(err))
	} else {
		deps.Storage = storageClient
	}

	if cfg.API.RateLimitEnabled {
		redisClient := redis.NewClient(cfg.Queue.RedisOptions())
		defer redisClient.Close()
		limiter, err := ratelimit.NewFixedWindow(redisClient, cfg.API.RateLimitRequests, cfg.API.RateLimitWindow, "")
		if err != nil {
			logger.Fatal("rate limiter setup failed", zap.Error(err))
		}
		deps.RateLimiter = limiter
	}

	app := api.NewServer(deps)
	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      app.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.API.Addr), zap.String("project", cfg.Images.ProjectID), zap.String("dataset", cfg.Images.Dataset))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
