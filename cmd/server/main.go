package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/brainbites/brainbites-server/internal/config"
	httpdelivery "github.com/brainbites/brainbites-server/internal/delivery/http"
	"github.com/brainbites/brainbites-server/internal/infra/postgres"
	"github.com/brainbites/brainbites-server/internal/infra/sqlite"
	"github.com/brainbites/brainbites-server/internal/logger"
	"github.com/brainbites/brainbites-server/internal/repository"
	"github.com/brainbites/brainbites-server/internal/service"
	"github.com/brainbites/brainbites-server/internal/storage"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		zl.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer cleanup()

	corpus, err := repository.NewCorpusRepository(cfg.CorpusPath)
	if err != nil {
		zl.Fatal("failed to load question corpus", zap.Error(err))
	}
	zl.Info("question corpus loaded",
		zap.Int("questions", len(corpus.All())),
		zap.Strings("categories", corpus.Categories()),
	)

	bank := service.NewQuestionBank(corpus, repository.NewUsedQuestionsRepository(store), zl)

	hub := httpdelivery.NewHub(zl)
	go hub.Run(ctx)

	registry := service.NewRegistry(
		corpus,
		bank,
		repository.NewTimerRepository(store),
		repository.NewScoreRepository(store),
		repository.NewGoalsRepository(store),
		zl,
		service.WithTimeBroadcast(func(deviceID string, available int) {
			hub.BroadcastTime(deviceID, available, service.FormatSeconds(available))
		}),
	)

	if cfg.Retention.Enabled {
		startRetentionJob(ctx, cfg, store, zl)
	}

	handler := httpdelivery.NewHandler(registry, hub, zl)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zl.Info("api server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("api server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server shutdown incomplete", zap.Error(err))
	}
}

// newStore builds the configured blob store backend and its cleanup func.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		kv, err := postgres.NewKV(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return kv, pool.Close, nil

	case "sqlite":
		kv, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil

	default:
		return storage.NewMemory(), func() {}, nil
	}
}

// startRetentionJob schedules the nightly purge of devices that have not
// written in the retention window. Ledger calendar resets stay lazy; this is
// pure housekeeping.
func startRetentionJob(ctx context.Context, cfg *config.Config, store storage.Store, zl *zap.Logger) {
	purger, ok := store.(storage.Purger)
	if !ok {
		zl.Info("storage backend does not support retention purge")
		return
	}

	olderThan := time.Duration(cfg.Retention.StaleDays) * 24 * time.Hour

	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc("30 3 * * *", func() {
		purged, err := purger.PurgeStale(ctx, olderThan)
		if err != nil {
			zl.Error("retention purge failed", zap.Error(err))
			return
		}
		if purged > 0 {
			zl.Info("retention purge finished", zap.Int64("blobs", purged))
		}
	})
	if err != nil {
		zl.Error("failed to schedule retention purge", zap.Error(err))
		return
	}

	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}
