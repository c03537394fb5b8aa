package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/terra-clan/exercise-engine/internal/api"
	"github.com/terra-clan/exercise-engine/internal/cache"
	"github.com/terra-clan/exercise-engine/internal/catalog"
	"github.com/terra-clan/exercise-engine/internal/cleanup"
	"github.com/terra-clan/exercise-engine/internal/config"
	"github.com/terra-clan/exercise-engine/internal/exercises"
	"github.com/terra-clan/exercise-engine/internal/grading"
	"github.com/terra-clan/exercise-engine/internal/services"
	"github.com/terra-clan/exercise-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting exercise-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"auth", cfg.Auth.Enabled,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Load the exercise catalog
	cat, err := catalog.Load(exercises.Content, exercises.ContentDir, exercises.Verifiers())
	if err != nil {
		slog.Error("failed to load exercise catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("exercise catalog loaded", "count", cat.Len())

	if cfg.Verify.SelfCheck {
		failures, err := catalog.SelfCheck(initCtx, cat)
		if err != nil {
			slog.Error("self-check failed to run", "error", err)
			os.Exit(1)
		}
		if len(failures) > 0 {
			for _, f := range failures {
				slog.Error("reference solution does not pass", "slug", f.Slug, "errors", f.Errors)
			}
			os.Exit(1)
		}
		slog.Info("reference solutions verified")
	}

	registry := services.NewRegistry()

	// Attempt storage: PostgreSQL when configured, memory otherwise
	var repo storage.Repository
	if cfg.Database.DSN != "" {
		slog.Info("running database migrations")
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		pg, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			slog.Error("failed to create database repository", "error", err)
			os.Exit(1)
		}
		repo = pg
		slog.Info("database connected successfully")

		postgresProvider, err := services.NewPostgresProvider(cfg.Database.DSN)
		if err != nil {
			slog.Error("failed to create postgres provider", "error", err)
			os.Exit(1)
		}
		defer postgresProvider.Close()
		registry.Register("postgres", postgresProvider)
	} else {
		slog.Warn("DATABASE_DSN not set, attempts are kept in memory")
		repo = storage.NewMemoryRepository(cfg.Auth.Clients...)
	}
	defer repo.Close()

	// Verdict cache: local LRU, shared Redis when configured
	local, err := cache.NewLRU(cfg.Cache.Size)
	if err != nil {
		slog.Error("failed to create verdict cache", "error", err)
		os.Exit(1)
	}
	verdicts := cache.NewTiered(local, nil)

	if cfg.Redis.Address != "" {
		shared, err := cache.NewRedis(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Cache.TTL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer shared.Close()
		verdicts = cache.NewTiered(local, shared)
		registry.Register("redis", services.NewRedisProvider(shared.Client()))
		slog.Info("shared verdict cache enabled", "address", cfg.Redis.Address)
	}

	grader := grading.NewGrader(cat, verdicts, repo, grading.Options{
		MaxSubmissionBytes: cfg.Verify.MaxSubmissionBytes,
		Version:            verdictVersion(cfg.Cache.Version),
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start retention worker
	cleaner := cleanup.NewCleaner(grader, cfg.Retention.MaxAge, cfg.Retention.Interval)
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, cfg.Auth, grader, registry, repo)
	httpServer := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Stop background workers
	cleaner.Stop()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("exercise-engine stopped")
}

// version is set with -ldflags "-X main.version=..."
var version string

// verdictVersion picks the namespace for cached verdicts: the configured
// value, then the linked version, then the VCS revision of the build
func verdictVersion(configured string) string {
	if configured != "" {
		return configured
	}
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}
	return ""
}
