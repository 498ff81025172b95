package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/api"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/auth"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/cache"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/config"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/core"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/logger"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

func main() {
	// Command line flag for catalog seeding
	seedOnly := flag.Bool("seed-only", false, "Load the product and pharmacy catalog into the store and exit")
	flag.Parse()

	if err := run(*seedOnly); err != nil {
		log.Fatal(err)
	}
}

func run(seedOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !seedOnly {
		if err := cfg.RequireSecrets(); err != nil {
			return err
		}
	}

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zl.Info("service starting", zap.String("env", cfg.Env), zap.String("storage", cfg.Storage.Driver))

	ctx := context.Background()

	// Initialize store
	db, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	catalog, err := store.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	seeded, err := store.SeedCatalog(ctx, db, catalog)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	zl.Info("catalog ready", zap.Int("inserted", seeded))

	if seedOnly {
		zl.Info("seed complete, exiting")
		return nil
	}

	// Initialize LLM service
	llm, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.LLM, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}
	defer llm.Close()

	// Redis is optional; without it comparisons and ingredient analyses
	// are simply recomputed.
	var results core.ResultCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.New(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			zl.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer rc.Close()
			results = rc
		}
	}

	index := core.NewProductIndex(db, llm, zl)
	go func() {
		n, err := index.Load(ctx)
		if err != nil {
			zl.Warn("product index not loaded, retrying on chat", zap.Error(err))
			return
		}
		zl.Info("product index loaded", zap.Int("products", n))
	}()

	tokens := auth.NewJWTMaker(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	svc := api.Services{
		Users:           core.NewUserService(db, db, db, tokens, zl),
		Catalog:         core.NewCatalogService(db, zl),
		Analysis:        core.NewAnalysisService(db, llm, zl),
		Progress:        core.NewProgressService(db, zl),
		Recommendations: core.NewRecommendationService(db, db, llm, results, cfg.Redis.CacheTTL, zl),
		Chat:            core.NewChatService(db, llm, index, zl),
	}

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(svc, tokens, zl)
	router := api.NewRouter(apiHandler, api.NewRateLimiter(cfg.Limits.RPS, cfg.Limits.Burst), zl)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	zl.Info("server exited gracefully")
	return nil
}

func openStore(cfg config.Storage) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
