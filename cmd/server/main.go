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
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codyseavey/cardcatalog/internal/api"
	"github.com/codyseavey/cardcatalog/internal/auth"
	"github.com/codyseavey/cardcatalog/internal/config"
	"github.com/codyseavey/cardcatalog/internal/database"
	"github.com/codyseavey/cardcatalog/internal/metrics"
	"github.com/codyseavey/cardcatalog/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ./config.yaml)")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()

	if err := run(cfg); err != nil {
		zap.L().Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()
	if err := database.Migrate(db); err != nil {
		return err
	}
	store := database.NewStore(db)

	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("set CARDCAT_AUTH_JWT_SECRET: %w", err)
	}

	// Initialize services
	matcher := services.NewEntityMatcher(cfg.Resolution)
	resolver := services.NewAutoResolver(matcher, cfg.Resolution)
	points := services.NewPointsService(cfg.Points, cfg.Review)
	reviews := services.NewBundleReviewService(store, resolver, points, cfg.Review)
	submissions := services.NewSubmissionService(store, resolver, reviews, points, cfg.Resolution)
	catalog := services.NewCatalogSearchService(store, matcher)

	if n, err := store.CountPendingBundles(ctx); err == nil {
		metrics.PendingBundles.Set(float64(n))
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(cfg, api.Services{
		Store:       store,
		Submissions: submissions,
		Reviews:     reviews,
		Catalog:     catalog,
	}, signer)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.String("store", cfg.Store.Driver),
			zap.Float64("confidence_threshold", cfg.Resolution.ConfidenceThreshold),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}
	zap.L().Info("shutting down server")
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	zap.L().Info("server exited")
	return nil
}
