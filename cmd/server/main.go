package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coop-records-api/internal/api"
	"github.com/coop-records-api/internal/auth"
	"github.com/coop-records-api/internal/config"
	"github.com/coop-records-api/internal/database"
	"github.com/coop-records-api/internal/ingest"
	"github.com/coop-records-api/internal/notify"
	"github.com/coop-records-api/internal/query"
	"github.com/coop-records-api/internal/repository"
	"github.com/coop-records-api/internal/schema"
	"github.com/coop-records-api/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting cooperative records API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "./migrations"
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// Schema reconciliation with static fallback
	fallback, err := schema.LoadFallback(cfg.Schema.FallbackPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Schema.FallbackPath).Msg("Failed to load schema fallback asset")
	}
	reconciler := schema.NewReconciler(repos.Record, fallback, log)

	// Change-notification hub over the table triggers
	hub, err := notify.NewHub(cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open notification listener")
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	// Core services
	resolver := auth.NewResolver(repos.Profile, repos.Record, auth.MasterCredential{
		Identifier: cfg.Auth.MasterIdentifier,
		Secret:     cfg.Auth.MasterSecret,
	}, log)
	tokens := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.SessionTTL)
	builder := query.NewBuilder(repos.Record, log)
	pipeline := ingest.NewPipeline(reconciler, repos.Record, cfg.Import.ChunkSize, rune(cfg.Import.Delimiter[0]), log)
	imports := ingest.NewService(pipeline, repos.Record, repos.Job, 2*time.Second, log)

	// Start background import processor
	imports.StartProcessor(context.Background())

	// Initialize router
	router := api.NewRouter(&api.Deps{
		Resolver:   resolver,
		Tokens:     tokens,
		Builder:    builder,
		Feed:       hub,
		Imports:    imports,
		Records:    repos.Record,
		Reconciler: reconciler,
		DB:         db,
	}, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop background workers
	imports.StopProcessor()
	stopHub()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
