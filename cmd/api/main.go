package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xelth-com/eckclaims/internal/catalog"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/handlers"
	"github.com/xelth-com/eckclaims/internal/jobs"
	"github.com/xelth-com/eckclaims/internal/logging"
	"github.com/xelth-com/eckclaims/internal/observability"
	"github.com/xelth-com/eckclaims/internal/services/printer"
	"github.com/xelth-com/eckclaims/internal/traffic"
	"github.com/xelth-com/eckclaims/internal/users"
	"github.com/xelth-com/eckclaims/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init("eckclaims", cfg.Log.Level, cfg.Log.Format)
	observability.RegisterMetrics()

	// 2. Initialize database (embedded, external or sqlite)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// 3. Synchronize schema
	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}
	log.Info().Msg("schema synchronized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Services
	hub := websocket.NewHub()
	go hub.Run(ctx)

	products := catalog.NewStore(db.DB)
	jobService := jobs.NewService(
		jobs.NewGormStore(db.DB),
		[]jobs.ResolverOption{jobs.WithLinearChains(cfg.Jobs.LinearChains)},
		jobs.WithProducts(products),
		jobs.WithEvents(hub),
	)

	labels := printer.DefaultLabelConfig()
	if cfg.BaseURL != "" {
		labels.URLPrefix = strings.TrimRight(cfg.BaseURL, "/") + "/jobs/"
	}

	router := handlers.NewRouter(handlers.Deps{
		DB:      db,
		Config:  cfg,
		Jobs:    jobService,
		Catalog: products,
		Users:   users.NewStore(db.DB),
		Traffic: traffic.NewStore(db.DB),
		Hub:     hub,
		Labels:  labels,
	})

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.NodeEnv).Bool("linear_chains", cfg.Jobs.LinearChains).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Close database (this also stops embedded PostgreSQL)
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
	}
	log.Info().Msg("shutdown complete")
}
