// Package main is the entry point for the portfolio rebalancing service.
// It analyzes mutual fund portfolios against a target allocation and plans
// tax-aware sell/buy actions to close the gaps.
//
// Startup sequence:
//   - Load configuration from environment variables (.env) and the optional policy file
//   - Wire databases, the fund metrics client and the analysis service via the DI container
//   - Start the maintenance scheduler and the HTTP server
//   - Wait for SIGINT/SIGTERM and shut down gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/config"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/di"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/modules/analysis/handlers"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/server"
	"github.com/Vedpalnitk/sparrow-invest-sub003/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.DevMode,
		Service: "rebalancer",
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("model_version", analysis.ModelVersion).
		Msg("Starting portfolio rebalancer")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close databases")
		}
	}()

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:                log,
		Port:               cfg.Port,
		DevMode:            cfg.DevMode,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Analysis:           newAnalysisHandler(container, log),
		System:             newSystemHandlers(container, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight analyses get up to 10 seconds to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newAnalysisHandler keeps the snapshot store a true nil interface when auditing is off
func newAnalysisHandler(c *di.Container, log zerolog.Logger) *handlers.Handler {
	var snapshots handlers.SnapshotStore
	if c.SnapshotRepo != nil {
		snapshots = c.SnapshotRepo
	}
	return handlers.NewHandler(c.AnalysisService, snapshots, log)
}

func newSystemHandlers(c *di.Container, log zerolog.Logger) *server.SystemHandlers {
	cfg := server.SystemHandlersConfig{
		Log:          log,
		ModelVersion: analysis.ModelVersion,
		StartedAt:    c.StartedAt,
		Cache:        c.ClientDataRepo,
		Jobs:         c.Scheduler,
	}
	for _, db := range c.Databases() {
		cfg.Databases = append(cfg.Databases, db)
	}
	if c.SnapshotRepo != nil {
		cfg.Snapshots = c.SnapshotRepo
	}
	return server.NewSystemHandlers(cfg)
}
