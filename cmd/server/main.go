// Package main is the entry point for the 13F portfolio tracker.
// The application reads public SEC Form 13F-HR filings for a roster of
// institutional managers and serves an equal-weighted portfolio of each
// manager's largest holding, plus per-manager holdings detail.
//
// Layout:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Upstream clients (EDGAR, OpenFIGI) behind small interfaces
// - Service layer for the filing pipeline and aggregation
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/thirteenf/internal/config"
	"github.com/aristath/thirteenf/internal/di"
	"github.com/aristath/thirteenf/internal/server"
	"github.com/aristath/thirteenf/pkg/logger"
)

// main is the application entry point. Startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging
// 3. Wires all dependencies via DI container (client_data.db, cache, clients, services, jobs)
// 4. Starts the HTTP server and the job scheduler
// 5. Waits for shutdown signal and performs graceful shutdown
func main() {
	// Load configuration first to get log level
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
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("sec_user_agent", cfg.SECUserAgent).
		Msg("Starting 13F portfolio tracker")

	// Wire all dependencies using DI container
	// Storage is opened first, then clients and pipeline stages, then jobs.
	container, jobs, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Closes the redis client and client_data.db
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing container")
		}
	}()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})
	srv.SetJobs(jobs)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Start scheduler (cache cleanup, portfolio warmup)
	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop scheduler first so no job starts against a closing server
	container.Scheduler.Stop()

	// The HTTP server is given up to 10 seconds to finish in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
