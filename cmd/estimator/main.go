// Package main is the entry point for the qpricing estimation service.
//
// The service exposes the analytic amplitude estimation backend over HTTP so
// that qpricing clients configured with ESTIMATOR_BACKEND=remote can offload
// estimation to a shared host. With HISTORY_DB set it also serves the run
// journal at GET /api/runs.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/qpricing/internal/config"
	"github.com/aristath/qpricing/internal/modules/estimation"
	"github.com/aristath/qpricing/internal/modules/history"
	"github.com/aristath/qpricing/internal/server"
	"github.com/aristath/qpricing/pkg/logger"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

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
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("version", version).
		Int("port", cfg.Estimator.Port).
		Msg("Starting qpricing estimation service")

	srvCfg := server.Config{
		Log:       log,
		Estimator: estimation.NewAnalyticEstimator(log),
		Port:      cfg.Estimator.Port,
		DevMode:   cfg.LogLevel == "debug",
		Version:   version,
	}

	// Runs journaled by qpricing on this host are served read-only
	if cfg.HistoryDB != "" {
		db, err := history.OpenJournal(context.Background(), cfg.HistoryDB, log)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.HistoryDB).Msg("Run journal disabled")
		} else {
			defer db.Close()
			srvCfg.Runs = history.NewRepository(db.Conn(), log)
			srvCfg.Journal = db.QuickCheck
		}
	}

	srv := server.New(srvCfg)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
