// Package main is the entry point for the replica server. It loads the model
// config, restores or computes the replicating portfolio, and serves the
// latest results over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/replica/internal/config"
	"github.com/aristath/replica/internal/di"
	"github.com/aristath/replica/internal/modules/runs"
	"github.com/aristath/replica/internal/server"
	"github.com/aristath/replica/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
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
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Str("model", cfg.ModelConfig).Msg("Starting replica")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	defer container.Close()

	// A stored run is served as-is after a restart; compute one only when the
	// database is empty.
	if _, err := container.RunService.Latest(context.Background()); errors.Is(err, runs.ErrNotReady) {
		go func() {
			if err := container.RefreshJob.Run(); err != nil {
				log.Error().Err(err).Msg("Initial pipeline run failed")
			}
		}()
	} else if err != nil {
		log.Warn().Err(err).Msg("Failed to read stored runs")
	} else {
		log.Info().Msg("Serving last stored run")
	}

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Runs:    container.RunService,
		DB:      container.RunsDB,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for a scheduled run in progress
	container.Scheduler.Stop()

	log.Info().Msg("Server stopped")
}
