// Package main is the entry point for the functional time-series forecasting
// service. It serves the forecasting HTTP and websocket API, stores completed
// runs in sqlite, and prunes old runs on a cron schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/koforecast/internal/config"
	"github.com/aristath/koforecast/internal/database"
	"github.com/aristath/koforecast/internal/modules/forecasting"
	"github.com/aristath/koforecast/internal/scheduler"
	"github.com/aristath/koforecast/internal/server"
	"github.com/aristath/koforecast/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("workers", cfg.Workers).
		Msg("Starting forecasting service")

	db, err := database.New(database.Config{
		Path: cfg.DatabasePath(),
		Name: "forecasts",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	repo := forecasting.NewRepository(db.Conn(), log)
	svc := forecasting.NewService(repo, forecasting.Defaults{
		Workers:   cfg.Workers,
		Threshold: cfg.Threshold,
		Tolerance: &cfg.Tolerance,
	}, log)

	sched := scheduler.New(log)
	cleanup := forecasting.NewCleanupJob(repo, cfg.RunRetention(), log)
	if err := sched.AddJob(cfg.CleanupSchedule, cleanup); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.CleanupSchedule).Msg("Failed to schedule run cleanup")
	}
	if err := sched.AddJob("@hourly", scheduler.NewWALCheckpointJob(log, db)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoint")
	}
	// Prune once at startup as well.
	if err := sched.RunNow(cleanup); err != nil {
		log.Error().Err(err).Msg("Initial run cleanup failed")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:         log,
		DB:          db,
		Forecasting: svc,
		Jobs:        sched,
		Workers:     cfg.Workers,
		Port:        cfg.Port,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
