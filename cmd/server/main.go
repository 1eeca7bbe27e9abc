package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/reportkit/splitcsv/internal/config"
	"github.com/reportkit/splitcsv/internal/core"
	_ "github.com/reportkit/splitcsv/internal/core/reports" // Register all reports
	"github.com/reportkit/splitcsv/internal/logging"
	"github.com/reportkit/splitcsv/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_concurrent_runs", cfg.Runs.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Create service with config
	service := core.NewService(core.ServiceOptions{
		MaxConcurrentRuns: cfg.Runs.MaxConcurrent,
		AcquireWait:       cfg.Runs.MaxWaitTime,
		RunTimeout:        cfg.Runs.Timeout,
		ResultRetention:   cfg.Runs.Retention,
		HistoryLimit:      cfg.Runs.HistoryLimit,
		MaxUploadBytes:    cfg.Upload.MaxFileSize,
	})

	// Log registered reports
	slog.Info("reports registered", "count", core.ReportCount())

	// Create server with config
	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	// Start maintenance scheduler with config values
	go service.StartMaintenanceScheduler(jobCtx, core.MaintenanceConfig{
		Retention:     cfg.Runs.Retention,
		CheckInterval: cfg.Runs.MaintenanceInterval,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active runs to complete (with timeout)
		limiterStatus := service.LimiterStatus()
		if limiterStatus.Active > 0 {
			slog.Info("waiting for runs to complete", "active", limiterStatus.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
