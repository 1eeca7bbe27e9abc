package core

// scheduler.go provides background scheduling for run maintenance.
//
// Each run schedules its own expiry when it finishes, so the sweep here is
// a backstop: it drops any terminal run that outlived its retention window
// and logs an occupancy snapshot for operators.
//
// The scheduler is designed to be long-running and context-aware for
// graceful shutdown. It logs progress but never fails the application.

import (
	"context"
	"time"
)

// MaintenanceConfig holds configuration for the maintenance scheduler.
// All fields have sensible defaults if zero values are provided.
type MaintenanceConfig struct {
	Retention     time.Duration // how long finished runs stay tracked (default: service retention)
	CheckInterval time.Duration // how often to sweep (default: 5m)
}

// StartMaintenanceScheduler starts a background loop that periodically
// expires finished runs that outlived their retention window.
// It runs immediately on start, then every CheckInterval.
// The scheduler stops when the context is cancelled.
func (s *Service) StartMaintenanceScheduler(ctx context.Context, cfg MaintenanceConfig) {
	if cfg.Retention <= 0 {
		cfg.Retention = s.opts.ResultRetention
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Minute
	}

	s.logger.Info("maintenance scheduler started",
		"retention", cfg.Retention.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	// Run immediately on startup
	s.runMaintenance(cfg.Retention)

	// Then run periodically
	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(cfg.Retention)
		}
	}
}

// runMaintenance performs one sweep over the tracked runs.
func (s *Service) runMaintenance(retention time.Duration) {
	start := time.Now()
	expired := s.expireRuns(retention)

	if expired > 0 {
		s.logger.Info("expired stale runs",
			"count", expired,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	s.logger.Debug("maintenance sweep completed",
		"tracked_runs", s.TrackedRuns(),
		"active_runs", s.ActiveRuns(),
		"history", len(s.history.Recent()),
	)
}

// expireRuns removes terminal runs whose results are older than retention.
func (s *Service) expireRuns(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for id, run := range s.runs {
		run.mu.Lock()
		done := run.result != nil && run.result.CompletedAt.Before(cutoff)
		run.mu.Unlock()

		if done {
			delete(s.runs, id)
			expired++
		}
	}
	return expired
}

// TrackedRuns returns the number of runs currently tracked, finished or not.
func (s *Service) TrackedRuns() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
