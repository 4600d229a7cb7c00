package core

// scheduler.go runs background maintenance for the session service.
//
// Browsers rarely tell the server that an upload form went away, so sessions
// that have not been touched for IdleTimeout are closed periodically. The
// loop logs what it evicted and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// JanitorConfig holds configuration for the session janitor.
type JanitorConfig struct {
	IdleTimeout   time.Duration // default 30m
	SweepInterval time.Duration // default 5m
}

func (c JanitorConfig) withDefaults() JanitorConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	return c
}

// StartJanitor evicts idle sessions every SweepInterval until ctx is done.
// It blocks; run it in its own goroutine.
func (s *Service) StartJanitor(ctx context.Context, cfg JanitorConfig) {
	cfg = cfg.withDefaults()
	slog.Info("session janitor started",
		"idle_timeout", cfg.IdleTimeout,
		"sweep_interval", cfg.SweepInterval,
	)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			s.sweep(cfg.IdleTimeout)
		}
	}
}

func (s *Service) sweep(idle time.Duration) {
	start := time.Now()
	evicted := s.EvictIdle(start.Add(-idle))
	if evicted == 0 {
		return
	}
	slog.Info("evicted idle upload sessions",
		"sessions_evicted", evicted,
		"sessions_open", s.SessionCount(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
