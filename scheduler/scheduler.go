// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/tokumei-poll/cliparse"
	"github.com/danielhkuo/tokumei-poll/middleware"
)

// Loop names, used in logs and metrics
const (
	LoopSweep    = "expiry_sweep"
	LoopCleanup  = "retention_cleanup"
	LoopRecovery = "restart_recovery"
)

// Lifecycle is the work each loop performs. Implemented by handlers.PollHandler.
type Lifecycle interface {
	FinalizeExpired(ctx context.Context) (int, error)
	PurgeRetired(ctx context.Context) (int64, error)
	Recover(ctx context.Context) (int, error)
}

// Scheduler owns the background poll loops
type Scheduler struct {
	lc              Lifecycle
	sweepInterval   time.Duration
	cleanupInterval time.Duration
	recover         bool
}

func New(lc Lifecycle, cfg cliparse.Config) *Scheduler {
	s := &Scheduler{
		lc:              lc,
		sweepInterval:   cfg.SweepInterval,
		cleanupInterval: cfg.CleanupInterval,
		recover:         cfg.Recover,
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = 10 * time.Second
	}
	if s.cleanupInterval <= 0 {
		s.cleanupInterval = 24 * time.Hour
	}
	return s
}

// Run performs restart recovery once (when enabled), then runs the expiry
// sweep and retention cleanup until ctx is cancelled. Each loop runs its
// first iteration immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.recover {
		s.runOnce(ctx, LoopRecovery, func(ctx context.Context) error {
			_, err := s.lc.Recover(ctx)
			return err
		})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.loop(ctx, LoopSweep, s.sweepInterval, func(ctx context.Context) error {
			_, err := s.lc.FinalizeExpired(ctx)
			return err
		})
		return nil
	})
	g.Go(func() error {
		s.loop(ctx, LoopCleanup, s.cleanupInterval, func(ctx context.Context) error {
			_, err := s.lc.PurgeRetired(ctx)
			return err
		})
		return nil
	})
	return g.Wait()
}

// Start launches Run in a background goroutine and returns a stop function
// that cancels the loops and waits for them to exit.
func (s *Scheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("scheduler loop started", "loop", name, "interval", interval)
	s.runOnce(ctx, name, fn)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler loop stopped", "loop", name)
			return
		case <-ticker.C:
			s.runOnce(ctx, name, fn)
		}
	}
}

// runOnce runs one iteration. Errors and panics are logged and contained
// so the loop keeps going.
func (s *Scheduler) runOnce(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	runID := uuid.NewString()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		middleware.RecordLoopRun(name, err)
		if err != nil && ctx.Err() == nil {
			slog.Error("scheduler iteration failed", "loop", name, "run_id", runID, "error", err)
			return
		}
		slog.Debug("scheduler iteration done", "loop", name, "run_id", runID, "duration_ms", time.Since(start).Milliseconds())
	}()

	return fn(ctx)
}
