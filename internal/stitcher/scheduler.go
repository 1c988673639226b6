package stitcher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/altomedia/stitcher/internal/metrics"
)

// Scheduler runs the reconciliation cycle on a fixed period, forever. A
// cycle's failure is logged and counted, never propagated: the process
// degrades to all-silence rather than stopping.
type Scheduler struct {
	interval time.Duration
	run      func(context.Context) error

	// isLeader gates cycles in HA mode; nil means this node always runs.
	isLeader func() bool

	inFlight atomic.Bool
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewScheduler creates a scheduler driving run every interval.
func NewScheduler(interval time.Duration, run func(context.Context) error, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		run:      run,
		metrics:  m,
		logger:   logger,
	}
}

// SetLeaderCheck installs the HA gate; ticks on non-leaders are skipped and
// counted.
func (s *Scheduler) SetLeaderCheck(isLeader func() bool) {
	s.isLeader = isLeader
}

// Run executes one cycle immediately, then one per tick until the context is
// canceled. If a cycle outlives the interval the colliding tick is skipped,
// not queued, so cycles never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler starting", "interval", s.interval)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.isLeader != nil && !s.isLeader() {
		s.metrics.IncSkippedTicks("not_leader")
		s.logger.Debug("skipping tick, not leader")
		return
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		s.metrics.IncSkippedTicks("overlap")
		s.logger.Warn("skipping tick, previous cycle still running")
		return
	}
	defer s.inFlight.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncCycleFailures()
			s.logger.Error("cycle panicked", "panic", r)
		}
	}()

	start := time.Now()
	if err := s.run(ctx); err != nil {
		s.metrics.IncCycleFailures()
		s.logger.Error("cycle failed", "error", err)
		return
	}

	s.metrics.IncCycles()
	s.metrics.SetCycleDuration(time.Since(start))
}
