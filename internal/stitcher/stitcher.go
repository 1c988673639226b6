package stitcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/altomedia/stitcher/internal/config"
	"github.com/altomedia/stitcher/internal/manifest"
	"github.com/altomedia/stitcher/internal/metrics"
	"github.com/altomedia/stitcher/internal/segment"
	"github.com/altomedia/stitcher/internal/timeline"
)

// CycleSummary describes one completed reconciliation cycle. It feeds the
// cluster record in HA mode and the process logs everywhere.
type CycleSummary struct {
	WindowStart timeline.Slot
	WindowEnd   timeline.Slot
	Slots       int
	RepairedTS  int
	RepairedMP4 int
	Pruned      int
	CompletedAt time.Time
}

// Stitcher runs one full reconcile -> prune -> emit -> heartbeat cycle. The
// scheduler drives it; the cluster manager (when present) gates it.
type Stitcher struct {
	cfg        *config.Config
	reconciler *Reconciler
	pruner     *Pruner
	hls        *manifest.HLS
	dash       *manifest.DASH
	metrics    *metrics.Metrics
	logger     *slog.Logger

	// afterCycle, when set, receives the summary of every successful cycle.
	afterCycle func(CycleSummary)

	// now is the clock; tests pin it.
	now func() time.Time
}

// New wires a stitcher from its parts.
func New(cfg *config.Config, reconciler *Reconciler, pruner *Pruner, hls *manifest.HLS, dash *manifest.DASH, m *metrics.Metrics, logger *slog.Logger) *Stitcher {
	return &Stitcher{
		cfg:        cfg,
		reconciler: reconciler,
		pruner:     pruner,
		hls:        hls,
		dash:       dash,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// OnCycle registers a callback invoked after every successful cycle.
func (s *Stitcher) OnCycle(fn func(CycleSummary)) {
	s.afterCycle = fn
}

// SetClock overrides the wall clock, for tests.
func (s *Stitcher) SetClock(now func() time.Time) {
	s.now = now
}

// RunCycle executes one full reconciliation cycle: compute the window, repair
// every slot, prune expired segments, rewrite both manifests, and touch the
// heartbeat. Repair and prune failures degrade per segment; only manifest or
// heartbeat write failures fail the cycle.
func (s *Stitcher) RunCycle(ctx context.Context) error {
	now := s.now()

	for _, format := range segment.Formats {
		if err := os.MkdirAll(filepath.Join(s.cfg.OutBase, format.Dir()), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	window := timeline.Window(now, s.cfg.WindowMinutes(), timeline.SafetyMarginMinutes)
	if len(window) == 0 {
		return fmt.Errorf("empty window for horizon %dm", s.cfg.WindowMinutes())
	}
	s.metrics.SetWindowSlots(len(window))

	stats := s.reconciler.Reconcile(ctx, window)
	s.metrics.AddRepairs(segment.FormatTS.String(), stats.Repaired[segment.FormatTS])
	s.metrics.AddRepairs(segment.FormatMP4.String(), stats.Repaired[segment.FormatMP4])
	s.metrics.AddRepairFailures(stats.RepairFailures)

	pruned := s.pruner.Prune(window[0], now)
	s.metrics.AddPruneDeletes(pruned)

	if err := s.hls.Emit(window); err != nil {
		return err
	}
	if err := s.dash.Emit(window, now); err != nil {
		return err
	}

	if err := s.writeHeartbeat(now); err != nil {
		return err
	}

	summary := CycleSummary{
		WindowStart: window[0],
		WindowEnd:   window[len(window)-1],
		Slots:       len(window),
		RepairedTS:  stats.Repaired[segment.FormatTS],
		RepairedMP4: stats.Repaired[segment.FormatMP4],
		Pruned:      pruned,
		CompletedAt: now,
	}
	if s.afterCycle != nil {
		s.afterCycle(summary)
	}

	s.logger.Debug("cycle complete",
		"window_start", summary.WindowStart.Key(),
		"window_end", summary.WindowEnd.Key(),
		"repaired_ts", summary.RepairedTS,
		"repaired_mp4", summary.RepairedMP4,
		"repair_failures", stats.RepairFailures,
		"pruned", pruned,
	)
	return nil
}

// writeHeartbeat records the liveness marker external health checks watch.
func (s *Stitcher) writeHeartbeat(now time.Time) error {
	content := now.UTC().Format(time.RFC3339) + "\n"
	if err := os.WriteFile(s.cfg.HeartbeatPath(), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write heartbeat: %w", err)
	}
	return nil
}
