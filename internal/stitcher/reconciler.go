// Package stitcher contains the reconciliation engine: window repair,
// retention pruning, and the cycle scheduler that drives them.
package stitcher

import (
	"context"
	"log/slog"
	"os"

	"github.com/altomedia/stitcher/internal/config"
	"github.com/altomedia/stitcher/internal/media"
	"github.com/altomedia/stitcher/internal/segment"
	"github.com/altomedia/stitcher/internal/timeline"
)

// Reconciler walks the current window and makes sure every slot has a healthy
// segment in both delivery formats, synthesizing silence where it does not.
type Reconciler struct {
	base         string
	minOKSeconds float64
	params       media.SilenceParams
	prober       media.Prober
	synth        media.Synthesizer
	logger       *slog.Logger
}

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	// Repaired counts synthesized segments per format.
	Repaired map[segment.Format]int
	// RepairFailures counts slots left unhealthy this cycle; they are
	// retried on the next tick since the file stays absent.
	RepairFailures int
}

// NewReconciler creates a reconciler for the configured stream.
func NewReconciler(cfg *config.Config, prober media.Prober, synth media.Synthesizer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		base:         cfg.OutBase,
		minOKSeconds: cfg.MinOKSeconds(),
		params: media.SilenceParams{
			DurationSeconds: cfg.SegmentSeconds,
			SampleRate:      cfg.SampleRate,
			Channels:        cfg.Channels,
			Bitrate:         cfg.Bitrate,
		},
		prober: prober,
		synth:  synth,
		logger: logger,
	}
}

// Reconcile visits every slot in chronological order and repairs unhealthy
// segments. Repair is attempted at most once per format per slot; a failed
// repair is left for the next cycle. Reconcile never fails as a whole --
// individual failures are logged and counted.
func (r *Reconciler) Reconcile(ctx context.Context, window []timeline.Slot) ReconcileStats {
	stats := ReconcileStats{Repaired: make(map[segment.Format]int)}

	for _, slot := range window {
		for _, format := range segment.Formats {
			r.reconcileSegment(ctx, slot, format, &stats)
		}
	}

	return stats
}

func (r *Reconciler) reconcileSegment(ctx context.Context, slot timeline.Slot, format segment.Format, stats *ReconcileStats) {
	path := segment.Path(r.base, format, slot.Key())

	probe := r.prober.Probe(ctx, path)
	health := segment.Classify(probe, r.minOKSeconds)

	switch health {
	case segment.Healthy:
		return
	case segment.Empty, segment.Truncated:
		r.logger.Warn("replacing bad segment with silence",
			"slot", slot.Key(),
			"format", format.String(),
			"health", health.String(),
			"size", probe.SizeBytes,
			"duration", probe.Duration,
		)
		if err := os.Remove(path); err != nil {
			// The bad file is still in place, so synthesis would not
			// help; leave it for the next cycle.
			r.logger.Error("failed to delete bad segment", "path", path, "error", err)
			stats.RepairFailures++
			return
		}
	case segment.Missing:
		r.logger.Warn("segment missing, creating silence",
			"slot", slot.Key(),
			"format", format.String(),
		)
	}

	if err := r.synth.Synthesize(ctx, path, format, r.params); err != nil {
		r.logger.Error("silence synthesis failed",
			"slot", slot.Key(),
			"format", format.String(),
			"error", err,
		)
		stats.RepairFailures++
		return
	}

	stats.Repaired[format]++
}
