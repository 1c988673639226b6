// Package metrics exposes Prometheus instrumentation for the stitcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for one stitcher process.
type Metrics struct {
	registry             *prometheus.Registry
	cyclesTotal          prometheus.Counter
	cycleFailuresTotal   prometheus.Counter
	repairsTotal         *prometheus.CounterVec
	repairFailuresTotal  prometheus.Counter
	pruneDeletesTotal    prometheus.Counter
	skippedTicksTotal    *prometheus.CounterVec
	cycleDurationSeconds prometheus.Gauge
	windowSlots          prometheus.Gauge
}

// New creates and registers the stitcher's collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	cyclesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stitcher_cycles_total",
		Help: "Total number of completed reconciliation cycles",
	})
	cycleFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stitcher_cycle_failures_total",
		Help: "Total number of reconciliation cycles that ended in error",
	})
	repairsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stitcher_repairs_total",
		Help: "Total number of silent segments synthesized, by delivery format",
	}, []string{"format"})
	repairFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stitcher_repair_failures_total",
		Help: "Total number of failed silence synthesis attempts",
	})
	pruneDeletesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stitcher_prune_deletes_total",
		Help: "Total number of segments deleted by retention pruning",
	})
	skippedTicksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stitcher_skipped_ticks_total",
		Help: "Total number of scheduler ticks skipped, by reason",
	}, []string{"reason"})
	cycleDurationSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stitcher_cycle_duration_seconds",
		Help: "Wall-clock duration of the most recent reconciliation cycle",
	})
	windowSlots := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stitcher_window_slots",
		Help: "Number of slots in the current publication window",
	})

	registry.MustRegister(
		cyclesTotal,
		cycleFailuresTotal,
		repairsTotal,
		repairFailuresTotal,
		pruneDeletesTotal,
		skippedTicksTotal,
		cycleDurationSeconds,
		windowSlots,
	)

	return &Metrics{
		registry:             registry,
		cyclesTotal:          cyclesTotal,
		cycleFailuresTotal:   cycleFailuresTotal,
		repairsTotal:         repairsTotal,
		repairFailuresTotal:  repairFailuresTotal,
		pruneDeletesTotal:    pruneDeletesTotal,
		skippedTicksTotal:    skippedTicksTotal,
		cycleDurationSeconds: cycleDurationSeconds,
		windowSlots:          windowSlots,
	}
}

// IncCycles counts a completed cycle.
func (m *Metrics) IncCycles() {
	m.cyclesTotal.Inc()
}

// IncCycleFailures counts a cycle that ended in error.
func (m *Metrics) IncCycleFailures() {
	m.cycleFailuresTotal.Inc()
}

// AddRepairs counts synthesized segments for a format ("ts" or "mp4").
func (m *Metrics) AddRepairs(format string, n int) {
	m.repairsTotal.WithLabelValues(format).Add(float64(n))
}

// AddRepairFailures counts failed synthesis attempts.
func (m *Metrics) AddRepairFailures(n int) {
	m.repairFailuresTotal.Add(float64(n))
}

// AddPruneDeletes counts segments removed by the pruner.
func (m *Metrics) AddPruneDeletes(n int) {
	m.pruneDeletesTotal.Add(float64(n))
}

// IncSkippedTicks counts a skipped tick ("overlap" or "not_leader").
func (m *Metrics) IncSkippedTicks(reason string) {
	m.skippedTicksTotal.WithLabelValues(reason).Inc()
}

// SetCycleDuration records the wall-clock cost of the last cycle.
func (m *Metrics) SetCycleDuration(d time.Duration) {
	m.cycleDurationSeconds.Set(d.Seconds())
}

// SetWindowSlots records the current window length.
func (m *Metrics) SetWindowSlots(n int) {
	m.windowSlots.Set(float64(n))
}

// Handler returns an http.Handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
