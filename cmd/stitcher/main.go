// The stitcher command maintains a rolling window of audio segments for a
// live stream and publishes it as HLS and DASH manifests, synthesizing
// silence for any slot the upstream producer missed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/altomedia/stitcher/internal/cluster"
	"github.com/altomedia/stitcher/internal/config"
	"github.com/altomedia/stitcher/internal/manifest"
	"github.com/altomedia/stitcher/internal/media"
	"github.com/altomedia/stitcher/internal/metrics"
	"github.com/altomedia/stitcher/internal/server"
	"github.com/altomedia/stitcher/internal/stitcher"
)

const version = "1.0.0"

func main() {
	var (
		envFile     = flag.String("env-file", ".env", "Optional env file with configuration overrides")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Stitcher - rolling-window audio segment publisher v%s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Configuration comes from the environment (optionally via an env file):\n")
		fmt.Fprintf(os.Stderr, "  STREAM_ID, OUT_BASE, AUDIO_SR, AUDIO_CH, AAC_BITRATE,\n")
		fmt.Fprintf(os.Stderr, "  SEG_SECONDS, HISTORY_HOURS, STITCH_INTERVAL_SEC, HTTP_PORT,\n")
		fmt.Fprintf(os.Stderr, "  LOG_LEVEL, LOG_FORMAT, FFMPEG_BIN, FFPROBE_BIN,\n")
		fmt.Fprintf(os.Stderr, "  RAFT_ID, RAFT_BIND, RAFT_PEERS\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("stitcher v%s\n", version)
		os.Exit(0)
	}

	cfg := config.FromEnv(*envFile)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("stitcher starting",
		"version", version,
		"stream", cfg.StreamID,
		"window_minutes", cfg.WindowMinutes(),
		"segment_seconds", cfg.SegmentSeconds,
		"interval", cfg.Interval(),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("application error", "error", err)
		os.Exit(1)
	}

	logger.Info("stitcher stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New()

	prober := media.NewFFProber(cfg.FFprobeBin, logger)
	synth := media.NewFFSynthesizer(cfg.FFmpegBin, logger)

	reconciler := stitcher.NewReconciler(cfg, prober, synth, logger)
	pruner := stitcher.NewPruner(cfg, logger)
	hls := manifest.NewHLS(cfg.HLSDir(), cfg.SegmentSeconds, logger)
	dash := manifest.NewDASH(cfg.DashDir(), cfg.SegmentSeconds, cfg.HistoryHours, cfg.SampleRate, cfg.Channels, logger)

	st := stitcher.New(cfg, reconciler, pruner, hls, dash, m, logger)
	sched := stitcher.NewScheduler(cfg.Interval(), st.RunCycle, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal", "signal", sig)
		cancel()
	}()

	var cm *cluster.Manager
	if len(cfg.RaftPeers) > 0 {
		var err error
		cm, err = cluster.NewManager(cluster.Config{
			NodeID:   cfg.RaftID,
			BindAddr: cfg.RaftBind,
			Peers:    cfg.RaftPeers,
		}, logger)
		if err != nil {
			return fmt.Errorf("create cluster: %w", err)
		}
		if err := cm.Start(ctx); err != nil {
			return fmt.Errorf("start cluster: %w", err)
		}
		defer cm.Shutdown()

		sched.SetLeaderCheck(cm.IsLeader)
		st.OnCycle(func(sum stitcher.CycleSummary) {
			rec := cluster.CycleRecord{
				WindowStartKey: sum.WindowStart.Key(),
				WindowEndKey:   sum.WindowEnd.Key(),
				Slots:          sum.Slots,
				RepairedTS:     sum.RepairedTS,
				RepairedMP4:    sum.RepairedMP4,
				Pruned:         sum.Pruned,
				CompletedAt:    sum.CompletedAt,
			}
			if err := cm.RecordCycle(rec); err != nil {
				logger.Warn("failed to record cycle in cluster", "error", err)
			}
		})

		logger.Info("HA mode enabled", "node", cfg.RaftID, "peers", strings.Join(cfg.RaftPeers, ","))
	}

	go sched.Run(ctx)

	srv := server.New(cfg, m, cm, logger)

	logger.Info("stream ready",
		"playlist", fmt.Sprintf("http://localhost:%d/hls/playlist.m3u8", cfg.HTTPPort),
		"mpd", fmt.Sprintf("http://localhost:%d/dash/manifest.mpd", cfg.HTTPPort),
		"health", fmt.Sprintf("http://localhost:%d/healthz", cfg.HTTPPort),
	)

	return srv.Start(ctx)
}

// newLogger builds the process logger from the configured level and format.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.ToLower(format) == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(h)
}
