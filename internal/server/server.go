// Package server exposes the published output tree, liveness, and metrics
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/altomedia/stitcher/internal/cluster"
	"github.com/altomedia/stitcher/internal/config"
	"github.com/altomedia/stitcher/internal/metrics"
)

// Server serves manifests and segments from the output directories, plus
// /healthz and /metrics.
type Server struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	cluster    *cluster.Manager // nil in standalone mode
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates the HTTP server. cm may be nil when HA mode is off.
func New(cfg *config.Config, m *metrics.Metrics, cm *cluster.Manager, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, metrics: m, cluster: cm, logger: logger}
}

// Start runs the server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler: s.loggingMiddleware(s.routes()),
	}

	go func() {
		s.logger.Info("starting HTTP server", "port", s.cfg.HTTPPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// routes builds the router.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/hls/*", s.serveTree(s.cfg.HLSDir()))
	r.Get("/dash/*", s.serveTree(s.cfg.DashDir()))
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// serveTree serves files under dir, with streaming content types and no-cache
// headers on the manifests clients poll.
func (s *Server) serveTree(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		clean := path.Clean("/" + rel)
		if strings.Contains(clean, "..") {
			http.NotFound(w, r)
			return
		}

		full := filepath.Join(dir, filepath.FromSlash(clean))

		switch filepath.Ext(full) {
		case ".m3u8":
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		case ".mpd":
			w.Header().Set("Content-Type", "application/dash+xml")
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		case ".ts":
			w.Header().Set("Content-Type", "video/mp2t")
		case ".mp4":
			w.Header().Set("Content-Type", "audio/mp4")
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")

		http.ServeFile(w, r, full)
	}
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status       string `json:"status"`
	Heartbeat    string `json:"heartbeat,omitempty"`
	AgeSeconds   int64  `json:"age_seconds,omitempty"`
	ClusterState string `json:"cluster_state,omitempty"`
	LeaderAddr   string `json:"leader_addr,omitempty"`
	Cycles       uint64 `json:"cycles,omitempty"`
}

// handleHealth reports liveness from the heartbeat file. The stitcher is
// healthy while the heartbeat is younger than three tick intervals.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK

	raw, err := os.ReadFile(s.cfg.HeartbeatPath())
	if err != nil {
		resp.Status = "no heartbeat"
		code = http.StatusServiceUnavailable
	} else {
		beat, err := time.Parse(time.RFC3339, strings.TrimSpace(string(raw)))
		if err != nil {
			resp.Status = "bad heartbeat"
			code = http.StatusServiceUnavailable
		} else {
			age := time.Since(beat)
			resp.Heartbeat = beat.UTC().Format(time.RFC3339)
			resp.AgeSeconds = int64(age.Seconds())
			if age > 3*s.cfg.Interval() {
				resp.Status = "stale"
				code = http.StatusServiceUnavailable
			}
		}
	}

	if s.cluster != nil {
		resp.ClusterState = s.cluster.State()
		resp.LeaderAddr = s.cluster.LeaderAddr()
		resp.Cycles = s.cluster.GetState().Cycles
		// Followers do not write heartbeats; a follower with a leader in
		// sight is healthy.
		if resp.Status != "ok" && !s.cluster.IsLeader() && resp.LeaderAddr != "" {
			resp.Status = "standby"
			code = http.StatusOK
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// loggingMiddleware logs each request at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
