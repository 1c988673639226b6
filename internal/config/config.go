// Package config builds the explicit configuration struct every component
// receives at startup. Nothing outside this package reads the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for one stitcher process.
type Config struct {
	// StreamID identifies the stream; output lives under OutBase.
	StreamID string
	// OutBase is the base output directory for this stream.
	OutBase string

	// SampleRate is the audio sample rate in Hz.
	SampleRate int
	// Channels is the audio channel count (1 or 2).
	Channels int
	// Bitrate is the AAC bitrate passed to the encoder (e.g. "128k").
	Bitrate string

	// SegmentSeconds is the canonical segment duration.
	SegmentSeconds int
	// HistoryHours is the retention horizon.
	HistoryHours int
	// IntervalSeconds is the reconciliation tick period.
	IntervalSeconds int

	// HTTPPort is the port for the manifest/health/metrics server.
	HTTPPort int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string

	// FFmpegBin and FFprobeBin override the tool binaries; empty means PATH.
	FFmpegBin  string
	FFprobeBin string

	// RaftID, RaftBind and RaftPeers enable HA mode when RaftPeers is
	// non-empty; with no peers the process runs standalone.
	RaftID    string
	RaftBind  string
	RaftPeers []string
}

// FromEnv loads an optional .env file and builds a Config from the
// environment, applying defaults for everything unset.
func FromEnv(envFile string) *Config {
	if envFile != "" {
		// Missing .env is fine; system env and defaults still apply.
		_ = godotenv.Load(envFile)
	}

	streamID := getEnv("STREAM_ID", "stream")

	cfg := &Config{
		StreamID:        streamID,
		OutBase:         getEnv("OUT_BASE", filepath.Join("/out", streamID)),
		SampleRate:      getEnvInt("AUDIO_SR", 48000),
		Channels:        getEnvInt("AUDIO_CH", 2),
		Bitrate:         getEnv("AAC_BITRATE", "128k"),
		SegmentSeconds:  getEnvInt("SEG_SECONDS", 60),
		HistoryHours:    getEnvInt("HISTORY_HOURS", 12),
		IntervalSeconds: getEnvInt("STITCH_INTERVAL_SEC", 10),
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		FFmpegBin:       getEnv("FFMPEG_BIN", ""),
		FFprobeBin:      getEnv("FFPROBE_BIN", ""),
		RaftID:          getEnv("RAFT_ID", ""),
		RaftBind:        getEnv("RAFT_BIND", ""),
	}

	if peers := getEnv("RAFT_PEERS", ""); peers != "" {
		for _, p := range strings.Split(peers, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.RaftPeers = append(cfg.RaftPeers, p)
			}
		}
	}

	return cfg
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.StreamID == "" {
		return fmt.Errorf("stream id is required")
	}
	if c.OutBase == "" {
		return fmt.Errorf("output base directory is required")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("channel count must be 1 or 2, got %d", c.Channels)
	}
	if c.SegmentSeconds < 3 {
		return fmt.Errorf("segment duration must be at least 3s, got %d", c.SegmentSeconds)
	}
	if c.HistoryHours <= 0 {
		return fmt.Errorf("history horizon must be positive, got %d", c.HistoryHours)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("stitch interval must be positive, got %d", c.IntervalSeconds)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if len(c.RaftPeers) > 0 {
		if c.RaftID == "" {
			return fmt.Errorf("raft id is required when peers are configured")
		}
		if c.RaftBind == "" {
			return fmt.Errorf("raft bind address is required when peers are configured")
		}
	}
	return nil
}

// HLSDir returns the transport-segment output directory.
func (c *Config) HLSDir() string {
	return filepath.Join(c.OutBase, "hls")
}

// DashDir returns the fragmented-segment output directory.
func (c *Config) DashDir() string {
	return filepath.Join(c.OutBase, "dash")
}

// HeartbeatPath returns the liveness marker location.
func (c *Config) HeartbeatPath() string {
	return filepath.Join(c.OutBase, "stitcher_heartbeat.txt")
}

// WindowMinutes returns the retention horizon expressed in slots.
func (c *Config) WindowMinutes() int {
	return c.HistoryHours * 60
}

// MinOKSeconds returns the shortest acceptable segment duration. A couple of
// seconds of loss is tolerated; anything shorter is replaced.
func (c *Config) MinOKSeconds() float64 {
	return float64(c.SegmentSeconds - 2)
}

// Interval returns the reconciliation period as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
