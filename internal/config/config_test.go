package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STREAM_ID", "OUT_BASE", "AUDIO_SR", "AUDIO_CH", "AAC_BITRATE",
		"SEG_SECONDS", "HISTORY_HOURS", "STITCH_INTERVAL_SEC", "HTTP_PORT",
		"LOG_LEVEL", "LOG_FORMAT", "FFMPEG_BIN", "FFPROBE_BIN",
		"RAFT_ID", "RAFT_BIND", "RAFT_PEERS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv("")

	if cfg.StreamID != "stream" {
		t.Errorf("StreamID = %q, want stream", cfg.StreamID)
	}
	if cfg.OutBase != filepath.Join("/out", "stream") {
		t.Errorf("OutBase = %q", cfg.OutBase)
	}
	if cfg.SampleRate != 48000 || cfg.Channels != 2 || cfg.Bitrate != "128k" {
		t.Errorf("audio defaults = %d/%d/%s", cfg.SampleRate, cfg.Channels, cfg.Bitrate)
	}
	if cfg.SegmentSeconds != 60 || cfg.HistoryHours != 12 || cfg.IntervalSeconds != 10 {
		t.Errorf("timing defaults = %d/%d/%d", cfg.SegmentSeconds, cfg.HistoryHours, cfg.IntervalSeconds)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if len(cfg.RaftPeers) != 0 {
		t.Errorf("RaftPeers = %v, want none", cfg.RaftPeers)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAM_ID", "radio7")
	t.Setenv("AUDIO_SR", "44100")
	t.Setenv("AUDIO_CH", "1")
	t.Setenv("SEG_SECONDS", "30")
	t.Setenv("HISTORY_HOURS", "6")
	t.Setenv("STITCH_INTERVAL_SEC", "5")
	t.Setenv("RAFT_PEERS", "10.0.0.1:7000, 10.0.0.2:7000")

	cfg := FromEnv("")

	if cfg.StreamID != "radio7" {
		t.Errorf("StreamID = %q", cfg.StreamID)
	}
	if cfg.OutBase != filepath.Join("/out", "radio7") {
		t.Errorf("OutBase = %q, want to track the stream id", cfg.OutBase)
	}
	if cfg.SampleRate != 44100 || cfg.Channels != 1 {
		t.Errorf("audio = %d/%d", cfg.SampleRate, cfg.Channels)
	}
	if cfg.WindowMinutes() != 360 {
		t.Errorf("WindowMinutes = %d, want 360", cfg.WindowMinutes())
	}
	if cfg.MinOKSeconds() != 28 {
		t.Errorf("MinOKSeconds = %v, want 28", cfg.MinOKSeconds())
	}
	if cfg.Interval() != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval())
	}
	if len(cfg.RaftPeers) != 2 || cfg.RaftPeers[1] != "10.0.0.2:7000" {
		t.Errorf("RaftPeers = %v", cfg.RaftPeers)
	}
}

func TestFromEnvIgnoresUnparseableInts(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIO_SR", "not-a-number")

	cfg := FromEnv("")
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want default 48000", cfg.SampleRate)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"bad channels", func(c *Config) { c.Channels = 5 }},
		{"tiny segment", func(c *Config) { c.SegmentSeconds = 1 }},
		{"zero history", func(c *Config) { c.HistoryHours = 0 }},
		{"zero interval", func(c *Config) { c.IntervalSeconds = 0 }},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }},
		{"empty stream", func(c *Config) { c.StreamID = "" }},
		{"peers without id", func(c *Config) { c.RaftPeers = []string{"a:1"}; c.RaftBind = "b:1" }},
		{"peers without bind", func(c *Config) { c.RaftPeers = []string{"a:1"}; c.RaftID = "n1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv("")
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}

func TestPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUT_BASE", "/data/out")

	cfg := FromEnv("")
	if cfg.HLSDir() != filepath.Join("/data/out", "hls") {
		t.Errorf("HLSDir = %q", cfg.HLSDir())
	}
	if cfg.DashDir() != filepath.Join("/data/out", "dash") {
		t.Errorf("DashDir = %q", cfg.DashDir())
	}
	if cfg.HeartbeatPath() != filepath.Join("/data/out", "stitcher_heartbeat.txt") {
		t.Errorf("HeartbeatPath = %q", cfg.HeartbeatPath())
	}
}
