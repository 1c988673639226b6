package media

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/altomedia/stitcher/internal/segment"
)

func TestSilenceArgsTS(t *testing.T) {
	params := SilenceParams{DurationSeconds: 60, SampleRate: 48000, Channels: 2, Bitrate: "128k"}

	got := silenceArgs("/out/hls/0930.ts", segment.FormatTS, params)
	want := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=48000:cl=stereo",
		"-t", "60",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "48000",
		"-ac", "2",
		"-f", "mpegts",
		"/out/hls/0930.ts",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("silenceArgs(ts) = %v, want %v", got, want)
	}
}

func TestSilenceArgsMP4Mono(t *testing.T) {
	params := SilenceParams{DurationSeconds: 30, SampleRate: 44100, Channels: 1, Bitrate: "96k"}

	got := silenceArgs("/out/dash/0930.mp4", segment.FormatMP4, params)
	want := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", "30",
		"-c:a", "aac",
		"-b:a", "96k",
		"-ar", "44100",
		"-ac", "1",
		"-movflags", "+faststart",
		"/out/dash/0930.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("silenceArgs(mp4) = %v, want %v", got, want)
	}
}

func TestFakeProber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0930.ts")
	prober := NewFakeProber()

	res := prober.Probe(context.Background(), path)
	if res.Exists {
		t.Error("probe of missing file reports Exists")
	}

	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	res = prober.Probe(context.Background(), path)
	if !res.Exists || res.SizeBytes != 4 {
		t.Errorf("probe = %+v, want exists with 4 bytes", res)
	}
	if res.DurationKnown {
		t.Error("duration known without a SetDuration entry")
	}

	prober.SetDuration(path, 59.5)
	res = prober.Probe(context.Background(), path)
	if !res.DurationKnown || res.Duration != 59.5 {
		t.Errorf("probe = %+v, want duration 59.5", res)
	}
}

func TestFakeSynthesizer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hls", "0930.ts")
	synth := NewFakeSynthesizer()
	params := SilenceParams{DurationSeconds: 60, SampleRate: 48000, Channels: 2, Bitrate: "128k"}

	if err := synth.Synthesize(context.Background(), path, segment.FormatTS, params); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("synthesized file missing: %v", err)
	}
	if calls := synth.Calls(); len(calls) != 1 || calls[0].Path != path {
		t.Errorf("calls = %+v, want one call for %s", calls, path)
	}

	synth.Fail(true)
	other := filepath.Join(dir, "hls", "0931.ts")
	if err := synth.Synthesize(context.Background(), other, segment.FormatTS, params); err == nil {
		t.Error("Synthesize succeeded with Fail(true)")
	}
	if _, err := os.Stat(other); err == nil {
		t.Error("failed synthesis still wrote a file")
	}
}
