package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/altomedia/stitcher/internal/segment"
)

// SilenceParams describe the silent segment to synthesize.
type SilenceParams struct {
	DurationSeconds int
	SampleRate      int
	Channels        int
	Bitrate         string
}

// Synthesizer produces a silent replacement segment at the given path.
type Synthesizer interface {
	Synthesize(ctx context.Context, path string, format segment.Format, params SilenceParams) error
}

const synthesizeTimeout = 60 * time.Second

// FFSynthesizer encodes silent segments with the ffmpeg binary.
type FFSynthesizer struct {
	binary string
	logger *slog.Logger
}

// NewFFSynthesizer creates a synthesizer using the given ffmpeg binary; an
// empty binary falls back to "ffmpeg" on PATH.
func NewFFSynthesizer(binary string, logger *slog.Logger) *FFSynthesizer {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFSynthesizer{binary: bin, logger: logger}
}

// Synthesize encodes a silent AAC segment of the requested duration in the
// target container, creating parent directories as needed.
func (s *FFSynthesizer) Synthesize(ctx context.Context, path string, format segment.Format, params SilenceParams) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create segment dir: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, synthesizeTimeout)
		defer cancel()
	}

	args := silenceArgs(path, format, params)
	cmd := exec.CommandContext(ctx, s.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", format, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// silenceArgs builds the ffmpeg argument list for a silent segment. The
// fragmented form gets +faststart so the index lands at the front of the file.
func silenceArgs(path string, format segment.Format, params SilenceParams) []string {
	layout := "mono"
	if params.Channels == 2 {
		layout = "stereo"
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s", params.SampleRate, layout),
		"-t", strconv.Itoa(params.DurationSeconds),
		"-c:a", "aac",
		"-b:a", params.Bitrate,
		"-ar", strconv.Itoa(params.SampleRate),
		"-ac", strconv.Itoa(params.Channels),
	}

	if format == segment.FormatTS {
		args = append(args, "-f", "mpegts")
	} else {
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, path)
}
