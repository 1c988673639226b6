// Package media wraps the external probe and encode tools behind capability
// interfaces so the reconciliation logic can run without them.
package media

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/altomedia/stitcher/internal/segment"
)

// Prober reports the on-disk health facts for a segment file. Implementations
// never return an error: a failed probe yields an unknown duration, which the
// classifier tolerates.
type Prober interface {
	Probe(ctx context.Context, path string) segment.ProbeResult
}

const probeTimeout = 15 * time.Second

// FFProber probes files with the ffprobe binary.
type FFProber struct {
	binary string
	logger *slog.Logger
}

// NewFFProber creates a prober using the given ffprobe binary; an empty binary
// falls back to "ffprobe" on PATH.
func NewFFProber(binary string, logger *slog.Logger) *FFProber {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFProber{binary: bin, logger: logger}
}

// Probe stats the file and, when it is non-empty, asks ffprobe for the
// container duration. Any tool or parse failure leaves DurationKnown false.
func (p *FFProber) Probe(ctx context.Context, path string) segment.ProbeResult {
	info, err := os.Stat(path)
	if err != nil {
		return segment.ProbeResult{}
	}

	res := segment.ProbeResult{Exists: true, SizeBytes: info.Size()}
	if res.SizeBytes == 0 {
		return res
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Warn("ffprobe failed",
			"path", path,
			"error", err,
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return res
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		p.logger.Warn("ffprobe returned unparseable duration",
			"path", path,
			"output", strings.TrimSpace(stdout.String()),
		)
		return res
	}

	res.Duration = dur
	res.DurationKnown = true
	return res
}
