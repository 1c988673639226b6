package stitcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/altomedia/stitcher/internal/config"
	"github.com/altomedia/stitcher/internal/segment"
	"github.com/altomedia/stitcher/internal/timeline"
)

// pruneBuffer keeps segments slightly past the window edge so a slot that is
// about to re-enter the window after midnight is not deleted mid-flight.
const pruneBuffer = 5 * time.Minute

// segmentName matches the canonical <HHMM>.<ext> segment filenames. Manifests
// and temp files do not match and are never pruned.
var segmentName = regexp.MustCompile(`^(\d{4})\.(ts|mp4)$`)

// Pruner deletes on-disk segments whose slot has aged out of the retention
// horizon. Pruning is best-effort: deletion errors are logged and swallowed.
type Pruner struct {
	base   string
	logger *slog.Logger
}

// NewPruner creates a pruner for the configured stream.
func NewPruner(cfg *config.Config, logger *slog.Logger) *Pruner {
	return &Pruner{base: cfg.OutBase, logger: logger}
}

// Prune removes segment files older than the oldest window slot minus the
// safety buffer, and returns the number deleted. A file exactly at the cutoff
// is kept.
//
// Filenames carry only HHMM, so each file's instant is reconstructed against
// now's calendar date via the lossy inverse; around midnight a stale key can
// resolve to the wrong day and survive one extra pass, which the buffer and
// the next cycle absorb.
func (p *Pruner) Prune(oldest timeline.Slot, now time.Time) int {
	cutoff := oldest.Start().Add(-pruneBuffer)
	deleted := 0

	for _, format := range segment.Formats {
		dir := filepath.Join(p.base, format.Dir())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			m := segmentName.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}

			instant, err := timeline.InstantForKey(m[1], now)
			if err != nil {
				continue
			}
			if !instant.Before(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				p.logger.Warn("failed to prune segment", "path", path, "error", err)
				continue
			}
			deleted++
		}
	}

	if deleted > 0 {
		p.logger.Info("pruned expired segments", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted
}
