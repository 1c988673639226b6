// Package segment defines the media artifacts bound to window slots and their
// health classification.
package segment

import (
	"path/filepath"
)

// Format identifies one of the two delivery forms a slot is published in.
type Format int

const (
	// FormatTS is the continuous-transport form (MPEG-TS), served under hls/.
	FormatTS Format = iota
	// FormatMP4 is the fragmented-container form (faststart MP4), served under dash/.
	FormatMP4
)

// String returns the format name for logging.
func (f Format) String() string {
	if f == FormatTS {
		return "ts"
	}
	return "mp4"
}

// Ext returns the filename extension including the dot.
func (f Format) Ext() string {
	if f == FormatTS {
		return ".ts"
	}
	return ".mp4"
}

// Dir returns the per-format output subdirectory name.
func (f Format) Dir() string {
	if f == FormatTS {
		return "hls"
	}
	return "dash"
}

// Formats lists both delivery formats in the order the reconciler visits them.
var Formats = []Format{FormatTS, FormatMP4}

// Path returns the on-disk location of the segment for a slot key in the
// given format, under the stream's base output directory.
func Path(base string, f Format, key string) string {
	return filepath.Join(base, f.Dir(), key+f.Ext())
}

// ProbeResult is what the health prober reports about a file on disk.
// DurationKnown is false when probing failed or the file does not exist;
// an unknown duration is never an error for callers.
type ProbeResult struct {
	Exists        bool
	SizeBytes     int64
	Duration      float64
	DurationKnown bool
}

// Health classifies a probed segment.
type Health int

const (
	Healthy Health = iota
	Missing
	Empty
	Truncated
)

// String returns the health name for logging.
func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Missing:
		return "missing"
	case Empty:
		return "empty"
	case Truncated:
		return "truncated"
	}
	return "unknown"
}

// Classify derives a segment's health from its probe result. A nonzero-size
// file whose duration could not be probed classifies Healthy: we cannot
// confirm it, but treating it as bad would repair it again every cycle.
func Classify(pr ProbeResult, minOKSeconds float64) Health {
	switch {
	case !pr.Exists:
		return Missing
	case pr.SizeBytes == 0:
		return Empty
	case pr.DurationKnown && pr.Duration < minOKSeconds:
		return Truncated
	}
	return Healthy
}
