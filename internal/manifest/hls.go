// Package manifest renders the rolling window into the published streaming
// manifests. Emitters are stateless: each cycle rewrites the full manifest
// from the current window, so pollers never see incremental edits.
package manifest

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/altomedia/stitcher/internal/timeline"
)

const (
	// iso8601Millis matches the instant format the manifests have always
	// carried (millisecond precision, trailing Z).
	iso8601Millis = "2006-01-02T15:04:05.000Z"

	// nominalBandwidth is the advertised audio bitrate hint in bits/s.
	nominalBandwidth = 160000

	// audioCodec is the AAC-LC codec identifier.
	audioCodec = "mp4a.40.2"
)

// HLS renders the segmented playlist and the top-level master playlist for
// the transport-format window.
type HLS struct {
	dir            string
	segmentSeconds int
	logger         *slog.Logger
}

// NewHLS creates an HLS emitter writing into dir.
func NewHLS(dir string, segmentSeconds int, logger *slog.Logger) *HLS {
	return &HLS{dir: dir, segmentSeconds: segmentSeconds, logger: logger}
}

// RenderPlaylist builds the media playlist for the window.
//
// Media sequence stays fixed at 0: segments are addressed by absolute
// slot-key filename, not by position, so the sequence number carries no
// information here. This is intentional, not an oversight.
func (h *HLS) RenderPlaylist(window []timeline.Slot) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString(fmt.Sprintf("#EXT-X-TARGETDURATION:%d\n", h.segmentSeconds))
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	for _, slot := range window {
		// Program date time improves seeking semantics for many clients.
		b.WriteString(fmt.Sprintf("#EXT-X-PROGRAM-DATE-TIME:%s\n", slot.Start().UTC().Format(iso8601Millis)))
		b.WriteString(fmt.Sprintf("#EXTINF:%.3f,\n", float64(h.segmentSeconds)))
		b.WriteString(slot.Key())
		b.WriteString(".ts\n")
	}

	// No #EXT-X-ENDLIST: this is a live window.

	return b.String()
}

// RenderMaster builds the top-level playlist declaring the single audio
// rendition.
func (h *HLS) RenderMaster() string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,CODECS=%q\n", nominalBandwidth, audioCodec))
	b.WriteString("playlist.m3u8\n")

	return b.String()
}

// Emit writes playlist.m3u8 and master.m3u8, replacing both wholesale.
func (h *HLS) Emit(window []timeline.Slot) error {
	if len(window) == 0 {
		return fmt.Errorf("cannot emit playlist for empty window")
	}

	if err := writeFile(filepath.Join(h.dir, "playlist.m3u8"), h.RenderPlaylist(window)); err != nil {
		return fmt.Errorf("write media playlist: %w", err)
	}
	if err := writeFile(filepath.Join(h.dir, "master.m3u8"), h.RenderMaster()); err != nil {
		return fmt.Errorf("write master playlist: %w", err)
	}

	h.logger.Debug("emitted HLS playlists",
		"segments", len(window),
		"first", window[0].Key(),
		"last", window[len(window)-1].Key(),
	)
	return nil
}

// publishInstant renders an instant the way both manifests carry timestamps.
func publishInstant(t time.Time) string {
	return t.UTC().Format(iso8601Millis)
}
