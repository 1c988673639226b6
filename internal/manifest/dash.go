package manifest

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/altomedia/stitcher/internal/timeline"
)

// minimumUpdatePeriod tells clients how often to re-poll the manifest.
const minimumUpdatePeriod = "PT30S"

// DASH renders the dynamic manifest description for the fragmented-format
// window as a flat SegmentList, which stays valid across process restarts and
// silence gap-fill.
type DASH struct {
	dir            string
	segmentSeconds int
	historyHours   int
	sampleRate     int
	channels       int
	logger         *slog.Logger
}

// NewDASH creates a DASH emitter writing into dir.
func NewDASH(dir string, segmentSeconds, historyHours, sampleRate, channels int, logger *slog.Logger) *DASH {
	return &DASH{
		dir:            dir,
		segmentSeconds: segmentSeconds,
		historyHours:   historyHours,
		sampleRate:     sampleRate,
		channels:       channels,
		logger:         logger,
	}
}

// Render builds the MPD document for the window. Availability starts at the
// earliest window slot; the time-shift buffer spans the retention horizon.
func (d *DASH) Render(window []timeline.Slot, now time.Time) string {
	var urls strings.Builder
	for i, slot := range window {
		if i > 0 {
			urls.WriteString("\n")
		}
		urls.WriteString(fmt.Sprintf("      <SegmentURL media=%q />", slot.Key()+".mp4"))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011"
     type="dynamic"
     availabilityStartTime="%s"
     publishTime="%s"
     minimumUpdatePeriod="%s"
     timeShiftBufferDepth="PT%dH"
     profiles="urn:mpeg:dash:profile:isoff-live:2011">
  <Period id="p0" start="PT0S">
    <AdaptationSet id="a0" contentType="audio" mimeType="audio/mp4" segmentAlignment="true" lang="und">
      <Representation id="r0" bandwidth="%d" codecs="%s" audioSamplingRate="%d">
        <AudioChannelConfiguration schemeIdUri="urn:mpeg:dash:23003:3:audio_channel_configuration:2011" value="%d"/>
        <SegmentList timescale="1" duration="%d">
%s
        </SegmentList>
      </Representation>
    </AdaptationSet>
  </Period>
</MPD>
`,
		publishInstant(window[0].Start()),
		publishInstant(now),
		minimumUpdatePeriod,
		d.historyHours,
		nominalBandwidth,
		audioCodec,
		d.sampleRate,
		d.channels,
		d.segmentSeconds,
		urls.String(),
	)
}

// Emit writes manifest.mpd, replacing it wholesale.
func (d *DASH) Emit(window []timeline.Slot, now time.Time) error {
	if len(window) == 0 {
		return fmt.Errorf("cannot emit MPD for empty window")
	}

	if err := writeFile(filepath.Join(d.dir, "manifest.mpd"), d.Render(window, now)); err != nil {
		return fmt.Errorf("write MPD: %w", err)
	}

	d.logger.Debug("emitted MPD", "segments", len(window))
	return nil
}
