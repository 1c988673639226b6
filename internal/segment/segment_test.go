package segment

import (
	"path/filepath"
	"testing"
)

func TestPath(t *testing.T) {
	if got, want := Path("/out/s1", FormatTS, "0930"), filepath.Join("/out/s1", "hls", "0930.ts"); got != want {
		t.Errorf("Path(ts) = %q, want %q", got, want)
	}
	if got, want := Path("/out/s1", FormatMP4, "0930"), filepath.Join("/out/s1", "dash", "0930.mp4"); got != want {
		t.Errorf("Path(mp4) = %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	const minOK = 58.0

	tests := []struct {
		name  string
		probe ProbeResult
		want  Health
	}{
		{"missing", ProbeResult{}, Missing},
		{"empty", ProbeResult{Exists: true, SizeBytes: 0}, Empty},
		{"truncated", ProbeResult{Exists: true, SizeBytes: 1000, Duration: 30, DurationKnown: true}, Truncated},
		{"just under tolerance", ProbeResult{Exists: true, SizeBytes: 1000, Duration: 57.999, DurationKnown: true}, Truncated},
		{"at tolerance", ProbeResult{Exists: true, SizeBytes: 1000, Duration: 58, DurationKnown: true}, Healthy},
		{"full duration", ProbeResult{Exists: true, SizeBytes: 1000, Duration: 60.01, DurationKnown: true}, Healthy},
		// Unknown duration with nonzero size is accepted: an unprobeable
		// file must not be repaired forever.
		{"unknown duration", ProbeResult{Exists: true, SizeBytes: 1000}, Healthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.probe, minOK); got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.probe, got, tt.want)
			}
		})
	}
}

func TestFormatAccessors(t *testing.T) {
	if FormatTS.Ext() != ".ts" || FormatTS.Dir() != "hls" || FormatTS.String() != "ts" {
		t.Errorf("FormatTS accessors wrong: %q %q %q", FormatTS.Ext(), FormatTS.Dir(), FormatTS.String())
	}
	if FormatMP4.Ext() != ".mp4" || FormatMP4.Dir() != "dash" || FormatMP4.String() != "mp4" {
		t.Errorf("FormatMP4 accessors wrong: %q %q %q", FormatMP4.Ext(), FormatMP4.Dir(), FormatMP4.String())
	}
}
