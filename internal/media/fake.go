package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/altomedia/stitcher/internal/segment"
)

// FakeProber is a Prober for tests. It stats the real filesystem for
// existence and size, and reports durations from an in-memory table so tests
// control health classification without media tools installed.
type FakeProber struct {
	mu        sync.Mutex
	durations map[string]float64
}

// NewFakeProber returns an empty fake prober.
func NewFakeProber() *FakeProber {
	return &FakeProber{durations: make(map[string]float64)}
}

// SetDuration fixes the duration reported for path. Paths with no entry probe
// with an unknown duration.
func (p *FakeProber) SetDuration(path string, seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.durations[path] = seconds
}

// ClearDuration removes the fixed duration for path.
func (p *FakeProber) ClearDuration(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.durations, path)
}

// Probe implements Prober.
func (p *FakeProber) Probe(_ context.Context, path string) segment.ProbeResult {
	info, err := os.Stat(path)
	if err != nil {
		return segment.ProbeResult{}
	}

	res := segment.ProbeResult{Exists: true, SizeBytes: info.Size()}

	p.mu.Lock()
	defer p.mu.Unlock()
	if dur, ok := p.durations[path]; ok {
		res.Duration = dur
		res.DurationKnown = true
	}
	return res
}

// FakeSynthesizer is a Synthesizer for tests. It writes a small placeholder
// file and records every call; Fail makes all calls error without writing.
type FakeSynthesizer struct {
	mu    sync.Mutex
	calls []FakeSynthCall
	fail  bool
}

// FakeSynthCall records one Synthesize invocation.
type FakeSynthCall struct {
	Path   string
	Format segment.Format
	Params SilenceParams
}

// NewFakeSynthesizer returns a fake synthesizer that succeeds.
func NewFakeSynthesizer() *FakeSynthesizer {
	return &FakeSynthesizer{}
}

// Fail controls whether subsequent calls return an error.
func (s *FakeSynthesizer) Fail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// Calls returns a copy of the recorded invocations.
func (s *FakeSynthesizer) Calls() []FakeSynthCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FakeSynthCall(nil), s.calls...)
}

// Synthesize implements Synthesizer.
func (s *FakeSynthesizer) Synthesize(_ context.Context, path string, format segment.Format, params SilenceParams) error {
	s.mu.Lock()
	s.calls = append(s.calls, FakeSynthCall{Path: path, Format: format, Params: params})
	fail := s.fail
	s.mu.Unlock()

	if fail {
		return fmt.Errorf("synthesize %s: injected failure", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("silence"), 0o644)
}
