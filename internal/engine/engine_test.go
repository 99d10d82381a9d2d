// SPDX-License-Identifier: MIT
package engine

import (
	"context"
	"sync"
	"testing"

	"beatgrid/internal/analysis"
	"beatgrid/internal/audio"
	"beatgrid/internal/config"
	"beatgrid/internal/grid"
	"beatgrid/internal/transport"
	"beatgrid/pkg/synth"
)

const testSampleRate = 44100.0

// capturePublisher records everything sent through it.
type capturePublisher struct {
	mu     sync.Mutex
	events []transport.Event
}

func (p *capturePublisher) Send(data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := data.(transport.Event); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byType(kind string) []transport.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []transport.Event
	for _, ev := range p.events {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}

func defaultParams() config.AnalysisConfig {
	return config.NewConfig().Analysis
}

func clickTrack(bpm, seconds float64) *audio.PCMBuffer {
	return &audio.PCMBuffer{
		Samples:    synth.Click(testSampleRate, bpm, seconds, 60),
		SampleRate: testSampleRate,
	}
}

func TestAnalyzeClickTrack120(t *testing.T) {
	controller := grid.NewController(grid.NewState(100))
	eng := New(defaultParams(), controller, nil)

	// 30 seconds of clicks at exactly 120 BPM: 60 strong low-band
	// transients, well above the 4-onset minimum even after the local
	// window radius trims the edges.
	result := eng.AnalyzeSync(context.Background(), clickTrack(120, 30))

	if result.Err != nil {
		t.Fatal(result.Err)
	}
	if result.Status != analysis.StatusOK {
		t.Fatalf("status = %s, want ok (%d onsets, %d frames)", result.Status, len(result.Onsets), result.Frames)
	}
	if result.BPM < 118 || result.BPM > 122 {
		t.Errorf("BPM = %d, want within [118, 122]", result.BPM)
	}
	if got := controller.State().BPM; got != result.BPM {
		t.Errorf("grid BPM = %d, result BPM = %d", got, result.BPM)
	}

	// Onset invariants: strictly increasing with gaps above the floor.
	for i := 1; i < len(result.Onsets); i++ {
		gap := result.Onsets[i].Time - result.Onsets[i-1].Time
		if gap < analysis.MinOnsetGapSeconds {
			t.Fatalf("onset gap %f below floor at %d", gap, i)
		}
	}
}

func TestAnalyzeSilenceKeepsPriorTempo(t *testing.T) {
	controller := grid.NewController(grid.NewState(120))
	eng := New(defaultParams(), controller, nil)

	buf := &audio.PCMBuffer{Samples: synth.Silence(int(testSampleRate * 10)), SampleRate: testSampleRate}
	result := eng.AnalyzeSync(context.Background(), buf)

	if result.Status != analysis.StatusInsufficientOnsets {
		t.Errorf("status = %s, want %s", result.Status, analysis.StatusInsufficientOnsets)
	}
	if got := controller.State().BPM; got != 120 {
		t.Errorf("grid BPM = %d, want unchanged 120", got)
	}
}

func TestAnalyzeShortBufferKeepsPriorTempo(t *testing.T) {
	controller := grid.NewController(grid.NewState(120))
	eng := New(defaultParams(), controller, nil)

	buf := &audio.PCMBuffer{Samples: synth.Silence(1000), SampleRate: testSampleRate}
	result := eng.AnalyzeSync(context.Background(), buf)

	if result.Status != analysis.StatusInsufficientOnsets {
		t.Errorf("status = %s, want %s", result.Status, analysis.StatusInsufficientOnsets)
	}
	if got := controller.State().BPM; got != 120 {
		t.Errorf("grid BPM = %d, want unchanged 120", got)
	}
}

func TestAnalyzeCanceledRequestDoesNotCommit(t *testing.T) {
	controller := grid.NewController(grid.NewState(100))
	eng := New(defaultParams(), controller, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := <-eng.Analyze(ctx, clickTrack(120, 20))
	if !result.Canceled {
		t.Fatalf("result = %+v, want Canceled", result)
	}
	if got := controller.State().BPM; got != 100 {
		t.Errorf("canceled request mutated grid BPM to %d", got)
	}
}

func TestAnalyzeSupersedingRequestWins(t *testing.T) {
	controller := grid.NewController(grid.NewState(100))
	eng := New(defaultParams(), controller, nil)
	ctx := context.Background()

	// Fire a slow request and immediately supersede it with a different
	// tempo. Whatever the first request manages to do, the grid must end
	// at the second request's tempo.
	first := eng.Analyze(ctx, clickTrack(120, 30))
	second := eng.Analyze(ctx, clickTrack(140, 30))

	r2 := <-second
	r1 := <-first

	if r2.Canceled {
		t.Fatal("newest request must never be canceled by an older one")
	}
	if r2.Status != analysis.StatusOK {
		t.Fatalf("second status = %s", r2.Status)
	}
	if r2.BPM < 138 || r2.BPM > 142 {
		t.Errorf("second BPM = %d, want ~140", r2.BPM)
	}
	if got := controller.State().BPM; got != r2.BPM {
		t.Errorf("grid BPM = %d, want the superseding result %d", got, r2.BPM)
	}
	// The first request either got canceled or committed before the
	// second ran; it must not have won the grid either way.
	if !r1.Canceled && r1.Status == analysis.StatusOK && controller.State().BPM != r2.BPM {
		t.Error("superseded request held the grid")
	}
}

func TestAnalyzePublishesEvents(t *testing.T) {
	pub := &capturePublisher{}
	controller := grid.NewController(grid.NewState(100))
	eng := New(defaultParams(), controller, pub)

	result := eng.AnalyzeSync(context.Background(), clickTrack(120, 20))
	if result.Status != analysis.StatusOK {
		t.Fatalf("status = %s", result.Status)
	}

	if got := pub.byType("tempo"); len(got) != 1 {
		t.Errorf("tempo events = %d, want 1", len(got))
	}
	if got := pub.byType("onsets"); len(got) != 1 {
		t.Errorf("onsets events = %d, want 1", len(got))
	}
}

func TestApplyTap(t *testing.T) {
	controller := grid.NewController(grid.NewState(120))
	eng := New(defaultParams(), controller, nil)

	if !eng.ApplyTap(250) {
		t.Error("tap-origin 250 BPM should be accepted")
	}
	if eng.ApplyTap(301) {
		t.Error("tap-origin 301 BPM should be rejected")
	}
	if got := controller.State().BPM; got != 250 {
		t.Errorf("grid BPM = %d, want 250", got)
	}
}

func TestSetParams(t *testing.T) {
	controller := grid.NewController(grid.NewState(100))
	eng := New(defaultParams(), controller, nil)

	// Serve mode applies hot-reloaded tunables through SetParams; a widened
	// kick band must still resolve the click track.
	params := defaultParams()
	params.MaxKickFrequency = 200
	eng.SetParams(params)

	result := eng.AnalyzeSync(context.Background(), clickTrack(120, 20))
	if result.Status != analysis.StatusOK {
		t.Fatalf("status = %s with widened band", result.Status)
	}
}
