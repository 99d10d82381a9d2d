// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"beatgrid/internal/audio"
	"beatgrid/pkg/synth"
)

const testSampleRate = 44100.0

func TestNewSpectralEnergyAnalyzerValidation(t *testing.T) {
	tests := []struct {
		desc       string
		windowSize int
		maxKickHz  float64
		wantErr    bool
	}{
		{"Valid defaults", 2048, 100, false},
		{"Non power of two window", 2000, 100, true},
		{"Zero window", 0, 100, true},
		{"Kick band below floor", 2048, 20, true},
		{"Kick band at upper limit", 2048, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewSpectralEnergyAnalyzer(tt.windowSize, tt.maxKickHz, Hann)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSpectralEnergyAnalyzer(%d, %.0f) error = %v, wantErr %v",
					tt.windowSize, tt.maxKickHz, err, tt.wantErr)
			}
		})
	}
}

func TestAnalyzeShortBuffer(t *testing.T) {
	analyzer, err := NewSpectralEnergyAnalyzer(2048, 100, Hann)
	if err != nil {
		t.Fatal(err)
	}

	buf := &audio.PCMBuffer{Samples: synth.Silence(2047), SampleRate: testSampleRate}
	if frames := analyzer.Analyze(buf); frames != nil {
		t.Errorf("buffer shorter than one window should yield no frames, got %d", len(frames))
	}
}

func TestAnalyzeFrameSequence(t *testing.T) {
	analyzer, err := NewSpectralEnergyAnalyzer(2048, 100, Hann)
	if err != nil {
		t.Fatal(err)
	}

	n := 2048 * 4
	buf := &audio.PCMBuffer{Samples: synth.Sine(n, testSampleRate, 60), SampleRate: testSampleRate}
	frames := analyzer.Analyze(buf)

	wantFrames := (n-2048)/512 + 1
	if len(frames) != wantFrames {
		t.Fatalf("frame count = %d, want %d", len(frames), wantFrames)
	}

	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d has Index %d", i, f.Index)
		}
		wantTime := float64(i*512) / testSampleRate
		if math.Abs(f.Time-wantTime) > 1e-9 {
			t.Errorf("frame %d Time = %f, want %f", i, f.Time, wantTime)
		}
		if f.KickEnergy < 0 {
			t.Errorf("frame %d has negative energy %f", i, f.KickEnergy)
		}
	}
}

func TestKickBandSelectivity(t *testing.T) {
	analyzer, err := NewSpectralEnergyAnalyzer(2048, 100, Hann)
	if err != nil {
		t.Fatal(err)
	}

	n := 2048 * 8
	low := analyzer.Analyze(&audio.PCMBuffer{Samples: synth.Sine(n, testSampleRate, 60), SampleRate: testSampleRate})
	high := analyzer.Analyze(&audio.PCMBuffer{Samples: synth.Sine(n, testSampleRate, 1000), SampleRate: testSampleRate})

	var lowEnergy, highEnergy float64
	for i := range low {
		lowEnergy += low[i].KickEnergy
		highEnergy += high[i].KickEnergy
	}

	// A 60 Hz tone lives inside the kick band; a 1 kHz tone is far above
	// it, so its band energy should be orders of magnitude smaller.
	if lowEnergy < highEnergy*100 {
		t.Errorf("kick band not selective: 60 Hz energy %f vs 1 kHz energy %f", lowEnergy, highEnergy)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	analyzer, err := NewSpectralEnergyAnalyzer(2048, 100, Hann)
	if err != nil {
		t.Fatal(err)
	}

	buf := &audio.PCMBuffer{Samples: synth.Silence(2048 * 4), SampleRate: testSampleRate}
	for _, f := range analyzer.Analyze(buf) {
		if f.KickEnergy > 1e-12 {
			t.Fatalf("silence produced energy %g at frame %d", f.KickEnergy, f.Index)
		}
	}
}

func BenchmarkAnalyze(b *testing.B) {
	analyzer, err := NewSpectralEnergyAnalyzer(2048, 100, Hann)
	if err != nil {
		b.Fatal(err)
	}
	buf := &audio.PCMBuffer{
		Samples:    synth.Click(testSampleRate, 120, 5, 60),
		SampleRate: testSampleRate,
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		analyzer.Analyze(buf)
	}
}
