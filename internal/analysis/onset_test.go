// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"testing"
)

// makeFrames builds an energy series with a fixed frame interval.
func makeFrames(energies []float64, dt float64) []EnergyFrame {
	frames := make([]EnergyFrame, len(energies))
	for i, e := range energies {
		frames[i] = EnergyFrame{Index: i, Time: float64(i) * dt, KickEnergy: e}
	}
	return frames
}

// spikeTrack returns n frames of background energy with single-frame
// spikes every spacing frames, heights cycling through the given slice.
func spikeTrack(n, spacing int, background float64, heights []float64) []float64 {
	energies := make([]float64, n)
	for i := range energies {
		energies[i] = background
	}
	h := 0
	for i := spacing; i < n; i += spacing {
		energies[i] = heights[h%len(heights)]
		h++
	}
	return energies
}

func TestDetectEmptyAndTiny(t *testing.T) {
	d := NewOnsetDetector(2.5, 0.1)
	if got := d.Detect(nil); got != nil {
		t.Errorf("nil frames should yield nil, got %v", got)
	}
	// Fewer than 10 frames: the 10% radius collapses to zero.
	if got := d.Detect(makeFrames([]float64{1, 2, 1}, 0.0125)); got != nil {
		t.Errorf("tiny sequence should yield nil, got %v", got)
	}
}

func TestDetectSilence(t *testing.T) {
	d := NewOnsetDetector(2.5, 0.1)
	if got := d.Detect(makeFrames(make([]float64, 500), 0.0125)); got != nil {
		t.Errorf("silent series should yield no onsets, got %d", len(got))
	}
}

func TestDetectSpikeTrack(t *testing.T) {
	// Spikes every 40 frames at 80 frames/s: one every 0.5 seconds.
	const dt = 0.0125
	energies := spikeTrack(1000, 40, 0.1, []float64{1.0})
	d := NewOnsetDetector(2.5, 0.1)

	onsets := d.Detect(makeFrames(energies, dt))
	if len(onsets) < 10 {
		t.Fatalf("expected a run of onsets, got %d", len(onsets))
	}

	for i := 1; i < len(onsets); i++ {
		gap := onsets[i].Time - onsets[i-1].Time
		if gap <= 0 {
			t.Fatalf("onsets not strictly increasing at %d: %f -> %f", i, onsets[i-1].Time, onsets[i].Time)
		}
		if gap < MinOnsetGapSeconds {
			t.Fatalf("onset gap %f below %.3fs floor at %d", gap, MinOnsetGapSeconds, i)
		}
	}
}

func TestDetectDeduplication(t *testing.T) {
	// Pairs of spikes 5 frames (62.5ms) apart: the second of each pair
	// sits inside the 150ms window and must be dropped.
	const dt = 0.0125
	energies := spikeTrack(1000, 40, 0.1, []float64{1.0})
	for i := 40; i < len(energies)-5; i += 40 {
		energies[i+5] = 0.95
	}

	d := NewOnsetDetector(2.5, 0.1)
	onsets := d.Detect(makeFrames(energies, dt))
	for i := 1; i < len(onsets); i++ {
		if gap := onsets[i].Time - onsets[i-1].Time; gap < MinOnsetGapSeconds {
			t.Fatalf("deduplication failed: gap %f at onset %d", gap, i)
		}
	}
}

func TestDetectionIsConservative(t *testing.T) {
	// More conservative parameters must never find more onsets.
	const dt = 0.0125
	energies := spikeTrack(2000, 40, 0.05, []float64{1.0, 0.4, 0.75, 0.25, 0.6, 0.15})
	frames := makeFrames(energies, dt)

	t.Run("Sensitivity", func(t *testing.T) {
		prev := -1
		for _, sensitivity := range []float64{1.0, 1.5, 2.0, 2.5, 3.0, 4.0, 5.0} {
			d := NewOnsetDetector(sensitivity, 0.1)
			count := len(d.Detect(frames))
			if prev >= 0 && count > prev {
				t.Errorf("sensitivity %.1f found %d onsets, more than %d at lower sensitivity",
					sensitivity, count, prev)
			}
			prev = count
		}
	})

	t.Run("MinGainFraction", func(t *testing.T) {
		prev := -1
		for _, fraction := range []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3} {
			d := NewOnsetDetector(2.5, fraction)
			count := len(d.Detect(frames))
			if prev >= 0 && count > prev {
				t.Errorf("min gain %.2f found %d onsets, more than %d at lower floor",
					fraction, count, prev)
			}
			prev = count
		}
	})
}

func TestDetectSignificanceFloor(t *testing.T) {
	const dt = 0.0125
	// One dominant spike and a run of small ones below 30% of it.
	energies := spikeTrack(1000, 40, 0.0, []float64{0.2})
	energies[500] = 1.0

	d := NewOnsetDetector(1.0, 0.3)
	onsets := d.Detect(makeFrames(energies, dt))
	for _, o := range onsets {
		idx := int(o.Time/dt + 0.5)
		if energies[idx] < 0.3 {
			t.Errorf("onset at %f (energy %.2f) below the significance floor", o.Time, energies[idx])
		}
	}
}

func BenchmarkDetect(b *testing.B) {
	frames := makeFrames(spikeTrack(4000, 40, 0.05, []float64{1.0, 0.6}), 0.0125)
	for _, sensitivity := range []float64{1.0, 2.5, 5.0} {
		b.Run(fmt.Sprintf("sensitivity=%.1f", sensitivity), func(b *testing.B) {
			d := NewOnsetDetector(sensitivity, 0.1)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				d.Detect(frames)
			}
		})
	}
}
