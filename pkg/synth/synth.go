// SPDX-License-Identifier: MIT
// Package synth generates deterministic test signals: sine waves, silence,
// and click tracks with low-frequency bursts shaped like kick drums.
package synth

import "math"

// Sine returns size samples of a sine wave at the given frequency,
// normalized to 90% full scale.
func Sine(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// Silence returns size zero samples.
func Silence(size int) []float64 {
	return make([]float64, size)
}

// Click returns seconds of audio with a decaying low-frequency burst at
// every beat of the given tempo. clickHz is the burst tone (60 Hz sits in
// the middle of the kick band); each burst lasts ~60ms with an
// exponential decay so windowed energy has a single clear peak per click.
func Click(sampleRate, bpm, seconds, clickHz float64) []float64 {
	size := int(seconds * sampleRate)
	buffer := make([]float64, size)

	beatInterval := 60.0 / bpm
	burstLen := int(0.060 * sampleRate)
	decay := 0.015 * sampleRate // ~15ms time constant

	for beat := 0; ; beat++ {
		start := int(float64(beat) * beatInterval * sampleRate)
		if start >= size {
			break
		}
		for j := 0; j < burstLen && start+j < size; j++ {
			t := float64(j) / sampleRate
			buffer[start+j] += math.Sin(2*math.Pi*clickHz*t) * 0.9 * math.Exp(-float64(j)/decay)
		}
	}
	return buffer
}
