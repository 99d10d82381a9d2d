// SPDX-License-Identifier: MIT
// Package audio holds the decoded-audio types consumed by the analysis
// pipeline and the WAV decode collaborator used by the CLI. The engine
// itself never decodes; it only reads PCMBuffer values handed to it.
package audio

import "time"

// PCMBuffer is a mono, normalized float64 sample buffer. It is supplied by
// a decode collaborator and treated as read-only by every consumer.
type PCMBuffer struct {
	Samples    []float64 // Normalized to [-1, 1).
	SampleRate float64   // Hz.
}

// Len returns the number of samples.
func (b *PCMBuffer) Len() int {
	return len(b.Samples)
}

// Duration returns the buffer length as wall time.
func (b *PCMBuffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(b.Samples)) / b.SampleRate
	return time.Duration(seconds * float64(time.Second))
}
