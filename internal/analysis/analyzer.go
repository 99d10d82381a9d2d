// SPDX-License-Identifier: MIT
/*
Package analysis implements the spectral half of the tempo detection
pipeline: a windowed low-band energy pass over a decoded PCM buffer, an
adaptive-threshold onset picker over the resulting energy series, and an
interval-based tempo estimator over the picked onsets.

All three stages are batch computations over a bounded buffer. None of
them keeps state between calls, so a fresh pass always reflects the
current parameters.
*/
package analysis

import (
	"fmt"
	"math/cmplx"

	"beatgrid/internal/audio"
	applog "beatgrid/internal/log"
	"beatgrid/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// kickBandLowHz is the lower edge of the kick band. Content below ~20 Hz
// is DC drift and rumble, not percussion.
const kickBandLowHz = 20.0

// EnergyFrame is one low-band energy measurement, produced once per hop
// step. Frames are ordered and immutable after creation.
type EnergyFrame struct {
	Index      int     // Frame index in the analysis pass.
	Time       float64 // Window start offset in seconds.
	KickEnergy float64 // Mean spectral magnitude over the kick band, >= 0.
}

// Pre-allocated buffers for the windowed FFT pass.
type analyzerWorkspace struct {
	input  []float64    // Windowed input samples.
	coeffs []complex128 // FFT complex output.
	window []float64    // Window function coefficients.
}

// SpectralEnergyAnalyzer converts a PCM buffer into a kick-band energy
// time series using overlapped, windowed real FFTs. It reuses internal
// buffers across windows and is therefore not safe for concurrent use;
// the engine creates one per analysis request.
type SpectralEnergyAnalyzer struct {
	windowSize int     // FFT window W (power of 2).
	hopSize    int     // W/4, 75% overlap.
	maxKickHz  float64 // Upper edge of the kick band.
	fft        *fourier.FFT
	workspace  analyzerWorkspace
}

// NewSpectralEnergyAnalyzer creates an analyzer for the given window size
// and kick band. windowSize must be a power of 2; maxKickHz must exceed
// the fixed 20 Hz band floor.
func NewSpectralEnergyAnalyzer(windowSize int, maxKickHz float64, windowType WindowFunc) (*SpectralEnergyAnalyzer, error) {
	if !bitint.IsPowerOfTwo(windowSize) {
		return nil, fmt.Errorf("window size must be a power of 2, got %d", windowSize)
	}
	if maxKickHz <= kickBandLowHz {
		return nil, fmt.Errorf("max kick frequency %.1f Hz must exceed %.0f Hz", maxKickHz, kickBandLowHz)
	}

	outputSize := windowSize/2 + 1

	return &SpectralEnergyAnalyzer{
		windowSize: windowSize,
		hopSize:    windowSize / 4,
		maxKickHz:  maxKickHz,
		fft:        fourier.NewFFT(windowSize),
		workspace: analyzerWorkspace{
			input:  make([]float64, windowSize),
			coeffs: make([]complex128, outputSize),
			window: windowCoefficients(windowSize, windowType),
		},
	}, nil
}

// Analyze runs the windowed energy pass over buf and returns the ordered
// frame sequence. Buffers shorter than one window yield an empty result,
// which callers must treat as insufficient data.
func (a *SpectralEnergyAnalyzer) Analyze(buf *audio.PCMBuffer) []EnergyFrame {
	n := buf.Len()
	if n < a.windowSize || buf.SampleRate <= 0 {
		return nil
	}

	// Kick band expressed as an inclusive bin range. Bin spacing is
	// sampleRate/W; bin 0 (DC) is always excluded by the 20 Hz floor.
	binHz := buf.SampleRate / float64(a.windowSize)
	lowBin := int(kickBandLowHz/binHz) + 1
	highBin := int(a.maxKickHz / binHz)
	if highBin > a.windowSize/2 {
		highBin = a.windowSize / 2
	}
	if highBin < lowBin {
		highBin = lowBin
	}
	binCount := float64(highBin - lowBin + 1)

	frames := make([]EnergyFrame, 0, (n-a.windowSize)/a.hopSize+1)

	for start := 0; start+a.windowSize <= n; start += a.hopSize {
		for j := 0; j < a.windowSize; j++ {
			a.workspace.input[j] = buf.Samples[start+j] * a.workspace.window[j]
		}

		a.fft.Coefficients(a.workspace.coeffs, a.workspace.input)

		var sum float64
		for bin := lowBin; bin <= highBin; bin++ {
			sum += cmplx.Abs(a.workspace.coeffs[bin])
		}

		frames = append(frames, EnergyFrame{
			Index:      len(frames),
			Time:       float64(start) / buf.SampleRate,
			KickEnergy: sum / binCount,
		})
	}

	applog.Debugf("Analysis: %d energy frames (window %d, hop %d, band %.0f-%.0f Hz)",
		len(frames), a.windowSize, a.hopSize, kickBandLowHz, a.maxKickHz)

	return frames
}

// WindowSize returns the configured FFT window size in samples.
func (a *SpectralEnergyAnalyzer) WindowSize() int {
	return a.windowSize
}

// HopSize returns the step between consecutive windows in samples.
func (a *SpectralEnergyAnalyzer) HopSize() int {
	return a.hopSize
}
