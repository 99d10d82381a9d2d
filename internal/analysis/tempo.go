// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sort"

	applog "beatgrid/internal/log"
)

// Status reports the outcome of a tempo estimation pass. Every non-OK
// status is recoverable: the caller keeps its previous tempo and surfaces
// the status to the UI.
type Status int

const (
	StatusOK Status = iota
	// StatusInsufficientOnsets: fewer than MinOnsets detected.
	StatusInsufficientOnsets
	// StatusNoValidIntervals: onsets exist but no inter-onset interval
	// fell inside either accepted range.
	StatusNoValidIntervals
	// StatusInvalidBPMRange: an estimate was produced but landed outside
	// the accepted spectral range and was discarded.
	StatusInvalidBPMRange
)

// String returns a stable machine-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInsufficientOnsets:
		return "insufficient_onsets"
	case StatusNoValidIntervals:
		return "no_valid_intervals"
	case StatusInvalidBPMRange:
		return "invalid_bpm_range"
	default:
		return "unknown"
	}
}

// Estimation limits. Spectral estimates outside [MinBPM, MaxBPM] are
// rejected; the tap tracker has its own wider range.
const (
	MinOnsets = 4
	MinBPM    = 60
	MaxBPM    = 200

	// Single-beat interval filter: 30-200 BPM expressed in seconds.
	singleBeatMinSeconds = 0.3
	singleBeatMaxSeconds = 2.0

	// Double-beat interval filter: onsets landing every other beat.
	doubleBeatMinSeconds = 0.6
	doubleBeatMaxSeconds = 4.0
)

// DefaultReferenceBPM is the anchor for octave-ambiguity resolution.
// See TempoEstimator.ReferenceBPM.
const DefaultReferenceBPM = 120

// TempoEstimator infers a BPM value from onset timestamps by taking the
// median inter-onset interval under two hypotheses: onsets on every beat,
// and onsets on every other beat (half-time feel, common when only the
// kick on 1 and 3 is detected).
type TempoEstimator struct {
	// ReferenceBPM anchors the choice between the single-beat and
	// double-beat estimates: whichever lies closer wins. This is a
	// documented bias toward common tempos, not a musical truth; tracks
	// far from the reference can resolve to the wrong octave. Zero means
	// DefaultReferenceBPM.
	ReferenceBPM int
}

// NewTempoEstimator returns an estimator with the default reference tempo.
func NewTempoEstimator() *TempoEstimator {
	return &TempoEstimator{ReferenceBPM: DefaultReferenceBPM}
}

// Estimate converts an onset sequence into a BPM value. On any non-OK
// status the returned BPM is 0 and the caller must retain its prior tempo.
func (e *TempoEstimator) Estimate(onsets []OnsetEvent) (int, Status) {
	if len(onsets) < MinOnsets {
		return 0, StatusInsufficientOnsets
	}

	intervals := make([]float64, len(onsets)-1)
	for i := range intervals {
		intervals[i] = onsets[i+1].Time - onsets[i].Time
	}

	// Hypothesis A: onsets mark every beat.
	single := filterIntervals(intervals, singleBeatMinSeconds, singleBeatMaxSeconds)
	// Hypothesis B: onsets mark every other beat, so halve the median.
	double := filterIntervals(intervals, doubleBeatMinSeconds, doubleBeatMaxSeconds)

	if len(single) == 0 && len(double) == 0 {
		return 0, StatusNoValidIntervals
	}

	estimateA := 0
	if len(single) > 0 {
		estimateA = int(math.Round(60.0 / median(single)))
	}
	estimateB := 0
	if len(double) > 0 {
		estimateB = int(math.Round(60.0 / (median(double) / 2)))
	}

	reference := e.ReferenceBPM
	if reference == 0 {
		reference = DefaultReferenceBPM
	}

	bpm := estimateA
	if estimateB != 0 && (estimateA == 0 || absInt(estimateB-reference) < absInt(estimateA-reference)) {
		bpm = estimateB
	}

	if bpm < MinBPM || bpm > MaxBPM {
		applog.Debugf("Analysis: tempo estimate %d outside [%d, %d], discarded", bpm, MinBPM, MaxBPM)
		return 0, StatusInvalidBPMRange
	}

	applog.Debugf("Analysis: tempo %d BPM (single %d, double %d, %d onsets)",
		bpm, estimateA, estimateB, len(onsets))

	return bpm, StatusOK
}

func filterIntervals(intervals []float64, min, max float64) []float64 {
	out := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		if iv >= min && iv <= max {
			out = append(out, iv)
		}
	}
	return out
}

// median returns the middle value of vals, averaging the two central
// values for even lengths. vals must be non-empty; it is not modified.
func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
