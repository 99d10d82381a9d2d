// SPDX-License-Identifier: MIT
package analysis

import (
	applog "beatgrid/internal/log"

	"gonum.org/v1/gonum/stat"
)

// MinOnsetGapSeconds is the deduplication floor: two accepted onsets are
// never closer than this. 150ms corresponds to a 16th note at 100 BPM,
// faster than any kick pattern this detector targets.
const MinOnsetGapSeconds = 0.150

// OnsetEvent marks one detected percussive transient. Sequences are
// strictly increasing with gaps of at least MinOnsetGapSeconds.
type OnsetEvent struct {
	Time float64 // Seconds from buffer start.
}

// OnsetDetector picks kick onsets out of an energy time series using a
// sliding local threshold. A frame is an onset when it is a local maximum
// that stands sensitivity standard deviations above its neighborhood mean
// and clears a significance floor relative to the global peak.
type OnsetDetector struct {
	// Sensitivity is the threshold in local standard deviations.
	// Higher values detect fewer, stronger onsets. Range 1.0-5.0.
	Sensitivity float64

	// MinGainFraction is the fraction of the global energy peak a frame
	// must reach to count at all. Filters ghost peaks in quiet passages.
	// Range 0.05-0.3.
	MinGainFraction float64
}

// NewOnsetDetector returns a detector with the given parameters.
func NewOnsetDetector(sensitivity, minGainFraction float64) *OnsetDetector {
	return &OnsetDetector{
		Sensitivity:     sensitivity,
		MinGainFraction: minGainFraction,
	}
}

// Detect runs the peak picker over the frame sequence and returns the
// ordered onset events. The result may be empty. Detect is a batch
// computation with no side effects.
func (d *OnsetDetector) Detect(frames []EnergyFrame) []OnsetEvent {
	n := len(frames)
	if n == 0 {
		return nil
	}

	// Local window radius: 10% of the sequence. Frames inside the first
	// and last radius have no full neighborhood and are skipped.
	radius := n / 10
	if radius < 1 {
		return nil
	}

	var globalMax float64
	for i := range frames {
		if frames[i].KickEnergy > globalMax {
			globalMax = frames[i].KickEnergy
		}
	}
	if globalMax <= 0 {
		return nil
	}
	floor := globalMax * d.MinGainFraction

	neighborhood := make([]float64, 0, 2*radius)
	var onsets []OnsetEvent
	lastAccepted := -1.0

	for i := radius; i < n-radius; i++ {
		energy := frames[i].KickEnergy

		// Cheap rejections first; the mean/stddev pass is the expensive part.
		if energy <= frames[i-1].KickEnergy || energy <= frames[i+1].KickEnergy {
			continue
		}
		if energy <= floor {
			continue
		}
		if lastAccepted >= 0 && frames[i].Time-lastAccepted < MinOnsetGapSeconds {
			continue
		}

		neighborhood = neighborhood[:0]
		for j := i - radius; j < i+radius; j++ {
			neighborhood = append(neighborhood, frames[j].KickEnergy)
		}
		mean, stddev := stat.MeanStdDev(neighborhood, nil)

		if energy > mean+d.Sensitivity*stddev {
			onsets = append(onsets, OnsetEvent{Time: frames[i].Time})
			lastAccepted = frames[i].Time
		}
	}

	applog.Debugf("Analysis: %d onsets from %d frames (sensitivity %.2f, floor %.2f)",
		len(onsets), n, d.Sensitivity, d.MinGainFraction)

	return onsets
}
