// SPDX-License-Identifier: MIT
// Package tap implements manual tempo estimation from user tap events.
// It is independent of the spectral pipeline: taps land directly on the
// grid controller with their own, wider acceptance range.
package tap

import (
	"time"

	applog "beatgrid/internal/log"
)

const (
	// SessionWindow is how far back taps count. Anything older than this
	// relative to the newest tap is evicted, so a 2 second pause starts
	// a fresh session implicitly.
	SessionWindow = 2000 * time.Millisecond

	// MinTaps is the minimum number of live taps for an estimate.
	MinTaps = 2

	// Accepted BPM range for tap estimates. Wider than the spectral
	// range because a user tapping 40 BPM means it.
	MinBPM = 30
	MaxBPM = 300
)

// Tracker converts a stream of tap timestamps into BPM estimates over a
// rolling session. Timestamps must come from a monotonic clock; the
// injectable now func exists for tests and defaults to time.Now, whose
// time.Time values carry a monotonic reading.
type Tracker struct {
	now  func() time.Time
	taps []time.Time
}

// NewTracker returns a Tracker using the real clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// NewTrackerWithClock returns a Tracker using the supplied clock source.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// Tap records a tap at the current clock reading and returns the
// resulting BPM estimate. ok is false when the session is still too
// short or the estimate fell outside [MinBPM, MaxBPM]; the caller keeps
// its prior tempo in that case.
func (t *Tracker) Tap() (bpm int, ok bool) {
	return t.tapAt(t.now())
}

func (t *Tracker) tapAt(at time.Time) (int, bool) {
	t.taps = append(t.taps, at)

	// Evict taps older than the session window relative to the newest.
	cutoff := at.Add(-SessionWindow)
	live := t.taps[:0]
	for _, ts := range t.taps {
		if !ts.Before(cutoff) {
			live = append(live, ts)
		}
	}
	t.taps = live

	if len(t.taps) < MinTaps {
		return 0, false
	}

	var total time.Duration
	for i := 1; i < len(t.taps); i++ {
		total += t.taps[i].Sub(t.taps[i-1])
	}
	meanMs := float64(total.Milliseconds()) / float64(len(t.taps)-1)
	if meanMs <= 0 {
		return 0, false
	}

	bpm := int(60000.0/meanMs + 0.5)
	if bpm < MinBPM || bpm > MaxBPM {
		applog.Debugf("Tap: estimate %d outside [%d, %d], ignored", bpm, MinBPM, MaxBPM)
		return 0, false
	}
	return bpm, true
}

// Reset discards the current session.
func (t *Tracker) Reset() {
	t.taps = t.taps[:0]
}

// Count returns the number of live taps in the session.
func (t *Tracker) Count() int {
	return len(t.taps)
}
