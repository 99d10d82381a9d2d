// SPDX-License-Identifier: MIT
/*
Package grid holds the beat/bar grid state: a tempo, a display mode, and
a phase offset anchoring beat zero. The phase is stored once, in
milliseconds, because milliseconds are tempo-independent: changing the
BPM never silently moves the stored anchor. The fractional-beat view is
derived on read so the two representations cannot drift apart.

State values are immutable; every operation returns a new State. The
Controller in this package is the only component that may install a new
State, and readers always observe a fully formed snapshot.
*/
package grid

import "math"

// Mode selects what the renderer draws at grid lines.
type Mode int

const (
	ModeNone Mode = iota
	ModeBeats
	ModeBars
)

// String returns the persistence/wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBeats:
		return "beats"
	case ModeBars:
		return "bars"
	default:
		return "none"
	}
}

// ParseMode converts a stored mode name back to a Mode. Unknown names
// map to ModeNone.
func ParseMode(s string) Mode {
	switch s {
	case "beats":
		return ModeBeats
	case "bars":
		return ModeBars
	default:
		return ModeNone
	}
}

// Source identifies where a BPM candidate came from. Each source has its
// own acceptance range.
type Source string

const (
	SourceSpectral Source = "spectral" // Automatic detection, 60-200 BPM.
	SourceTap      Source = "tap"      // Tap tempo, 30-300 BPM.
	SourceManual   Source = "manual"   // Presets and direct entry, 30-300 BPM.
)

// BPMRange returns the inclusive acceptance range for the source.
func (s Source) BPMRange() (min, max int) {
	if s == SourceSpectral {
		return 60, 200
	}
	return 30, 300
}

// Direction selects which way a nudge moves the grid.
type Direction int

const (
	NudgeLeft Direction = iota
	NudgeRight
)

// nudgeBeatFraction is how far one nudge moves the grid: 1% of a beat.
const nudgeBeatFraction = 0.01

// State is one immutable grid configuration. The zero value is not
// valid; use NewState.
type State struct {
	BPM      int     // Tempo, always > 0.
	Mode     Mode    // What the renderer draws.
	OffsetMS float64 // Canonical phase anchor in milliseconds. May be negative.
}

// NewState returns the default grid for a fresh audio asset.
func NewState(bpm int) State {
	if bpm <= 0 {
		bpm = 120
	}
	return State{BPM: bpm, Mode: ModeNone, OffsetMS: 0}
}

// BeatAtTime converts a time in seconds to a beat position.
func (s State) BeatAtTime(t float64) float64 {
	return t * float64(s.BPM) / 60.0
}

// TimeAtBeat converts a beat position to seconds.
func (s State) TimeAtBeat(b float64) float64 {
	return b * 60.0 / float64(s.BPM)
}

// OffsetBeats is the derived fractional-beat view of the phase anchor,
// always in [0, 1) regardless of the sign or magnitude of OffsetMS.
func (s State) OffsetBeats() float64 {
	frac := math.Mod(s.BeatAtTime(s.OffsetMS/1000.0), 1.0)
	if frac < 0 {
		frac += 1.0
	}
	// math.Mod can return exactly 1.0-eps rounded up to 1.0 after the
	// negative adjustment; clamp back into the half-open interval.
	if frac >= 1.0 {
		frac = 0
	}
	return frac
}

// WithBPM returns a copy with the tempo replaced if bpm is inside the
// source's acceptance range, and the receiver unchanged otherwise. The
// phase anchor is untouched: it is stored in milliseconds, so the beat
// grid re-derives around the new tempo.
func (s State) WithBPM(bpm int, source Source) (State, bool) {
	min, max := source.BPMRange()
	if bpm < min || bpm > max {
		return s, false
	}
	s.BPM = bpm
	return s, true
}

// WithMode returns a copy with the display mode replaced.
func (s State) WithMode(m Mode) State {
	s.Mode = m
	return s
}

// AlignedToCursor returns a copy whose phase anchor sits at the playback
// cursor, in seconds.
func (s State) AlignedToCursor(cursorSeconds float64) State {
	s.OffsetMS = cursorSeconds * 1000.0
	return s
}

// Nudged returns a copy with the anchor shifted by 1% of one beat at the
// current tempo. Left moves it earlier, right later.
func (s State) Nudged(d Direction) State {
	nudgeMS := 60.0 / float64(s.BPM) * nudgeBeatFraction * 1000.0
	if d == NudgeLeft {
		nudgeMS = -nudgeMS
	}
	s.OffsetMS += nudgeMS
	return s
}

// ResetOffset returns a copy with the phase anchor cleared.
func (s State) ResetOffset() State {
	s.OffsetMS = 0
	return s
}

// Snapshot is the read-only view handed to the renderer and the
// persistence layer. It carries both phase representations, derived
// together from the same state.
type Snapshot struct {
	BPM         int     `json:"bpm"`
	Mode        string  `json:"mode"`
	OffsetBeats float64 `json:"offsetBeats"`
	OffsetMS    float64 `json:"offsetMs"`
}

// Snapshot returns the external view of the state.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		BPM:         s.BPM,
		Mode:        s.Mode.String(),
		OffsetBeats: s.OffsetBeats(),
		OffsetMS:    s.OffsetMS,
	}
}
