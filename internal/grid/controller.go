// SPDX-License-Identifier: MIT
package grid

import (
	"sync"
	"sync/atomic"

	applog "beatgrid/internal/log"
)

// Controller is the single writer of grid state. Mutations go through its
// methods, which apply a pure State operation and atomically install the
// result; readers call State or Snapshot at any time from any goroutine
// and always see a fully formed value. A mutex serializes writers so
// concurrent mutations cannot lose updates.
type Controller struct {
	mu      sync.Mutex
	current atomic.Pointer[State]
	notify  func(Snapshot) // Optional change listener, nil when unset.
}

// NewController returns a controller holding the given initial state.
func NewController(initial State) *Controller {
	c := &Controller{}
	c.current.Store(&initial)
	return c
}

// OnChange registers a listener invoked with the new snapshot after every
// successful mutation. Must be called before the controller is shared.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.notify = fn
}

// State returns the current immutable state.
func (c *Controller) State() State {
	return *c.current.Load()
}

// Snapshot returns the current external view.
func (c *Controller) Snapshot() Snapshot {
	return c.current.Load().Snapshot()
}

func (c *Controller) swap(next State) {
	c.current.Store(&next)
	if c.notify != nil {
		c.notify(next.Snapshot())
	}
}

// ApplyBPM replaces the tempo if bpm is acceptable for the source.
// Returns false, leaving the state untouched, when it is not.
func (c *Controller) ApplyBPM(bpm int, source Source) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, ok := c.current.Load().WithBPM(bpm, source)
	if !ok {
		applog.Debugf("Grid: rejected %d BPM from %s source", bpm, source)
		return false
	}
	c.swap(next)
	return true
}

// SetMode switches the display mode. Transitions happen only through
// this call; nothing changes the mode implicitly.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swap(c.current.Load().WithMode(m))
}

// AlignToCursor anchors the grid phase at the playback cursor.
func (c *Controller) AlignToCursor(cursorSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swap(c.current.Load().AlignedToCursor(cursorSeconds))
}

// Nudge shifts the grid phase by 1% of one beat.
func (c *Controller) Nudge(d Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swap(c.current.Load().Nudged(d))
}

// ResetOffset clears the grid phase.
func (c *Controller) ResetOffset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swap(c.current.Load().ResetOffset())
}

// Restore installs a previously persisted state wholesale, bypassing
// per-source BPM validation. The store is trusted to hold values that
// were valid when saved.
func (c *Controller) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.BPM <= 0 {
		s.BPM = NewState(0).BPM
	}
	c.swap(s)
}
