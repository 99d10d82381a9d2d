// SPDX-License-Identifier: MIT
// Package transport defines how analysis results and grid snapshots leave
// the engine: a Publisher interface plus the websocket implementation the
// serve mode uses to feed the waveform renderer.
package transport

import applog "beatgrid/internal/log"

// Publisher is a generic sink for engine events: tempo estimates, onset
// sequences, and grid snapshots. Implementations must be safe for
// concurrent calls.
type Publisher interface {
	Send(data any) error
	Close() error
}

// LogPublisher is a Publisher that drops everything after an optional
// debug line. Used when no renderer is attached.
type LogPublisher struct{}

// Send logs the event at debug level and discards it.
func (LogPublisher) Send(data any) error {
	applog.Debugf("Transport: %+v", data)
	return nil
}

// Close is a no-op.
func (LogPublisher) Close() error {
	return nil
}

var _ Publisher = LogPublisher{}
