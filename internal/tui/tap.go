// SPDX-License-Identifier: MIT
// Package tui contains the interactive terminal screens. Currently just
// the tap-tempo screen used by the `tap` subcommand.
package tui

import (
	"fmt"
	"strings"

	"beatgrid/internal/grid"
	"beatgrid/internal/tap"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1).
			Bold(true)

	bpmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A56E0")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// TapModel is the Bubble Tea model for the tap-tempo screen. Every
// space press lands on the tracker; accepted estimates are applied to
// the grid controller as tap-origin tempo changes.
type TapModel struct {
	tracker    *tap.Tracker
	controller *grid.Controller
	lastBPM    int
	rejected   bool
}

// NewTapModel returns a tap screen writing to the given controller.
func NewTapModel(controller *grid.Controller) TapModel {
	return TapModel{
		tracker:    tap.NewTracker(),
		controller: controller,
	}
}

// Init implements tea.Model.
func (m TapModel) Init() tea.Cmd {
	return nil
}

// Update handles key input.
func (m TapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.tracker.Reset()
		m.lastBPM = 0
		m.rejected = false
		return m, nil
	case " ", "enter":
		bpm, ok := m.tracker.Tap()
		if ok {
			m.lastBPM = bpm
			m.rejected = false
			m.controller.ApplyBPM(bpm, grid.SourceTap)
		} else if m.tracker.Count() >= tap.MinTaps {
			// Enough taps but the estimate fell outside the range.
			m.rejected = true
		}
		return m, nil
	}
	return m, nil
}

// View renders the screen.
func (m TapModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("beatgrid tap tempo"))
	sb.WriteString("\n\n")

	if m.lastBPM > 0 {
		sb.WriteString(fmt.Sprintf("  %s BPM\n", bpmStyle.Render(fmt.Sprintf("%d", m.lastBPM))))
	} else {
		sb.WriteString(dimStyle.Render("  tap along to set the tempo\n"))
	}

	sb.WriteString(fmt.Sprintf("  %d taps in session\n", m.tracker.Count()))
	if m.rejected {
		sb.WriteString(dimStyle.Render("  estimate out of range, ignored\n"))
	}

	snap := m.controller.Snapshot()
	sb.WriteString(fmt.Sprintf("\n  grid: %d BPM, mode %s\n", snap.BPM, snap.Mode))

	sb.WriteString(dimStyle.Render("\n  space: tap  r: reset  q: quit\n"))
	return sb.String()
}
