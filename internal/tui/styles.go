// Package tui provides a live terminal dashboard for daemon mode.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for styling.
// It shows the latest snapshot: system state, unit counters, unhealthy
// units, collector outcomes and cycle timing.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-monitord/internal/system"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorHeader  = lipgloss.Color("#30475E") // slate
	colorSection = lipgloss.Color("#5FB3B3") // teal
	colorGood    = lipgloss.Color("#6CC644")
	colorWarn    = lipgloss.Color("#E5C07B")
	colorBad     = lipgloss.Color("#E06C75")
	colorBusy    = lipgloss.Color("#61AFEF")
	colorFg      = lipgloss.Color("#DCDFE4")
	colorMuted   = lipgloss.Color("#A0A7B4")
	colorDim     = lipgloss.Color("#6B717D")
	colorRule    = lipgloss.Color("#3E4451")
)

// =============================================================================
// Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRule).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorFg).
			Background(colorHeader).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSection).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorRule).
				MarginTop(1)

	footerStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	valueStyle     = lipgloss.NewStyle().Foreground(colorFg).Bold(true)
	valueGoodStyle = lipgloss.NewStyle().Foreground(colorGood).Bold(true)
	valueWarnStyle = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	valueBadStyle  = lipgloss.NewStyle().Foreground(colorBad).Bold(true)
	valueBusyStyle = lipgloss.NewStyle().Foreground(colorBusy).Bold(true)

	labelStyle     = lipgloss.NewStyle().Foreground(colorMuted).Width(20)
	labelWideStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(32)

	barFilledStyle  = lipgloss.NewStyle().Foreground(colorGood)
	barEmptyStyle   = lipgloss.NewStyle().Foreground(colorRule)
	barPercentStyle = lipgloss.NewStyle().Foreground(colorFg).Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSection).
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorRule)

	tableRowEvenStyle = lipgloss.NewStyle().Foreground(colorFg)
	tableRowOddStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// =============================================================================
// System State Indicator
// =============================================================================

// StateStatus groups system states by severity.
type StateStatus int

const (
	StateStatusOK StateStatus = iota
	StateStatusTransient
	StateStatusDegraded
	StateStatusUnknown
)

// GetStateStatus classifies a manager SystemState.
func GetStateStatus(state system.State) StateStatus {
	switch state {
	case system.StateRunning:
		return StateStatusOK
	case system.StateInitializing, system.StateStarting, system.StateStopping:
		return StateStatusTransient
	case system.StateDegraded, system.StateMaintenance, system.StateOffline:
		return StateStatusDegraded
	default:
		return StateStatusUnknown
	}
}

// GetStateStyle returns the style for a state status.
func GetStateStyle(status StateStatus) lipgloss.Style {
	switch status {
	case StateStatusOK:
		return valueGoodStyle
	case StateStatusTransient:
		return valueBusyStyle
	case StateStatusDegraded:
		return valueBadStyle
	default:
		return valueWarnStyle
	}
}

// GetStateLabel returns a styled system state, or a muted dash when the
// state was not collected.
func GetStateLabel(state *system.State) string {
	if state == nil {
		return mutedStyle.Render("● not collected")
	}
	return GetStateStyle(GetStateStatus(*state)).Render("● " + state.String())
}

// =============================================================================
// Count Indicators
// =============================================================================

// GetCountStyle returns a style for a count where zero is healthy.
func GetCountStyle(n int64) lipgloss.Style {
	switch {
	case n == 0:
		return valueGoodStyle
	case n < 3:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// GetCountLabel returns a styled count.
func GetCountLabel(n int64) string {
	return GetCountStyle(n).Render(fmt.Sprintf("%d", n))
}

// GetSuccessRateStyle returns a style for a collector's success ratio.
func GetSuccessRateStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= 1.0:
		return valueGoodStyle
	case rate >= 0.9:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// =============================================================================
// Helpers
// =============================================================================

// RenderKeyValue renders "label: value" with a fixed label column.
func RenderKeyValue(label, value string) string {
	return labelStyle.Render(label+":") + valueStyle.Render(value)
}

// RenderProgressBar renders ratio (0..1) as a bar of width cells followed
// by the percentage.
func RenderProgressBar(ratio float64, width int) string {
	width = max(width, 10)
	filled := min(max(int(ratio*float64(width)), 0), width)

	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled)) +
		barPercentStyle.Render(fmt.Sprintf(" %3.0f%%", ratio*100))
}
