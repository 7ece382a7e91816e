package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the host dashboard.
func (m Model) renderSummaryView() string {
	var sections []string

	sections = append(sections, m.renderHeader())

	if m.snapshot == nil {
		sections = append(sections, boxStyle.Width(m.width-2).Render(
			dimStyle.Render("Waiting for the first collection cycle..."),
		))
	} else {
		sections = append(sections, m.renderSystem())
		sections = append(sections, m.renderUnits())
		if m.hasUnhealthy() {
			sections = append(sections, m.renderUnhealthy())
		}
	}

	if m.stats != nil {
		sections = append(sections, m.renderCycles())
		if len(m.stats.Collectors) > 0 {
			sections = append(sections, m.renderCollectors())
		}
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderMachinesView renders one row per target.
func (m Model) renderMachinesView() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderMachineTable(),
		m.renderFooter(),
	)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	var state string
	if m.snapshot != nil {
		state = GetStateLabel(m.snapshot.SystemState)
	} else {
		state = GetStateLabel(nil)
	}

	header := fmt.Sprintf(
		" monitord │ %s │ %s │ Cycles: %d │ Uptime: %s ",
		m.hostName,
		state,
		m.Cycles(),
		formatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// System
// =============================================================================

func (m Model) renderSystem() string {
	s := m.snapshot

	version := "not collected"
	if s.Version != nil {
		version = s.Version.String()
	}

	rows := []string{
		RenderKeyValue("State", GetStateLabel(s.SystemState)),
		RenderKeyValue("systemd", version),
	}
	if p := s.Pid1; p != nil {
		rows = append(rows,
			RenderKeyValue("PID 1 memory", formatBytes(p.MemoryUsageBytes)),
			RenderKeyValue("PID 1 fds", formatNumber(int64(p.FDCount))),
			RenderKeyValue("PID 1 tasks", formatNumber(int64(p.Tasks))),
		)
	}
	if d := s.DBusStats; d != nil && d.ActiveConnections != nil {
		rows = append(rows, RenderKeyValue("D-Bus connections", formatNumber(int64(*d.ActiveConnections))))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("System")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Units
// =============================================================================

func (m Model) renderUnits() string {
	u := m.snapshot.Units
	if u == nil {
		return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left,
			sectionHeaderStyle.Render("Units"),
			dimStyle.Render("not collected"),
		))
	}

	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}

	rows := []string{
		RenderKeyValue("Total", formatNumber(int64(u.TotalUnits))),
		RenderKeyValue("Active", formatNumber(int64(u.ActiveUnits))),
		RenderKeyValue("Inactive", formatNumber(int64(u.InactiveUnits))),
		lipgloss.JoinHorizontal(lipgloss.Left,
			labelStyle.Render("Failed:"),
			GetCountLabel(int64(u.FailedUnits)),
		),
		RenderKeyValue("Jobs queued", formatNumber(int64(u.JobsQueued))),
		RenderProgressBar(m.ActiveRatio(), barWidth),
	}
	if t := m.snapshot.Timers; t != nil {
		rows = append(rows, RenderKeyValue("Timers", fmt.Sprintf("%d (%d persistent)", len(t.Timers), t.PersistentUnits)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Units")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func (m Model) hasUnhealthy() bool {
	return m.snapshot != nil && m.snapshot.Units != nil && len(m.snapshot.Units.UnhealthyUnits()) > 0
}

func (m Model) renderUnhealthy() string {
	u := m.snapshot.Units
	names := u.UnhealthyUnits()
	slices.Sort(names)

	maxRows := m.height - 20
	if maxRows < 5 {
		maxRows = 5
	}

	var rows []string
	for i, name := range names {
		if i >= maxRows {
			rows = append(rows, dimStyle.Render(fmt.Sprintf("... and %d more units", len(names)-maxRows)))
			break
		}
		rows = append(rows, renderUnitRow(name, u.UnitStates[name]))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render(fmt.Sprintf("Unhealthy Units (%d)", len(names)))}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func renderUnitRow(name string, us units.UnitState) string {
	state := us.ActiveState.String() + "/" + us.LoadState.String()
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelWideStyle.Render(name),
		valueBadStyle.Render(state),
	)
}

// =============================================================================
// Cycles and Collectors
// =============================================================================

func (m Model) renderCycles() string {
	s := m.stats
	rows := []string{
		RenderKeyValue("Cycles", fmt.Sprintf("%d (%d failed)", s.Cycles, s.FailedCycles)),
		RenderKeyValue("Last cycle", formatMs(s.LastCycleDuration)),
		RenderKeyValue("P50 / P90 / P99", fmt.Sprintf("%s / %s / %s", formatMs(s.CycleP50), formatMs(s.CycleP90), formatMs(s.CycleP99))),
		RenderKeyValue("Targets", fmt.Sprintf("%d (%d unreachable)", s.LastTargets, s.LastUnreachable)),
	}
	if m.refreshInterval > 0 {
		rows = append(rows, RenderKeyValue("Refresh", m.refreshInterval.String()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Collection Cycles")}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func (m Model) renderCollectors() string {
	header := tableHeaderStyle.Render(
		fmt.Sprintf("%-14s %-8s %-8s %-9s %-10s %s", "Collector", "OK", "Failed", "Rate", "P50", "Last error"),
	)

	var rows []string
	for i, c := range m.stats.Collectors {
		rowStyle := tableRowEvenStyle
		if i%2 == 1 {
			rowStyle = tableRowOddStyle
		}

		rate := 0.0
		if total := c.Successes + c.Failures; total > 0 {
			rate = float64(c.Successes) / float64(total)
		}
		lastErr := c.LastError
		if maxLen := m.width - 60; maxLen > 10 && len(lastErr) > maxLen {
			lastErr = lastErr[:maxLen-3] + "..."
		}

		row := fmt.Sprintf("%-14s %-8s %-8s %-9s %-10s %s",
			c.Name,
			formatNumber(c.Successes),
			formatNumber(c.Failures),
			GetSuccessRateStyle(rate).Render(formatPercent(rate)),
			formatMs(c.DurationP50),
			lastErr,
		)
		rows = append(rows, rowStyle.Render(row))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Collectors"), header}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Machines Table (Detailed View)
// =============================================================================

func (m Model) renderMachineTable() string {
	if m.snapshot == nil {
		return boxStyle.Width(m.width - 2).Render(
			dimStyle.Render("No snapshot yet. Press 'd' to toggle."),
		)
	}

	header := tableHeaderStyle.Render(
		fmt.Sprintf("%-20s %-14s %-10s %-8s %-8s %-9s", "Machine", "State", "Version", "Units", "Failed", "Unhealthy"),
	)

	names := make([]string, 0, len(m.snapshot.Machines))
	for name := range m.snapshot.Machines {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := []string{renderMachineRow(collector.HostName, &m.snapshot.MachineStats, tableRowEvenStyle)}
	for i, name := range names {
		rowStyle := tableRowOddStyle
		if i%2 == 1 {
			rowStyle = tableRowEvenStyle
		}
		ms := m.snapshot.Machines[name]
		rows = append(rows, renderMachineRow(name, &ms, rowStyle))
	}
	if len(names) == 0 {
		rows = append(rows, dimStyle.Render("No containers discovered."))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Machines"), header}, rows...)...,
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

func renderMachineRow(name string, ms *collector.MachineStats, rowStyle lipgloss.Style) string {
	state, version, total, failed, unhealthy := "-", "-", "-", "-", "-"
	if ms.SystemState != nil {
		state = ms.SystemState.String()
	}
	if ms.Version != nil {
		version = fmt.Sprintf("%d", ms.Version.Major)
	}
	if u := ms.Units; u != nil {
		total = formatNumber(int64(u.TotalUnits))
		failed = formatNumber(int64(u.FailedUnits))
		unhealthy = fmt.Sprintf("%d", len(u.UnhealthyUnits()))
	}
	return rowStyle.Render(fmt.Sprintf("%-20s %-14s %-10s %-8s %-8s %-9s", name, state, version, total, failed, unhealthy))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"q: quit",
		"d: toggle machines",
		"r: refresh",
	}

	left := dimStyle.Render(strings.Join(shortcuts, " │ "))
	right := dimStyle.Render("Updated: " + m.lastUpdate.Format("15:04:05"))

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}
