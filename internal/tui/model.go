package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// SnapshotMsg carries a freshly collected snapshot.
type SnapshotMsg struct {
	Snapshot *collector.MonitordStats
	Stats    *stats.AggregatedStats
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	hostName        string
	refreshInterval time.Duration

	// Current state
	snapshot     *collector.MonitordStats
	stats        *stats.AggregatedStats
	startTime    time.Time
	lastUpdate   time.Time
	machinesView bool

	// Display options
	width  int
	height int

	snapshotSource SnapshotSource
	statsSource    StatsSource

	quitting bool
}

// SnapshotSource provides the latest snapshot.
type SnapshotSource interface {
	Latest() *collector.MonitordStats
}

// StatsSource provides cycle statistics.
type StatsSource interface {
	Aggregate() *stats.AggregatedStats
}

// Config holds TUI configuration.
type Config struct {
	HostName        string
	RefreshInterval time.Duration
	SnapshotSource  SnapshotSource
	StatsSource     StatsSource
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		hostName:        cfg.HostName,
		refreshInterval: cfg.RefreshInterval,
		snapshotSource:  cfg.SnapshotSource,
		statsSource:     cfg.StatsSource,
		startTime:       time.Now(),
		lastUpdate:      time.Now(),
		width:           80,
		height:          24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "d":
			m.machinesView = !m.machinesView
			return m, nil
		case "r":
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m = m.refresh()
		return m, tickCmd()

	case SnapshotMsg:
		if msg.Snapshot != nil {
			m.snapshot = msg.Snapshot
		}
		if msg.Stats != nil {
			m.stats = msg.Stats
		}
		m.lastUpdate = time.Now()
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// refresh pulls from the sources. A source that has nothing yet keeps the
// previous value.
func (m Model) refresh() Model {
	if m.snapshotSource != nil {
		if snap := m.snapshotSource.Latest(); snap != nil {
			m.snapshot = snap
		}
	}
	if m.statsSource != nil {
		m.stats = m.statsSource.Aggregate()
	}
	m.lastUpdate = time.Now()
	return m
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.machinesView {
		return m.renderMachinesView()
	}
	return m.renderSummaryView()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// Cycles returns the number of completed collection cycles.
func (m Model) Cycles() int64 {
	if m.stats == nil {
		return 0
	}
	return m.stats.Cycles
}

// ActiveRatio returns active units over total units on the host.
func (m Model) ActiveRatio() float64 {
	if m.snapshot == nil || m.snapshot.Units == nil || m.snapshot.Units.TotalUnits == 0 {
		return 0
	}
	u := m.snapshot.Units
	return float64(u.ActiveUnits) / float64(u.TotalUnits)
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendSnapshot sends a snapshot update to the TUI.
func SendSnapshot(p *tea.Program, snap *collector.MonitordStats, agg *stats.AggregatedStats) {
	if p != nil {
		p.Send(SnapshotMsg{Snapshot: snap, Stats: agg})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting (shared with the exit summary)
// =============================================================================

var (
	formatDuration = stats.FormatDuration
	formatNumber   = stats.FormatNumber
	formatBytes    = stats.FormatBytes
	formatMs       = stats.FormatMs
)

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
