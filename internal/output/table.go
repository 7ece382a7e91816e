package output

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/randomizedcoder/go-monitord/internal/collector"
)

// writeTable prints one summary row per target followed by the unhealthy
// units of every target.
func writeTable(w io.Writer, snap *collector.MonitordStats, hostName string) error {
	fmt.Fprintf(w, "monitord snapshot: %s\n", hostName)

	table := tablewriter.NewWriter(w)
	table.Header("Machine", "State", "Version", "Units", "Active", "Failed", "Jobs", "Unhealthy")
	for _, t := range targets(snap) {
		if err := table.Append(summaryRow(t.name, t.stats)); err != nil {
			return fmt.Errorf("table row %s: %w", t.name, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	unhealthy := tablewriter.NewWriter(w)
	unhealthy.Header("Machine", "Unit", "Active", "Load")
	rows := 0
	for _, t := range targets(snap) {
		if t.stats.Units == nil {
			continue
		}
		names := t.stats.Units.UnhealthyUnits()
		slices.Sort(names)
		for _, name := range names {
			us := t.stats.Units.UnitStates[name]
			if err := unhealthy.Append([]string{t.name, name, us.ActiveState.String(), us.LoadState.String()}); err != nil {
				return fmt.Errorf("table row %s: %w", name, err)
			}
			rows++
		}
	}
	if rows == 0 {
		fmt.Fprintln(w, "No unhealthy units.")
		return nil
	}
	if err := unhealthy.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

type namedStats struct {
	name  string
	stats *collector.MachineStats
}

// targets returns the host followed by containers sorted by name.
func targets(snap *collector.MonitordStats) []namedStats {
	out := []namedStats{{collector.HostName, &snap.MachineStats}}
	names := make([]string, 0, len(snap.Machines))
	for name := range snap.Machines {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		m := snap.Machines[name]
		out = append(out, namedStats{name, &m})
	}
	return out
}

func summaryRow(name string, m *collector.MachineStats) []string {
	row := []string{name, "-", "-", "-", "-", "-", "-", "-"}
	if m.SystemState != nil {
		row[1] = m.SystemState.String()
	}
	if m.Version != nil {
		row[2] = m.Version.String()
	}
	if u := m.Units; u != nil {
		row[3] = strconv.FormatUint(u.TotalUnits, 10)
		row[4] = strconv.FormatUint(u.ActiveUnits, 10)
		row[5] = strconv.FormatUint(u.FailedUnits, 10)
		row[6] = strconv.FormatUint(u.JobsQueued, 10)
		row[7] = strconv.Itoa(len(u.UnhealthyUnits()))
	}
	return row
}

// HostName returns the local host name, preferring gopsutil's view of the
// host over the kernel hostname.
func HostName() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return collector.HostName
}
