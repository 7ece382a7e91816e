// Package stats provides per-collector and per-cycle statistics for
// monitord runs.
//
// This file implements the exit summary formatter which displays run
// statistics when the daemon stops.
package stats

import (
	"fmt"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Duration is the total run duration
	Duration time.Duration

	// RefreshInterval is the daemon's collection interval
	RefreshInterval time.Duration

	// ShowErrors adds each failing collector's last error
	ShowErrors bool
}

// FormatExitSummary formats aggregated stats for display at program exit.
//
// The summary includes:
// - Run information
// - Cycle duration percentiles
// - Per-collector outcomes
func FormatExitSummary(stats *AggregatedStats, cfg SummaryConfig) string {
	if stats == nil {
		return formatBasicSummary(cfg)
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                              monitord Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	if stats.FailedCycles > 0 {
		fmt.Fprintf(&b, "⚠️  %d of %d cycles collected nothing from the host\n\n",
			stats.FailedCycles, stats.Cycles)
	}

	// Run info
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Refresh Interval:       %s\n", cfg.RefreshInterval)
	fmt.Fprintf(&b, "Cycles:                 %s\n", FormatNumber(stats.Cycles))
	fmt.Fprintf(&b, "Targets (last cycle):   %d\n", stats.LastTargets)
	fmt.Fprintf(&b, "Unreachable (total):    %s\n\n", FormatNumber(stats.TotalUnreachable))

	if stats.Cycles > 0 {
		b.WriteString("Cycle Duration:\n")
		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatMs(stats.CycleP50))
		fmt.Fprintf(&b, "  P90:                  %s\n", FormatMs(stats.CycleP90))
		fmt.Fprintf(&b, "  P99:                  %s\n\n", FormatMs(stats.CycleP99))
	}

	if len(stats.Collectors) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                                  Collectors\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  %-16s %10s %10s %10s %10s\n", "Collector", "OK", "Failed", "P50", "P99")
		b.WriteString("  " + strings.Repeat("─", 60) + "\n")
		for _, c := range stats.Collectors {
			fmt.Fprintf(&b, "  %-16s %10s %10s %10s %10s\n",
				c.Name,
				FormatNumber(c.Successes),
				FormatNumber(c.Failures),
				FormatMs(c.DurationP50),
				FormatMs(c.DurationP99),
			)
		}
		b.WriteString("\n")

		if cfg.ShowErrors {
			for _, c := range stats.Collectors {
				if c.LastError != "" {
					fmt.Fprintf(&b, "  %s: %s\n", c.Name, c.LastError)
				}
			}
		}
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	return b.String()
}

// formatBasicSummary is used when no statistics were gathered.
func formatBasicSummary(cfg SummaryConfig) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                              monitord Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	b.WriteString("(no statistics available)\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	return b.String()
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatBytes formats bytes with KB/MB/GB suffixes.
func FormatBytes(n uint64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}
