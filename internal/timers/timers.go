// Package timers collects org.freedesktop.systemd1.Timer properties for
// every timer unit, together with when the unit it triggers last changed
// state.
package timers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

// TimerStats is one timer's schedule and its triggered unit's last state
// change. Timestamps are microseconds.
type TimerStats struct {
	AccuracyUSec                            uint64 `json:"accuracy_usec" yaml:"accuracy_usec"`
	FixedRandomDelay                        bool   `json:"fixed_random_delay" yaml:"fixed_random_delay"`
	LastTriggerUSec                         uint64 `json:"last_trigger_usec" yaml:"last_trigger_usec"`
	LastTriggerUSecMonotonic                uint64 `json:"last_trigger_usec_monotonic" yaml:"last_trigger_usec_monotonic"`
	NextElapseUSecMonotonic                 uint64 `json:"next_elapse_usec_monotonic" yaml:"next_elapse_usec_monotonic"`
	NextElapseUSecRealtime                  uint64 `json:"next_elapse_usec_realtime" yaml:"next_elapse_usec_realtime"`
	Persistent                              bool   `json:"persistent" yaml:"persistent"`
	RandomizedDelayUSec                     uint64 `json:"randomized_delay_usec" yaml:"randomized_delay_usec"`
	RemainAfterElapse                       bool   `json:"remain_after_elapse" yaml:"remain_after_elapse"`
	ServiceUnitLastStateChangeUSec          uint64 `json:"service_unit_last_state_change_usec" yaml:"service_unit_last_state_change_usec"`
	ServiceUnitLastStateChangeUSecMonotonic uint64 `json:"service_unit_last_state_change_usec_monotonic" yaml:"service_unit_last_state_change_usec_monotonic"`
}

// Stats holds every collected timer plus counters of persistent and
// remain-after-elapse timers.
type Stats struct {
	PersistentUnits   uint64                `json:"timer_persistent_units" yaml:"timer_persistent_units"`
	RemainAfterElapse uint64                `json:"timer_remain_after_elapse" yaml:"timer_remain_after_elapse"`
	Timers            map[string]TimerStats `json:"timer_stats" yaml:"timer_stats"`
}

// Collect lists units and reads each admitted *.timer. A timer whose
// properties cannot be read is logged and left out.
func Collect(ctx context.Context, mgr systemd.Manager, filter units.Filter, logger *slog.Logger) (*Stats, error) {
	listed, err := mgr.ListUnitsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	stats := &Stats{Timers: make(map[string]TimerStats)}
	for _, u := range listed {
		if !strings.HasSuffix(u.Name, ".timer") || !filter.Admits(u.Name) {
			continue
		}
		ts, err := collectTimer(ctx, mgr, u.Name, logger)
		if err != nil {
			logger.Warn("timer_stats_failed", "unit", u.Name, "error", err)
			continue
		}
		if ts.Persistent {
			stats.PersistentUnits++
		}
		if ts.RemainAfterElapse {
			stats.RemainAfterElapse++
		}
		stats.Timers[u.Name] = ts
	}
	return stats, nil
}

func collectTimer(ctx context.Context, mgr systemd.Manager, name string, logger *slog.Logger) (TimerStats, error) {
	props, err := mgr.GetUnitTypePropertiesContext(ctx, name, "Timer")
	if err != nil {
		return TimerStats{}, fmt.Errorf("timer properties: %w", err)
	}
	r := systemd.Reader{Props: props}
	ts := TimerStats{
		AccuracyUSec:             r.Uint64("AccuracyUSec"),
		FixedRandomDelay:         r.Bool("FixedRandomDelay"),
		LastTriggerUSec:          r.Uint64("LastTriggerUSec"),
		LastTriggerUSecMonotonic: r.Uint64("LastTriggerUSecMonotonic"),
		NextElapseUSecMonotonic:  r.Uint64("NextElapseUSecMonotonic"),
		NextElapseUSecRealtime:   r.Uint64("NextElapseUSecRealtime"),
		Persistent:               r.Bool("Persistent"),
		RandomizedDelayUSec:      r.Uint64("RandomizedDelayUSec"),
		RemainAfterElapse:        r.Bool("RemainAfterElapse"),
	}
	triggered := r.String("Unit")
	if r.Err != nil {
		return TimerStats{}, r.Err
	}

	if triggered == "" {
		logger.Warn("timer_without_unit", "unit", name)
		return ts, nil
	}
	unitProps, err := mgr.GetUnitPropertiesContext(ctx, triggered)
	if err != nil {
		return TimerStats{}, fmt.Errorf("triggered unit %s: %w", triggered, err)
	}
	u := systemd.Reader{Props: unitProps}
	ts.ServiceUnitLastStateChangeUSec = u.Uint64("StateChangeTimestamp")
	ts.ServiceUnitLastStateChangeUSecMonotonic = u.Uint64("StateChangeTimestampMonotonic")
	if u.Err != nil {
		return TimerStats{}, fmt.Errorf("triggered unit %s: %w", triggered, u.Err)
	}
	return ts, nil
}
