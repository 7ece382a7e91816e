package units

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
)

// ClassicConfig configures the ListUnits enumeration.
type ClassicConfig struct {
	// StateStats enables per-unit state tracking for units the filter admits.
	StateStats bool

	// TimeInState adds the time since the unit's last state change.
	TimeInState bool

	Filter Filter

	// Services lists units whose service properties are collected.
	Services []string

	// CgroupRoot is the cgroup2 mount point used to count service
	// processes, e.g. /sys/fs/cgroup or /proc/<leader>/root/sys/fs/cgroup.
	CgroupRoot string
}

// Classic counts units from one ListUnits call. It is independent of the
// metric stream path and never shares state with it.
type Classic struct {
	mgr    systemd.Manager
	cfg    ClassicConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewClassic returns a classic enumerator.
func NewClassic(mgr systemd.Manager, cfg ClassicConfig, logger *slog.Logger) *Classic {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CgroupRoot == "" {
		cfg.CgroupRoot = DefaultCgroupRoot
	}
	return &Classic{mgr: mgr, cfg: cfg, logger: logger, now: time.Now}
}

// Collect enumerates units and returns counters, service stats and
// (when enabled) unit states. A ListUnits failure fails the whole call;
// per-service and per-unit property failures are logged and skipped.
func (c *Classic) Collect(ctx context.Context) (*Stats, error) {
	listed, err := c.mgr.ListUnitsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	services := make(map[string]struct{}, len(c.cfg.Services))
	for _, s := range c.cfg.Services {
		services[s] = struct{}{}
	}

	stats := NewStats()
	stats.TotalUnits = uint64(len(listed))
	for _, u := range listed {
		c.count(stats, u)

		if c.cfg.StateStats && c.cfg.Filter.Admits(u.Name) {
			stats.UnitStates[u.Name] = c.unitState(ctx, u)
		}

		if _, wanted := services[u.Name]; wanted {
			ss, err := CollectService(ctx, c.mgr, u.Name, c.cfg.CgroupRoot)
			if err != nil {
				c.logger.Error("service_stats_failed", "unit", u.Name, "error", err)
				continue
			}
			stats.ServiceStats[u.Name] = ss
		}
	}

	c.logger.Debug("units_enumerated",
		"total", stats.TotalUnits,
		"unit_states", len(stats.UnitStates),
		"service_stats", len(stats.ServiceStats),
	)
	return stats, nil
}

// count adds one ListUnits row to the type, load, active and job counters.
func (c *Classic) count(stats *Stats, u systemd.UnitStatus) {
	if ctr := stats.typeCounter(UnitType(u.Name)); ctr != nil {
		*ctr++
	} else {
		c.logger.Debug("unit_type_unhandled", "unit", u.Name)
	}
	if ctr := stats.loadCounter(u.LoadState); ctr != nil {
		*ctr++
	}
	if ctr := stats.stateCounter(u.ActiveState); ctr != nil {
		*ctr++
	}
	if u.JobId != 0 {
		stats.JobsQueued++
	}
}

// unitState builds a UnitState from a ListUnits row. States outside the
// known vocabulary fall back to unknown, which classifies as unhealthy.
func (c *Classic) unitState(ctx context.Context, u systemd.UnitStatus) UnitState {
	active, err := ParseActiveState(u.ActiveState)
	if err != nil {
		c.logger.Debug("unit_state_unrecognized", "unit", u.Name, "error", err)
	}
	load, err := ParseLoadState(u.LoadState)
	if err != nil {
		c.logger.Debug("unit_state_unrecognized", "unit", u.Name, "error", err)
	}

	us := UnitState{
		ActiveState: active,
		LoadState:   load,
		Unhealthy:   IsUnhealthy(active, load),
	}

	if c.cfg.TimeInState {
		props, err := c.mgr.GetUnitPropertiesContext(ctx, u.Name)
		if err != nil {
			c.logger.Debug("unit_properties_failed", "unit", u.Name, "error", err)
			return us
		}
		changed, err := systemd.Props(props).Uint64("StateChangeTimestamp")
		if err != nil || changed == 0 {
			return us
		}
		nowUSec := uint64(c.now().UnixMicro())
		var inState uint64
		if nowUSec > changed {
			inState = nowUSec - changed
		}
		us.TimeInStateUSecs = &inState
	}
	return us
}
