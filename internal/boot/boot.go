// Package boot reports the slowest units to activate during boot, like
// `systemd-analyze blame` but limited to the N slowest.
package boot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

// Blame maps unit name to activation time in seconds.
type Blame map[string]float64

// ActivationTime is ActiveEnterTimestamp - InactiveExitTimestamp in
// seconds, or 0 when either timestamp is unset.
func ActivationTime(inactiveExit, activeEnter uint64) float64 {
	if inactiveExit == 0 || activeEnter == 0 || activeEnter < inactiveExit {
		return 0
	}
	return float64(activeEnter-inactiveExit) / 1e6
}

// Collect returns the n slowest admitted units. Units without an
// activation time or whose properties cannot be read are skipped.
func Collect(ctx context.Context, mgr systemd.Manager, filter units.Filter, n int, logger *slog.Logger) (Blame, error) {
	listed, err := mgr.ListUnitsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	type entry struct {
		unit string
		secs float64
	}
	var times []entry
	for _, u := range listed {
		if !filter.Admits(u.Name) {
			continue
		}
		props, err := mgr.GetUnitPropertiesContext(ctx, u.Name)
		if err != nil {
			logger.Debug("boot_blame_unit_failed", "unit", u.Name, "error", err)
			continue
		}
		r := systemd.Reader{Props: props}
		secs := ActivationTime(r.Uint64("InactiveExitTimestamp"), r.Uint64("ActiveEnterTimestamp"))
		if r.Err != nil {
			logger.Debug("boot_blame_unit_failed", "unit", u.Name, "error", r.Err)
			continue
		}
		if secs > 0 {
			times = append(times, entry{u.Name, secs})
		}
	}

	sort.SliceStable(times, func(i, j int) bool { return times[i].secs > times[j].secs })
	if n >= 0 && len(times) > n {
		times = times[:n]
	}

	blame := make(Blame, len(times))
	for _, e := range times {
		blame[e.unit] = e.secs
	}
	return blame, nil
}
