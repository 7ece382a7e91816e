// Package verify counts units that fail `systemd-analyze verify`.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/randomizedcoder/go-monitord/internal/process"
	"github.com/randomizedcoder/go-monitord/internal/systemd"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

// Stats counts failing units in total and per unit type. Only types with
// at least one failure appear in ByType.
type Stats struct {
	Total  uint64            `yaml:"total"`
	ByType map[string]uint64 `yaml:",inline"`
}

// MarshalJSON flattens ByType next to total: {"total":2,"service":2}.
func (s Stats) MarshalJSON() ([]byte, error) {
	m := make(map[string]uint64, len(s.ByType)+1)
	for k, v := range s.ByType {
		m[k] = v
	}
	m["total"] = s.Total
	return json.Marshal(m)
}

// Verifier reports whether unit fails verification. An error means the
// check itself could not run.
type Verifier func(ctx context.Context, unit string) (failed bool, err error)

// ExecVerifier verifies units with r. A unit fails when the tool exits
// non-zero and wrote something to stderr.
func ExecVerifier(r process.Runner, logger *slog.Logger, verbose bool) Verifier {
	return func(ctx context.Context, unit string) (bool, error) {
		res := process.Run(ctx, r, unit, logger, verbose)
		if res.Error != nil {
			return false, res.Error
		}
		failed := res.ExitCode != 0 && res.StderrLines > 0
		if failed {
			logger.Debug("unit_verify_findings",
				"unit", unit,
				"exit_code", res.ExitCode,
				"stderr_lines", res.StderrLines,
				"problems", res.Problems,
			)
		}
		return failed, nil
	}
}

// Collect verifies every listed unit the filter admits. Units whose check
// cannot run are logged and not counted.
func Collect(ctx context.Context, mgr systemd.Manager, filter units.Filter, verify Verifier, logger *slog.Logger) (*Stats, error) {
	listed, err := mgr.ListUnitsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	stats := &Stats{ByType: make(map[string]uint64)}
	for _, u := range listed {
		if !filter.Admits(u.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		failed, err := verify(ctx, u.Name)
		if err != nil {
			logger.Warn("unit_verify_failed", "unit", u.Name, "error", err)
			continue
		}
		if !failed {
			continue
		}
		stats.Total++
		stats.ByType[unitType(u.Name)]++
	}
	return stats, nil
}

// unitType is the suffix after the last dot, or the whole name when there
// is none.
func unitType(name string) string {
	if t := units.UnitType(name); t != "" {
		return t
	}
	return name
}
