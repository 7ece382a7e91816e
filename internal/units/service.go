package units

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
)

// DefaultCgroupRoot is the host's cgroup2 mount point.
const DefaultCgroupRoot = "/sys/fs/cgroup"

// CollectService reads the Service and Unit properties of one service.
// Any missing property fails the whole service so partial records never
// look like real zeros.
func CollectService(ctx context.Context, mgr systemd.Manager, unit, cgroupRoot string) (ServiceStats, error) {
	svcProps, err := mgr.GetUnitTypePropertiesContext(ctx, unit, "Service")
	if err != nil {
		return ServiceStats{}, fmt.Errorf("service properties: %w", err)
	}
	unitProps, err := mgr.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return ServiceStats{}, fmt.Errorf("unit properties: %w", err)
	}

	svc := systemd.Reader{Props: svcProps}
	u := systemd.Reader{Props: unitProps}

	ss := ServiceStats{
		ActiveEnterTimestamp:  u.Uint64("ActiveEnterTimestamp"),
		ActiveExitTimestamp:   u.Uint64("ActiveExitTimestamp"),
		InactiveExitTimestamp: u.Uint64("InactiveExitTimestamp"),
		StateChangeTimestamp:  u.Uint64("StateChangeTimestamp"),
		CPUUsageNSec:          svc.Uint64("CPUUsageNSec"),
		IOReadBytes:           svc.Uint64("IOReadBytes"),
		IOReadOperations:      svc.Uint64("IOReadOperations"),
		MemoryAvailable:       svc.Uint64("MemoryAvailable"),
		MemoryCurrent:         svc.Uint64("MemoryCurrent"),
		NRestarts:             svc.Uint32("NRestarts"),
		RestartUSec:           svc.Uint64("RestartUSec"),
		StatusErrno:           svc.Int32("StatusErrno"),
		TasksCurrent:          svc.Uint64("TasksCurrent"),
		TimeoutCleanUSec:      svc.Uint64("TimeoutCleanUSec"),
		WatchdogUSec:          svc.Uint64("WatchdogUSec"),
	}
	if u.Err != nil {
		return ServiceStats{}, u.Err
	}
	if svc.Err != nil {
		return ServiceStats{}, svc.Err
	}

	// Process count is best effort: a stopped service has no cgroup.
	if cg, err := systemd.Props(svcProps).String("ControlGroup"); err == nil && cg != "" {
		ss.Processes = countProcesses(filepath.Join(cgroupRoot, cg, "cgroup.procs"))
	}
	return ss, nil
}

// countProcesses counts pids listed in a cgroup.procs file.
func countProcesses(path string) uint32 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	return uint32(bytes.Count(data, []byte{'\n'}))
}
