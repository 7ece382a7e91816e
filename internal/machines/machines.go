// Package machines discovers running containers through systemd-machined.
package machines

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/coreos/go-systemd/v22/machine1"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/randomizedcoder/go-monitord/internal/systemd"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

// ClassContainer is the machined class of containers; VMs are skipped.
const ClassContainer = "container"

// MachineLister is the subset of machine1.Conn used for discovery.
type MachineLister interface {
	ListMachines() ([]machine1.MachineStatus, error)
	DescribeMachine(name string) (map[string]interface{}, error)
}

// PidChecker reports whether a pid still exists.
type PidChecker func(ctx context.Context, pid int32) (bool, error)

// Container is one running container and the pid of its init process.
type Container struct {
	Name   string
	Leader uint32
}

// Root is the container's filesystem root as seen from the host.
func (c Container) Root() string {
	return filepath.Join("/proc", strconv.FormatUint(uint64(c.Leader), 10), "root")
}

// BusAddress is the container's system bus socket reached through its root.
func (c Container) BusAddress() string {
	return "unix:path=" + filepath.Join(c.Root(), "run/dbus/system_bus_socket")
}

// Discoverer lists containers on each call; nothing is cached between
// cycles.
type Discoverer struct {
	lister MachineLister
	filter units.Filter
	exists PidChecker
	logger *slog.Logger
}

// NewDiscoverer returns a Discoverer. A nil exists uses gopsutil.
func NewDiscoverer(lister MachineLister, filter units.Filter, exists PidChecker, logger *slog.Logger) *Discoverer {
	if exists == nil {
		exists = process.PidExistsWithContext
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{lister: lister, filter: filter, exists: exists, logger: logger}
}

// Discover returns running containers the filter admits, sorted by name.
// Machines that cannot be described or whose leader has exited are
// skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]Container, error) {
	listed, err := d.lister.ListMachines()
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}

	var out []Container
	for _, m := range listed {
		if m.Class != ClassContainer || !d.filter.Admits(m.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		props, err := d.lister.DescribeMachine(m.Name)
		if err != nil {
			d.logger.Warn("machine_describe_failed", "machine", m.Name, "error", err)
			continue
		}
		leader, err := systemd.Props(props).Uint32("Leader")
		if err != nil || leader == 0 {
			d.logger.Warn("machine_leader_unknown", "machine", m.Name, "error", err)
			continue
		}

		alive, err := d.exists(ctx, int32(leader))
		if err != nil || !alive {
			d.logger.Debug("machine_leader_gone", "machine", m.Name, "leader", leader, "error", err)
			continue
		}
		out = append(out, Container{Name: m.Name, Leader: leader})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
