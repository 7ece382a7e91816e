package collector

import (
	"path/filepath"
	"strconv"

	"github.com/randomizedcoder/go-monitord/internal/machines"
)

// HostName identifies the host target in logs and statistics.
const HostName = "host"

// Target is the host or one container. Container paths are reached
// through the leader's /proc/<pid>/root.
type Target struct {
	Name    string
	Leader  uint32
	Address string
}

// HostTarget returns the host target on the given bus address.
func HostTarget(address string) Target {
	return Target{Name: HostName, Leader: 1, Address: address}
}

// ContainerTarget returns the target for a discovered container.
func ContainerTarget(c machines.Container) Target {
	return Target{Name: c.Name, Leader: c.Leader, Address: c.BusAddress()}
}

// IsHost reports whether t is the host.
func (t Target) IsHost() bool {
	return t.Name == HostName
}

// Root is the target's filesystem root as seen from the host.
func (t Target) Root() string {
	if t.IsHost() {
		return "/"
	}
	return filepath.Join("/proc", strconv.FormatUint(uint64(t.Leader), 10), "root")
}

// Path joins p onto the target's root.
func (t Target) Path(p string) string {
	return filepath.Join(t.Root(), p)
}

// ProcRoot is the target's own procfs, where pids are in its namespace.
func (t Target) ProcRoot() string {
	return t.Path("/proc")
}
