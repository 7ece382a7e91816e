package dbusstats

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/procfs"
)

var errNoUnifiedHierarchy = errors.New("no cgroup v2 entry")

// CGroupResolver maps a peer's pid to its cgroup v2 path.
type CGroupResolver interface {
	CGroupPath(pid uint32) (string, error)
}

// ProcCGroups resolves cgroups through a procfs mount. For a container the
// mount is the container's own /proc, since brokers report pids in their
// own pid namespace.
type ProcCGroups struct {
	fs procfs.FS
}

// NewProcCGroups opens the procfs mounted at procRoot.
func NewProcCGroups(procRoot string) (*ProcCGroups, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", procRoot, err)
	}
	return &ProcCGroups{fs: fs}, nil
}

// CGroupPath returns the unified hierarchy path of pid, e.g.
// /system.slice/sshd.service.
func (p *ProcCGroups) CGroupPath(pid uint32) (string, error) {
	proc, err := p.fs.Proc(int(pid))
	if err != nil {
		return "", err
	}
	cgroups, err := proc.Cgroups()
	if err != nil {
		return "", err
	}
	for _, cg := range cgroups {
		if cg.HierarchyID == 0 {
			return cg.Path, nil
		}
	}
	return "", errNoUnifiedHierarchy
}

// CGroupName turns a cgroup path into a flat name:
// /system.slice/foo.service becomes system.slice-foo.service.
func CGroupName(path string) string {
	return strings.ReplaceAll(strings.Trim(strings.TrimSpace(path), "/"), "/", "-")
}

// GroupByCGroup sums peer counters per cgroup. Peers without a pid or
// whose cgroup cannot be resolved are logged and skipped.
func GroupByCGroup(peers map[string]PeerAccounting, resolver CGroupResolver, logger *slog.Logger) map[string]CGroupAccounting {
	out := make(map[string]CGroupAccounting)
	for _, peer := range peers {
		if peer.ProcessID == nil {
			logger.Debug("peer_cgroup_skipped", "peer", peer.ID, "error", "missing process_id")
			continue
		}
		path, err := resolver.CGroupPath(*peer.ProcessID)
		if err != nil {
			logger.Debug("peer_cgroup_skipped", "peer", peer.ID, "pid", *peer.ProcessID, "error", err)
			continue
		}
		name := CGroupName(path)
		acc, ok := out[name]
		if !ok {
			acc = CGroupAccounting{Name: name}
		}
		acc.add(peer.Counters)
		out[name] = acc
	}
	return out
}
