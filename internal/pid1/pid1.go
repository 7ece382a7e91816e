// Package pid1 reports resource usage of the service manager process: pid
// 1 on the host, or a container's leader as seen from the host.
package pid1

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// userHZ is the kernel's USER_HZ, fixed at 100 on every Linux architecture
// procfs supports.
const userHZ = 100

// Stats are whole seconds of CPU time plus memory, fd and task counts.
type Stats struct {
	CPUTimeKernel    uint64 `json:"cpu_time_kernel" yaml:"cpu_time_kernel"`
	CPUTimeUser      uint64 `json:"cpu_time_user" yaml:"cpu_time_user"`
	MemoryUsageBytes uint64 `json:"memory_usage_bytes" yaml:"memory_usage_bytes"`
	FDCount          uint64 `json:"fd_count" yaml:"fd_count"`
	Tasks            uint64 `json:"tasks" yaml:"tasks"`
}

// Collect reads /proc/<pid>/stat and the fd directory under procRoot.
func Collect(procRoot string, pid int) (*Stats, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", procRoot, err)
	}
	proc, err := fs.Proc(pid)
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return nil, fmt.Errorf("pid %d stat: %w", pid, err)
	}
	fds, err := proc.FileDescriptorsLen()
	if err != nil {
		return nil, fmt.Errorf("pid %d fds: %w", pid, err)
	}

	return &Stats{
		CPUTimeKernel:    uint64(stat.STime) / userHZ,
		CPUTimeUser:      uint64(stat.UTime) / userHZ,
		MemoryUsageBytes: uint64(stat.ResidentMemory()),
		FDCount:          uint64(fds),
		Tasks:            uint64(stat.NumThreads),
	}, nil
}
