package units

import "strings"

// Stats holds unit counters plus per-service and per-unit detail.
type Stats struct {
	ActiveUnits    uint64 `json:"active_units" yaml:"active_units"`
	AutomountUnits uint64 `json:"automount_units" yaml:"automount_units"`
	DeviceUnits    uint64 `json:"device_units" yaml:"device_units"`
	FailedUnits    uint64 `json:"failed_units" yaml:"failed_units"`
	InactiveUnits  uint64 `json:"inactive_units" yaml:"inactive_units"`
	JobsQueued     uint64 `json:"jobs_queued" yaml:"jobs_queued"`
	LoadedUnits    uint64 `json:"loaded_units" yaml:"loaded_units"`
	MaskedUnits    uint64 `json:"masked_units" yaml:"masked_units"`
	MountUnits     uint64 `json:"mount_units" yaml:"mount_units"`
	NotFoundUnits  uint64 `json:"not_found_units" yaml:"not_found_units"`
	PathUnits      uint64 `json:"path_units" yaml:"path_units"`
	ScopeUnits     uint64 `json:"scope_units" yaml:"scope_units"`
	ServiceUnits   uint64 `json:"service_units" yaml:"service_units"`
	SliceUnits     uint64 `json:"slice_units" yaml:"slice_units"`
	SocketUnits    uint64 `json:"socket_units" yaml:"socket_units"`
	TargetUnits    uint64 `json:"target_units" yaml:"target_units"`
	TimerUnits     uint64 `json:"timer_units" yaml:"timer_units"`
	TotalUnits     uint64 `json:"total_units" yaml:"total_units"`

	ServiceStats map[string]ServiceStats `json:"service_stats" yaml:"service_stats"`
	UnitStates   map[string]UnitState    `json:"unit_states" yaml:"unit_states"`
}

// ServiceStats is the selected subset of org.freedesktop.systemd1.Service
// and Unit properties. The metric stream only ever writes NRestarts.
type ServiceStats struct {
	ActiveEnterTimestamp  uint64 `json:"active_enter_timestamp" yaml:"active_enter_timestamp"`
	ActiveExitTimestamp   uint64 `json:"active_exit_timestamp" yaml:"active_exit_timestamp"`
	CPUUsageNSec          uint64 `json:"cpuusage_nsec" yaml:"cpuusage_nsec"`
	InactiveExitTimestamp uint64 `json:"inactive_exit_timestamp" yaml:"inactive_exit_timestamp"`
	IOReadBytes           uint64 `json:"ioread_bytes" yaml:"ioread_bytes"`
	IOReadOperations      uint64 `json:"ioread_operations" yaml:"ioread_operations"`
	MemoryAvailable       uint64 `json:"memory_available" yaml:"memory_available"`
	MemoryCurrent         uint64 `json:"memory_current" yaml:"memory_current"`
	NRestarts             uint32 `json:"nrestarts" yaml:"nrestarts"`
	Processes             uint32 `json:"processes" yaml:"processes"`
	RestartUSec           uint64 `json:"restart_usec" yaml:"restart_usec"`
	StateChangeTimestamp  uint64 `json:"state_change_timestamp" yaml:"state_change_timestamp"`
	StatusErrno           int32  `json:"status_errno" yaml:"status_errno"`
	TasksCurrent          uint64 `json:"tasks_current" yaml:"tasks_current"`
	TimeoutCleanUSec      uint64 `json:"timeout_clean_usec" yaml:"timeout_clean_usec"`
	WatchdogUSec          uint64 `json:"watchdog_usec" yaml:"watchdog_usec"`
}

// UnitState is one unit's active/load pair and its derived health.
// Unhealthy is only ever set through set* methods so it always matches
// the current pair.
type UnitState struct {
	ActiveState      ActiveState `json:"active_state" yaml:"active_state"`
	LoadState        LoadState   `json:"load_state" yaml:"load_state"`
	Unhealthy        bool        `json:"unhealthy" yaml:"unhealthy"`
	TimeInStateUSecs *uint64     `json:"time_in_state_usecs,omitempty" yaml:"time_in_state_usecs,omitempty"`
}

// NewStats returns empty Stats with initialised maps.
func NewStats() *Stats {
	return &Stats{
		ServiceStats: make(map[string]ServiceStats),
		UnitStates:   make(map[string]UnitState),
	}
}

func (s *Stats) setActiveState(unit string, state ActiveState) {
	us := s.UnitStates[unit]
	us.ActiveState = state
	us.Unhealthy = IsUnhealthy(us.ActiveState, us.LoadState)
	s.UnitStates[unit] = us
}

func (s *Stats) setLoadState(unit string, state LoadState) {
	us := s.UnitStates[unit]
	us.LoadState = state
	us.Unhealthy = IsUnhealthy(us.ActiveState, us.LoadState)
	s.UnitStates[unit] = us
}

func (s *Stats) setRestarts(unit string, n uint32) {
	ss := s.ServiceStats[unit]
	ss.NRestarts = n
	s.ServiceStats[unit] = ss
}

// UnhealthyUnits returns the names of units currently classified unhealthy.
func (s *Stats) UnhealthyUnits() []string {
	var out []string
	for name, us := range s.UnitStates {
		if us.Unhealthy {
			out = append(out, name)
		}
	}
	return out
}

// UnitTypes is the fixed unit-type vocabulary counted per type.
var UnitTypes = []string{
	"automount", "device", "mount", "path", "scope",
	"service", "slice", "socket", "target", "timer",
}

// typeCounter returns the counter for a unit type, or nil when the type is
// not part of UnitTypes.
func (s *Stats) typeCounter(unitType string) *uint64 {
	switch unitType {
	case "automount":
		return &s.AutomountUnits
	case "device":
		return &s.DeviceUnits
	case "mount":
		return &s.MountUnits
	case "path":
		return &s.PathUnits
	case "scope":
		return &s.ScopeUnits
	case "service":
		return &s.ServiceUnits
	case "slice":
		return &s.SliceUnits
	case "socket":
		return &s.SocketUnits
	case "target":
		return &s.TargetUnits
	case "timer":
		return &s.TimerUnits
	default:
		return nil
	}
}

// TypeCounts returns the per-type unit counters keyed by UnitTypes.
func (s *Stats) TypeCounts() map[string]uint64 {
	out := make(map[string]uint64, len(UnitTypes))
	for _, t := range UnitTypes {
		out[t] = *s.typeCounter(t)
	}
	return out
}

// stateCounter returns the aggregate counter for an active state name.
// Only active, failed and inactive are tracked.
func (s *Stats) stateCounter(state string) *uint64 {
	switch state {
	case "active":
		return &s.ActiveUnits
	case "failed":
		return &s.FailedUnits
	case "inactive":
		return &s.InactiveUnits
	default:
		return nil
	}
}

// loadCounter returns the aggregate counter for a load state name.
func (s *Stats) loadCounter(state string) *uint64 {
	switch state {
	case "loaded":
		return &s.LoadedUnits
	case "masked":
		return &s.MaskedUnits
	case "not-found", "not_found":
		return &s.NotFoundUnits
	default:
		return nil
	}
}

// UnitType returns the suffix after the last dot of a unit name.
func UnitType(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i+1:]
}
