package metrics

import (
	"strconv"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/dbusstats"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

func setUnits(machine, source string, s *units.Stats) {
	if s == nil {
		return
	}
	for counter, v := range map[string]uint64{
		"active":      s.ActiveUnits,
		"failed":      s.FailedUnits,
		"inactive":    s.InactiveUnits,
		"loaded":      s.LoadedUnits,
		"masked":      s.MaskedUnits,
		"not_found":   s.NotFoundUnits,
		"jobs_queued": s.JobsQueued,
		"total":       s.TotalUnits,
	} {
		monitordUnits.WithLabelValues(machine, source, counter).Set(float64(v))
	}
	for typ, v := range s.TypeCounts() {
		monitordUnitsByType.WithLabelValues(machine, source, typ).Set(float64(v))
	}

	for unit, us := range s.UnitStates {
		monitordUnitActiveState.WithLabelValues(machine, source, unit).Set(float64(us.ActiveState))
		monitordUnitLoadState.WithLabelValues(machine, source, unit).Set(float64(us.LoadState))
		monitordUnitUnhealthy.WithLabelValues(machine, source, unit).Set(boolFloat(us.Unhealthy))
		if us.TimeInStateUSecs != nil {
			monitordUnitTimeInState.WithLabelValues(machine, source, unit).Set(float64(*us.TimeInStateUSecs) / 1e6)
		}
	}

	for unit, ss := range s.ServiceStats {
		for prop, v := range map[string]float64{
			"nrestarts":          float64(ss.NRestarts),
			"cpuusage_nsec":      float64(ss.CPUUsageNSec),
			"memory_current":     float64(ss.MemoryCurrent),
			"memory_available":   float64(ss.MemoryAvailable),
			"ioread_bytes":       float64(ss.IOReadBytes),
			"ioread_operations":  float64(ss.IOReadOperations),
			"tasks_current":      float64(ss.TasksCurrent),
			"processes":          float64(ss.Processes),
			"status_errno":       float64(ss.StatusErrno),
			"restart_usec":       float64(ss.RestartUSec),
			"watchdog_usec":      float64(ss.WatchdogUSec),
			"timeout_clean_usec": float64(ss.TimeoutCleanUSec),
		} {
			monitordService.WithLabelValues(machine, source, unit, prop).Set(v)
		}
	}
}

func setTimers(machine string, m *collector.MachineStats) {
	if m.Timers == nil {
		return
	}
	monitordTimers.WithLabelValues(machine, "persistent").Set(float64(m.Timers.PersistentUnits))
	monitordTimers.WithLabelValues(machine, "remain_after_elapse").Set(float64(m.Timers.RemainAfterElapse))
	for unit, ts := range m.Timers.Timers {
		monitordTimerLastTrigger.WithLabelValues(machine, unit).Set(float64(ts.LastTriggerUSec))
		monitordTimerNextElapse.WithLabelValues(machine, unit).Set(float64(ts.NextElapseUSecRealtime))
	}
}

func setPid1(machine string, m *collector.MachineStats) {
	if m.Pid1 == nil {
		return
	}
	for res, v := range map[string]uint64{
		"cpu_time_kernel":    m.Pid1.CPUTimeKernel,
		"cpu_time_user":      m.Pid1.CPUTimeUser,
		"memory_usage_bytes": m.Pid1.MemoryUsageBytes,
		"fd_count":           m.Pid1.FDCount,
		"tasks":              m.Pid1.Tasks,
	} {
		monitordPid1.WithLabelValues(machine, res).Set(float64(v))
	}
}

func setNetworkd(machine string, m *collector.MachineStats) {
	if m.Networkd == nil {
		return
	}
	monitordNetworkdManagedInterfaces.WithLabelValues(machine).Set(float64(m.Networkd.ManagedInterfaces))
	for _, iface := range m.Networkd.Interfaces {
		for kind, v := range map[string]uint8{
			"oper":         uint8(iface.OperState),
			"carrier":      uint8(iface.CarrierState),
			"admin":        uint8(iface.AdminState),
			"online":       uint8(iface.OnlineState),
			"address":      uint8(iface.AddressState),
			"ipv4_address": uint8(iface.IPv4AddressState),
			"ipv6_address": uint8(iface.IPv6AddressState),
		} {
			monitordNetworkdState.WithLabelValues(machine, iface.Name, kind).Set(float64(v))
		}
	}
}

func setDBus(machine string, m *collector.MachineStats) {
	if m.DBusStats == nil {
		return
	}
	for stat, v := range m.DBusStats.Named() {
		monitordDBus.WithLabelValues(machine, stat).Set(float64(v))
	}
	for id, peer := range m.DBusStats.PeerAccounting {
		name := id
		if peer.WellKnownName != nil {
			name = *peer.WellKnownName
		}
		for counter, v := range peer.Named() {
			monitordDBusPeer.WithLabelValues(machine, name, counter).Set(float64(v))
		}
	}
	for uid, user := range m.DBusStats.UserAccounting {
		name := user.Username
		if name == "" {
			name = strconv.FormatUint(uint64(uid), 10)
		}
		setUserQuota(machine, name, "bytes", user.Bytes)
		setUserQuota(machine, name, "fds", user.Fds)
		setUserQuota(machine, name, "matches", user.Matches)
		setUserQuota(machine, name, "objects", user.Objects)
	}
	for name, cg := range m.DBusStats.CGroupAccounting {
		for counter, v := range cg.Named() {
			monitordDBusCGroup.WithLabelValues(machine, name, counter).Set(float64(v))
		}
	}
}

func setUserQuota(machine, user, resource string, pair *dbusstats.CurMaxPair) {
	if pair != nil {
		monitordDBusUser.WithLabelValues(machine, user, resource).Set(float64(pair.Usage()))
	}
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
