// Package metrics renders monitord snapshots in the Prometheus text
// exposition format.
//
// Every gauge carries a machine label: "host" for the local system and the
// machine name for containers. Gauges are reset before each snapshot is
// applied, so units, peers or links that disappear stop being exported.
package metrics

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/stats"
	"github.com/randomizedcoder/go-monitord/internal/units"
)

type unitState interface {
	~uint8
	String() string
}

// stateHelp lists the numeric encoding of every state after what.
func stateHelp[S unitState](what string, states []S) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = fmt.Sprintf("%d %s", uint8(s), s)
	}
	return what + " (" + strings.Join(parts, ", ") + ")"
}

// =============================================================================
// Host and container metrics
// =============================================================================

// --- Panel 1: Manager ---
var (
	monitordSystemState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_system_state",
			Help: "systemd SystemState (0 unknown, 3 running, 4 degraded)",
		},
		[]string{"machine"},
	)

	monitordVersionInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_systemd_version_info",
			Help: "systemd version (value always 1)",
		},
		[]string{"machine", "version", "major"},
	)
)

// --- Panel 2: Units ---
var (
	monitordUnits = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_units",
			Help: "Units by aggregate counter (active, failed, loaded, total, ...)",
		},
		[]string{"machine", "source", "counter"},
	)

	monitordUnitsByType = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_units_by_type",
			Help: "Units by unit type",
		},
		[]string{"machine", "source", "type"},
	)

	monitordUnitActiveState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_unit_active_state",
			Help: stateHelp("Unit ActiveState", units.AllActiveStates()),
		},
		[]string{"machine", "source", "unit"},
	)

	monitordUnitLoadState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_unit_load_state",
			Help: stateHelp("Unit LoadState", units.AllLoadStates()),
		},
		[]string{"machine", "source", "unit"},
	)

	monitordUnitUnhealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_unit_unhealthy",
			Help: "1 when the unit is classified unhealthy",
		},
		[]string{"machine", "source", "unit"},
	)

	monitordUnitTimeInState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_unit_time_in_state_seconds",
			Help: "Seconds since the unit's last state change",
		},
		[]string{"machine", "source", "unit"},
	)

	monitordService = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_service",
			Help: "Service property (nrestarts, memory_current, cpuusage_nsec, ...)",
		},
		[]string{"machine", "source", "unit", "property"},
	)
)

// --- Panel 3: Timers ---
var (
	monitordTimers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_timers",
			Help: "Timers by aggregate counter (persistent, remain_after_elapse)",
		},
		[]string{"machine", "counter"},
	)

	monitordTimerLastTrigger = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_timer_last_trigger_usec",
			Help: "Realtime of the timer's last trigger in microseconds",
		},
		[]string{"machine", "unit"},
	)

	monitordTimerNextElapse = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_timer_next_elapse_usec",
			Help: "Realtime of the timer's next elapse in microseconds",
		},
		[]string{"machine", "unit"},
	)
)

// --- Panel 4: PID 1 ---
var (
	monitordPid1 = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_pid1",
			Help: "PID 1 resource usage (cpu_time_kernel, memory_usage_bytes, fd_count, ...)",
		},
		[]string{"machine", "resource"},
	)
)

// --- Panel 5: networkd ---
var (
	monitordNetworkdManagedInterfaces = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_networkd_managed_interfaces",
			Help: "Links with a networkd state file",
		},
		[]string{"machine"},
	)

	monitordNetworkdState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_networkd_interface_state",
			Help: "Link state enum value by kind (oper, carrier, admin, online, address)",
		},
		[]string{"machine", "interface", "kind"},
	)
)

// --- Panel 6: D-Bus broker ---
var (
	monitordDBus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_dbus_stat",
			Help: "Broker-wide statistic",
		},
		[]string{"machine", "stat"},
	)

	monitordDBusPeer = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_dbus_peer",
			Help: "Per-peer accounting counter",
		},
		[]string{"machine", "peer", "counter"},
	)

	monitordDBusUser = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_dbus_user_usage",
			Help: "Per-user quota usage (max minus remaining)",
		},
		[]string{"machine", "user", "resource"},
	)

	monitordDBusCGroup = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_dbus_cgroup",
			Help: "Per-cgroup sum of peer accounting counters",
		},
		[]string{"machine", "cgroup", "counter"},
	)
)

// --- Panel 7: Boot and verify ---
var (
	monitordBootBlame = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_boot_blame_seconds",
			Help: "Activation time of the slowest units",
		},
		[]string{"machine", "unit"},
	)

	monitordVerifyFailing = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_verify_failing_units",
			Help: "Units failing systemd-analyze verify, by unit type",
		},
		[]string{"machine", "type"},
	)
)

// =============================================================================
// Collector self metrics
// =============================================================================

var (
	monitordCycles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_cycles",
			Help: "Collection cycles by outcome (total, failed)",
		},
		[]string{"outcome"},
	)

	monitordCycleSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_cycle_duration_seconds",
			Help: "Collection cycle duration percentiles",
		},
		[]string{"quantile"},
	)

	monitordCollectorRuns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitord_collector_runs",
			Help: "Collector runs by outcome (success, failure)",
		},
		[]string{"collector", "outcome"},
	)
)

// snapshotVecs are reset before every snapshot.
var snapshotVecs = []*prometheus.GaugeVec{
	monitordSystemState,
	monitordVersionInfo,
	monitordUnits,
	monitordUnitsByType,
	monitordUnitActiveState,
	monitordUnitLoadState,
	monitordUnitUnhealthy,
	monitordUnitTimeInState,
	monitordService,
	monitordTimers,
	monitordTimerLastTrigger,
	monitordTimerNextElapse,
	monitordPid1,
	monitordNetworkdManagedInterfaces,
	monitordNetworkdState,
	monitordDBus,
	monitordDBusPeer,
	monitordDBusUser,
	monitordDBusCGroup,
	monitordBootBlame,
	monitordVerifyFailing,
}

var selfVecs = []*prometheus.GaugeVec{
	monitordCycles,
	monitordCycleSeconds,
	monitordCollectorRuns,
}

// =============================================================================
// Exporter
// =============================================================================

// Exporter owns a registry holding the monitord gauges.
type Exporter struct {
	mu       sync.Mutex
	registry *prometheus.Registry
}

// NewExporter registers the gauges with a fresh registry.
func NewExporter() *Exporter {
	return NewExporterWithRegistry(prometheus.NewRegistry())
}

// NewExporterWithRegistry registers the gauges with the given registry.
// Useful for testing.
func NewExporterWithRegistry(registry *prometheus.Registry) *Exporter {
	for _, v := range snapshotVecs {
		registry.MustRegister(v)
	}
	for _, v := range selfVecs {
		registry.MustRegister(v)
	}
	return &Exporter{registry: registry}
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Update replaces the exported values with the snapshot.
func (e *Exporter) Update(snap *collector.MonitordStats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range snapshotVecs {
		v.Reset()
	}
	if snap == nil {
		return
	}
	setMachine(collector.HostName, &snap.MachineStats)
	for name, m := range snap.Machines {
		setMachine(name, &m)
	}
}

// RecordAggregate exports the collector's own cycle and run statistics.
func (e *Exporter) RecordAggregate(agg *stats.AggregatedStats) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range selfVecs {
		v.Reset()
	}
	if agg == nil {
		return
	}
	monitordCycles.WithLabelValues("total").Set(float64(agg.Cycles))
	monitordCycles.WithLabelValues("failed").Set(float64(agg.FailedCycles))
	monitordCycleSeconds.WithLabelValues("0.5").Set(agg.CycleP50.Seconds())
	monitordCycleSeconds.WithLabelValues("0.9").Set(agg.CycleP90.Seconds())
	monitordCycleSeconds.WithLabelValues("0.99").Set(agg.CycleP99.Seconds())
	for _, c := range agg.Collectors {
		monitordCollectorRuns.WithLabelValues(c.Name, "success").Set(float64(c.Successes))
		monitordCollectorRuns.WithLabelValues(c.Name, "failure").Set(float64(c.Failures))
	}
}

// WriteText gathers the registry and writes it in the text format.
func (e *Exporter) WriteText(w io.Writer) error {
	e.mu.Lock()
	families, err := e.registry.Gather()
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// =============================================================================
// Per-machine setters
// =============================================================================

func setMachine(machine string, m *collector.MachineStats) {
	if m.SystemState != nil {
		monitordSystemState.WithLabelValues(machine).Set(float64(*m.SystemState))
	}
	if m.Version != nil {
		monitordVersionInfo.WithLabelValues(machine, m.Version.String(), strconv.FormatUint(uint64(m.Version.Major), 10)).Set(1)
	}
	setUnits(machine, "dbus", m.Units)
	setUnits(machine, "varlink", m.VarlinkUnits)
	setTimers(machine, m)
	setPid1(machine, m)
	setNetworkd(machine, m)
	setDBus(machine, m)

	if m.BootBlame != nil {
		for unit, secs := range *m.BootBlame {
			monitordBootBlame.WithLabelValues(machine, unit).Set(secs)
		}
	}
	if m.VerifyStats != nil {
		monitordVerifyFailing.WithLabelValues(machine, "total").Set(float64(m.VerifyStats.Total))
		for typ, n := range m.VerifyStats.ByType {
			monitordVerifyFailing.WithLabelValues(machine, typ).Set(float64(n))
		}
	}
}
