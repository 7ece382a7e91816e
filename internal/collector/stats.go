// Package collector defines the per-target result record, how a target is
// reached over D-Bus, and the set of collector tasks run against it.
package collector

import (
	"github.com/randomizedcoder/go-monitord/internal/boot"
	"github.com/randomizedcoder/go-monitord/internal/dbusstats"
	"github.com/randomizedcoder/go-monitord/internal/networkd"
	"github.com/randomizedcoder/go-monitord/internal/pid1"
	"github.com/randomizedcoder/go-monitord/internal/system"
	"github.com/randomizedcoder/go-monitord/internal/timers"
	"github.com/randomizedcoder/go-monitord/internal/units"
	"github.com/randomizedcoder/go-monitord/internal/verify"
)

// MachineStats is everything collected from one target. A nil field means
// the collector was disabled or failed outright; a non-nil field, even an
// empty one, means it ran.
type MachineStats struct {
	Networkd     *networkd.Stats  `json:"networkd,omitempty" yaml:"networkd,omitempty"`
	Pid1         *pid1.Stats      `json:"pid1,omitempty" yaml:"pid1,omitempty"`
	SystemState  *system.State    `json:"system_state,omitempty" yaml:"system_state,omitempty"`
	Units        *units.Stats     `json:"units,omitempty" yaml:"units,omitempty"`
	VarlinkUnits *units.Stats     `json:"varlink_units,omitempty" yaml:"varlink_units,omitempty"`
	Timers       *timers.Stats    `json:"timers,omitempty" yaml:"timers,omitempty"`
	Version      *system.Version  `json:"version,omitempty" yaml:"version,omitempty"`
	DBusStats    *dbusstats.Stats `json:"dbus_stats,omitempty" yaml:"dbus_stats,omitempty"`
	BootBlame    *boot.Blame      `json:"boot_blame,omitempty" yaml:"boot_blame,omitempty"`
	VerifyStats  *verify.Stats    `json:"verify_stats,omitempty" yaml:"verify_stats,omitempty"`
}

// Empty reports whether no collector produced anything.
func (m *MachineStats) Empty() bool {
	return *m == MachineStats{}
}

// MonitordStats is one snapshot: the host's fields at the top level and
// every container under machines.
type MonitordStats struct {
	MachineStats `yaml:",inline"`
	Machines     map[string]MachineStats `json:"machines" yaml:"machines"`
}

// NewMonitordStats returns an empty snapshot.
func NewMonitordStats() *MonitordStats {
	return &MonitordStats{Machines: make(map[string]MachineStats)}
}
