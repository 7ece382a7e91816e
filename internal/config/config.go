// Package config provides configuration management for monitord.
package config

import (
	"time"

	"github.com/randomizedcoder/go-monitord/internal/units"
)

const (
	// DefaultPath is read when --config is not given.
	DefaultPath = "/etc/monitord.conf"

	DefaultDBusAddress   = "unix:path=/run/dbus/system_bus_socket"
	DefaultLinkStateDir  = "/run/systemd/netif/links"
	DefaultVarlinkSocket = "/run/systemd/report/io.systemd.Manager"
)

// Output formats.
const (
	FormatJSON       = "json"
	FormatJSONFlat   = "json-flat"
	FormatJSONPretty = "json-pretty"
	FormatYAML       = "yaml"
	FormatTable      = "table"
	FormatPrometheus = "prometheus"
)

// OutputFormats lists every accepted output_format value.
var OutputFormats = []string{
	FormatJSON, FormatJSONFlat, FormatJSONPretty, FormatYAML, FormatTable, FormatPrometheus,
}

// Config holds all configuration options for monitord.
type Config struct {
	// [monitord]
	DBusAddress     string        `json:"dbus_address"`
	DBusTimeout     time.Duration `json:"dbus_timeout"`
	Daemon          bool          `json:"daemon"`
	RefreshInterval time.Duration `json:"daemon_stats_refresh_secs"`
	KeyPrefix       string        `json:"key_prefix"`
	OutputFormat    string        `json:"output_format"`

	// [networkd]
	NetworkdEnabled bool   `json:"networkd_enabled"`
	LinkStateDir    string `json:"link_state_dir"`

	// [pid1]
	Pid1Enabled bool `json:"pid1_enabled"`

	// [services]
	Services []string `json:"services"`

	// [system-state]
	SystemStateEnabled bool `json:"system_state_enabled"`

	// [timers]
	TimersEnabled bool     `json:"timers_enabled"`
	TimersAllow   []string `json:"timers_allowlist"`
	TimersBlock   []string `json:"timers_blocklist"`

	// [units]
	UnitsEnabled    bool     `json:"units_enabled"`
	StateStats      bool     `json:"state_stats"`
	TimeInState     bool     `json:"state_stats_time_in_state"`
	StateStatsAllow []string `json:"state_stats_allowlist"`
	StateStatsBlock []string `json:"state_stats_blocklist"`

	// [machines]
	MachinesEnabled bool     `json:"machines_enabled"`
	MachinesAllow   []string `json:"machines_allowlist"`
	MachinesBlock   []string `json:"machines_blocklist"`

	// [dbus]
	DBusStatsEnabled       bool `json:"dbus_enabled"`
	UserStats              bool `json:"user_stats"`
	PeerStats              bool `json:"peer_stats"`
	PeerWellKnownNamesOnly bool `json:"peer_well_known_names_only"`
	CGroupStats            bool `json:"cgroup_stats"`

	// [boot]
	BootEnabled     bool     `json:"boot_enabled"`
	NumSlowestUnits int      `json:"num_slowest_units"`
	BootAllow       []string `json:"boot_allowlist"`
	BootBlock       []string `json:"boot_blocklist"`

	// [verify]
	VerifyEnabled bool     `json:"verify_enabled"`
	VerifyAllow   []string `json:"verify_allowlist"`
	VerifyBlock   []string `json:"verify_blocklist"`
	AnalyzePath   string   `json:"analyze_path"`

	// [varlink]
	VarlinkEnabled    bool   `json:"varlink_enabled"`
	VarlinkSocketPath string `json:"varlink_socket_path"`

	// Command line only
	ConfigPath    string `json:"-"`
	LogFormat     string `json:"log_format"` // json, text
	LogLevel      string `json:"log_level"`
	Verbose       bool   `json:"verbose"`
	TUIEnabled    bool   `json:"tui"`
	SkipPreflight bool   `json:"skip_preflight"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		DBusAddress:     DefaultDBusAddress,
		DBusTimeout:     30 * time.Second,
		RefreshInterval: 30 * time.Second,
		OutputFormat:    FormatJSON,

		LinkStateDir: DefaultLinkStateDir,

		Pid1Enabled:        true,
		SystemStateEnabled: true,
		TimersEnabled:      true,

		UnitsEnabled: true,
		TimeInState:  true,

		MachinesEnabled:  true,
		DBusStatsEnabled: true,

		NumSlowestUnits: 5,
		AnalyzePath:     "systemd-analyze",

		VarlinkSocketPath: DefaultVarlinkSocket,

		ConfigPath: DefaultPath,
		LogFormat:  "json",
		LogLevel:   "info",
	}
}

// StateStatsFilter gates per-unit state tracking in both unit paths.
func (c *Config) StateStatsFilter() units.Filter {
	return units.NewFilter(c.StateStatsAllow, c.StateStatsBlock)
}

func (c *Config) TimersFilter() units.Filter {
	return units.NewFilter(c.TimersAllow, c.TimersBlock)
}

func (c *Config) MachinesFilter() units.Filter {
	return units.NewFilter(c.MachinesAllow, c.MachinesBlock)
}

func (c *Config) BootFilter() units.Filter {
	return units.NewFilter(c.BootAllow, c.BootBlock)
}

func (c *Config) VerifyFilter() units.Filter {
	return units.NewFilter(c.VerifyAllow, c.VerifyBlock)
}
