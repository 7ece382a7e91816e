package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Verify critical defaults
	if cfg.DBusAddress != "unix:path=/run/dbus/system_bus_socket" {
		t.Errorf("DBusAddress = %q", cfg.DBusAddress)
	}
	if cfg.DBusTimeout != 30*time.Second {
		t.Errorf("DBusTimeout = %v, want 30s", cfg.DBusTimeout)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", cfg.RefreshInterval)
	}
	if cfg.OutputFormat != FormatJSON {
		t.Errorf("OutputFormat = %q, want json", cfg.OutputFormat)
	}
	if !cfg.Pid1Enabled || !cfg.SystemStateEnabled || !cfg.TimersEnabled || !cfg.UnitsEnabled {
		t.Error("pid1, system-state, timers and units should be enabled by default")
	}
	if !cfg.MachinesEnabled || !cfg.DBusStatsEnabled {
		t.Error("machines and dbus should be enabled by default")
	}
	if cfg.NetworkdEnabled || cfg.BootEnabled || cfg.VerifyEnabled || cfg.VarlinkEnabled {
		t.Error("networkd, boot, verify and varlink should be disabled by default")
	}
	if cfg.StateStats || !cfg.TimeInState {
		t.Error("state_stats off and state_stats_time_in_state on by default")
	}
	if cfg.NumSlowestUnits != 5 {
		t.Errorf("NumSlowestUnits = %d, want 5", cfg.NumSlowestUnits)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// =============================================================================
// INI loading
// =============================================================================

const sampleINI = `
[monitord]
dbus_address = unix:path=/tmp/bus
dbus_timeout = 5
daemon = true
daemon_stats_refresh_secs = 60
key_prefix = monitord
output_format = json-flat

[networkd]
enabled = true
link_state_dir = /tmp/links

[pid1]
enabled = false

[services]
sshd.service
chronyd.service

[units]
state_stats = true
state_stats_time_in_state = false

[units.state_stats.allowlist]
sshd.service

[units.state_stats.blocklist]
foo.service

[machines.blocklist]
noisy

[dbus]
user_stats = true
peer_stats = true
cgroup_stats = true

[boot]
enabled = true
num_slowest_units = 10

[verify]
enabled = true

[verify.blocklist]
broken.service

[varlink]
enabled = true
socket_path = /tmp/varlink
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleINI))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.DBusAddress != "unix:path=/tmp/bus" || cfg.DBusTimeout != 5*time.Second {
		t.Errorf("dbus = %q %v", cfg.DBusAddress, cfg.DBusTimeout)
	}
	if !cfg.Daemon || cfg.RefreshInterval != time.Minute {
		t.Errorf("daemon = %v %v", cfg.Daemon, cfg.RefreshInterval)
	}
	if cfg.KeyPrefix != "monitord" || cfg.OutputFormat != FormatJSONFlat {
		t.Errorf("output = %q %q", cfg.KeyPrefix, cfg.OutputFormat)
	}
	if !cfg.NetworkdEnabled || cfg.LinkStateDir != "/tmp/links" {
		t.Errorf("networkd = %v %q", cfg.NetworkdEnabled, cfg.LinkStateDir)
	}
	if cfg.Pid1Enabled {
		t.Error("pid1 should be disabled")
	}
	if !reflect.DeepEqual(cfg.Services, []string{"chronyd.service", "sshd.service"}) {
		t.Errorf("Services = %v", cfg.Services)
	}
	if !cfg.StateStats || cfg.TimeInState {
		t.Errorf("state stats = %v time in state = %v", cfg.StateStats, cfg.TimeInState)
	}
	if !reflect.DeepEqual(cfg.StateStatsAllow, []string{"sshd.service"}) ||
		!reflect.DeepEqual(cfg.StateStatsBlock, []string{"foo.service"}) {
		t.Errorf("state stats lists = %v / %v", cfg.StateStatsAllow, cfg.StateStatsBlock)
	}
	if cfg.MachinesAllow != nil || !reflect.DeepEqual(cfg.MachinesBlock, []string{"noisy"}) {
		t.Errorf("machines lists = %v / %v", cfg.MachinesAllow, cfg.MachinesBlock)
	}
	if !cfg.UserStats || !cfg.PeerStats || !cfg.CGroupStats || cfg.PeerWellKnownNamesOnly {
		t.Error("dbus section not applied")
	}
	if !cfg.BootEnabled || cfg.NumSlowestUnits != 10 {
		t.Errorf("boot = %v %d", cfg.BootEnabled, cfg.NumSlowestUnits)
	}
	if !cfg.VerifyEnabled || !cfg.VerifyFilter().Excludes("broken.service") {
		t.Error("verify blocklist not applied")
	}
	if !cfg.VarlinkEnabled || cfg.VarlinkSocketPath != "/tmp/varlink" {
		t.Errorf("varlink = %v %q", cfg.VarlinkEnabled, cfg.VarlinkSocketPath)
	}

	// Unset sections keep defaults.
	if !cfg.TimersEnabled || !cfg.SystemStateEnabled {
		t.Error("unset sections should keep defaults")
	}
}

func TestParse_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		ini   string
		field string
	}{
		{"bool", "[pid1]\nenabled = maybe\n", "pid1.enabled"},
		{"timeout", "[monitord]\ndbus_timeout = soon\n", "monitord.dbus_timeout"},
		{"refresh", "[monitord]\ndaemon_stats_refresh_secs = -1\n", "monitord.daemon_stats_refresh_secs"},
		{"slowest", "[boot]\nnum_slowest_units = many\n", "boot.num_slowest_units"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.ini))
			if err == nil {
				t.Fatal("expected error")
			}
			var ve ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("error = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitord.conf")
	if err := os.WriteFile(path, []byte("[monitord]\noutput_format = yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputFormat != FormatYAML || cfg.ConfigPath != path {
		t.Errorf("cfg = %q %q", cfg.OutputFormat, cfg.ConfigPath)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.conf")); err == nil {
		t.Error("missing explicit config should error")
	}
}

// =============================================================================
// Flags and environment
// =============================================================================

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs
}

func TestApplyOverrides_Flags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputFormat = FormatYAML // from a file

	fs := newFlagSet(t, "--daemon", "--log-level=debug", "-v")
	if err := ApplyOverrides(cfg, fs); err != nil {
		t.Fatal(err)
	}
	if !cfg.Daemon || cfg.LogLevel != "debug" || !cfg.Verbose {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.OutputFormat != FormatYAML {
		t.Errorf("unset flag overrode file value: %q", cfg.OutputFormat)
	}
}

func TestApplyOverrides_Env(t *testing.T) {
	t.Setenv("MONITORD_OUTPUT_FORMAT", "table")
	t.Setenv("MONITORD_DBUS_ADDRESS", "unix:path=/env/bus")
	t.Setenv("MONITORD_DAEMON", "true")

	cfg := DefaultConfig()
	if err := ApplyOverrides(cfg, newFlagSet(t, "--output-format=prometheus")); err != nil {
		t.Fatal(err)
	}
	if cfg.OutputFormat != FormatPrometheus {
		t.Errorf("OutputFormat = %q, flag should win over env", cfg.OutputFormat)
	}
	if cfg.DBusAddress != "unix:path=/env/bus" || !cfg.Daemon {
		t.Errorf("env not applied: %q %v", cfg.DBusAddress, cfg.Daemon)
	}
}

func TestConfigPath(t *testing.T) {
	if got := ConfigPath(newFlagSet(t)); got != DefaultPath {
		t.Errorf("ConfigPath() = %q, want %q", got, DefaultPath)
	}
	if got := ConfigPath(newFlagSet(t, "--config", "/tmp/x.conf")); got != "/tmp/x.conf" {
		t.Errorf("ConfigPath() = %q", got)
	}
	t.Setenv("MONITORD_CONFIG", "/env/monitord.conf")
	if got := ConfigPath(newFlagSet(t)); got != "/env/monitord.conf" {
		t.Errorf("ConfigPath() = %q, want env value", got)
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf, newFlagSet(t))
	out := buf.String()
	for _, want := range []string{"Run Mode:", "--daemon", "-v, --verbose", "--output-format string"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage missing %q:\n%s", want, out)
		}
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"output format", func(c *Config) { c.OutputFormat = "xml" }, "output_format"},
		{"empty address", func(c *Config) { c.DBusAddress = "" }, "dbus_address"},
		{"timeout", func(c *Config) { c.DBusTimeout = 0 }, "dbus_timeout"},
		{"refresh", func(c *Config) { c.Daemon = true; c.RefreshInterval = 0 }, "daemon_stats_refresh_secs"},
		{"slowest", func(c *Config) { c.BootEnabled = true; c.NumSlowestUnits = 0 }, "num_slowest_units"},
		{"link dir", func(c *Config) { c.NetworkdEnabled = true; c.LinkStateDir = "" }, "link_state_dir"},
		{"varlink socket", func(c *Config) { c.VarlinkEnabled = true; c.VarlinkSocketPath = "" }, "socket_path"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"tui without daemon", func(c *Config) { c.TUIEnabled = true }, "tui"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err, tt.field)
			}
		})
	}
}

func TestValidate_RefreshIgnoredOutsideDaemon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefreshInterval = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("one-shot mode should not check the interval: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputFormat = "xml"
	cfg.DBusTimeout = 0
	cfg.LogFormat = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected multiple errors")
	}

	errStr := err.Error()
	for _, field := range []string{"output_format", "dbus_timeout", "log_format"} {
		if !strings.Contains(errStr, field) {
			t.Errorf("Error should mention %s", field)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test_field",
		Message: "test message",
	}

	errStr := err.Error()
	if errStr != "test_field: test message" {
		t.Errorf("Error string = %q, want %q", errStr, "test_field: test message")
	}
}
