package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"gopkg.in/ini.v1"
)

// Load reads the INI file at path over the defaults. A missing file at
// DefaultPath is not an error; any other missing path is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.ConfigPath = path

	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := apply(cfg, f); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads INI text over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := apply(cfg, f); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apply(cfg *Config, f *ini.File) error {
	var errs []error
	boolKey := func(section, key string, dst *bool) {
		k := f.Section(section).Key(key)
		if k.String() == "" {
			return
		}
		v, err := k.Bool()
		if err != nil {
			errs = append(errs, ValidationError{Field: section + "." + key, Message: "must be a boolean"})
			return
		}
		*dst = v
	}

	m := f.Section("monitord")
	cfg.DBusAddress = m.Key("dbus_address").MustString(cfg.DBusAddress)
	if k := m.Key("dbus_timeout"); k.String() != "" {
		secs, err := k.Uint()
		if err != nil {
			errs = append(errs, ValidationError{Field: "monitord.dbus_timeout", Message: "must be whole seconds"})
		} else {
			cfg.DBusTimeout = time.Duration(secs) * time.Second
		}
	}
	boolKey("monitord", "daemon", &cfg.Daemon)
	if k := m.Key("daemon_stats_refresh_secs"); k.String() != "" {
		secs, err := k.Uint()
		if err != nil {
			errs = append(errs, ValidationError{Field: "monitord.daemon_stats_refresh_secs", Message: "must be whole seconds"})
		} else {
			cfg.RefreshInterval = time.Duration(secs) * time.Second
		}
	}
	cfg.KeyPrefix = m.Key("key_prefix").MustString(cfg.KeyPrefix)
	cfg.OutputFormat = m.Key("output_format").MustString(cfg.OutputFormat)

	boolKey("networkd", "enabled", &cfg.NetworkdEnabled)
	cfg.LinkStateDir = f.Section("networkd").Key("link_state_dir").MustString(cfg.LinkStateDir)

	boolKey("pid1", "enabled", &cfg.Pid1Enabled)
	cfg.Services = names(f, "services")
	boolKey("system-state", "enabled", &cfg.SystemStateEnabled)

	boolKey("timers", "enabled", &cfg.TimersEnabled)
	cfg.TimersAllow = names(f, "timers.allowlist")
	cfg.TimersBlock = names(f, "timers.blocklist")

	boolKey("units", "enabled", &cfg.UnitsEnabled)
	boolKey("units", "state_stats", &cfg.StateStats)
	boolKey("units", "state_stats_time_in_state", &cfg.TimeInState)
	cfg.StateStatsAllow = names(f, "units.state_stats.allowlist")
	cfg.StateStatsBlock = names(f, "units.state_stats.blocklist")

	boolKey("machines", "enabled", &cfg.MachinesEnabled)
	cfg.MachinesAllow = names(f, "machines.allowlist")
	cfg.MachinesBlock = names(f, "machines.blocklist")

	boolKey("dbus", "enabled", &cfg.DBusStatsEnabled)
	boolKey("dbus", "user_stats", &cfg.UserStats)
	boolKey("dbus", "peer_stats", &cfg.PeerStats)
	boolKey("dbus", "peer_well_known_names_only", &cfg.PeerWellKnownNamesOnly)
	boolKey("dbus", "cgroup_stats", &cfg.CGroupStats)

	boolKey("boot", "enabled", &cfg.BootEnabled)
	if k := f.Section("boot").Key("num_slowest_units"); k.String() != "" {
		n, err := k.Int()
		if err != nil {
			errs = append(errs, ValidationError{Field: "boot.num_slowest_units", Message: "must be an integer"})
		} else {
			cfg.NumSlowestUnits = n
		}
	}
	cfg.BootAllow = names(f, "boot.allowlist")
	cfg.BootBlock = names(f, "boot.blocklist")

	boolKey("verify", "enabled", &cfg.VerifyEnabled)
	cfg.VerifyAllow = names(f, "verify.allowlist")
	cfg.VerifyBlock = names(f, "verify.blocklist")

	boolKey("varlink", "enabled", &cfg.VarlinkEnabled)
	cfg.VarlinkSocketPath = f.Section("varlink").Key("socket_path").MustString(cfg.VarlinkSocketPath)

	return errors.Join(errs...)
}

// names returns the bare keys of a list section, sorted, or nil when the
// section is absent.
func names(f *ini.File, section string) []string {
	if !f.HasSection(section) {
		return nil
	}
	keys := f.Section(section).KeyStrings()
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return keys
}
