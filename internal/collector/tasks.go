package collector

import (
	"context"
	"log/slog"

	"github.com/randomizedcoder/go-monitord/internal/boot"
	"github.com/randomizedcoder/go-monitord/internal/config"
	"github.com/randomizedcoder/go-monitord/internal/dbusstats"
	"github.com/randomizedcoder/go-monitord/internal/networkd"
	"github.com/randomizedcoder/go-monitord/internal/pid1"
	"github.com/randomizedcoder/go-monitord/internal/process"
	"github.com/randomizedcoder/go-monitord/internal/system"
	"github.com/randomizedcoder/go-monitord/internal/timers"
	"github.com/randomizedcoder/go-monitord/internal/units"
	"github.com/randomizedcoder/go-monitord/internal/varlink"
	"github.com/randomizedcoder/go-monitord/internal/verify"
)

// Collector names, as used in logs and cycle statistics.
const (
	NameNetworkd     = "networkd"
	NamePid1         = "pid1"
	NameSystemState  = "system_state"
	NameUnits        = "units"
	NameVarlinkUnits = "varlink_units"
	NameTimers       = "timers"
	NameDBusStats    = "dbus_stats"
	NameBootBlame    = "boot_blame"
	NameVerify       = "verify_stats"
	NameVersion      = "version"
)

// Task is one collector run against one target. Each task writes only its
// own field of out, so a target's tasks can run concurrently on one record.
type Task struct {
	Name string
	Run  func(ctx context.Context, out *MachineStats) error
}

// Builder builds the tasks for a target.
type Builder func(target Target, sess Session) []Task

// NewBuilder returns the Builder for cfg.
func NewBuilder(cfg *config.Config, logger *slog.Logger) Builder {
	return func(target Target, sess Session) []Task {
		return Tasks(cfg, target, sess, logger)
	}
}

// Tasks returns the enabled collectors for target. The version task is
// not included; see VersionTask.
func Tasks(cfg *config.Config, target Target, sess Session, logger *slog.Logger) []Task {
	logger = logger.With("target", target.Name)
	mgr := sess.Manager()
	var tasks []Task

	if cfg.NetworkdEnabled {
		dir := target.Path(cfg.LinkStateDir)
		// Interface indexes only resolve in the host's namespace.
		var resolve networkd.NameResolver
		if target.IsHost() {
			resolve = networkd.HostNames
		}
		tasks = append(tasks, Task{NameNetworkd, func(_ context.Context, out *MachineStats) error {
			s, err := networkd.Collect(dir, resolve, logger)
			if err != nil {
				return err
			}
			out.Networkd = s
			return nil
		}})
	}

	if cfg.Pid1Enabled {
		tasks = append(tasks, Task{NamePid1, func(_ context.Context, out *MachineStats) error {
			s, err := pid1.Collect("/proc", int(target.Leader))
			if err != nil {
				return err
			}
			out.Pid1 = s
			return nil
		}})
	}

	if cfg.SystemStateEnabled {
		tasks = append(tasks, Task{NameSystemState, func(ctx context.Context, out *MachineStats) error {
			st, err := system.CollectState(ctx, mgr)
			if err != nil {
				return err
			}
			out.SystemState = &st
			return nil
		}})
	}

	if cfg.UnitsEnabled {
		classic := units.NewClassic(mgr, units.ClassicConfig{
			StateStats:  cfg.StateStats,
			TimeInState: cfg.TimeInState,
			Filter:      cfg.StateStatsFilter(),
			Services:    cfg.Services,
			CgroupRoot:  target.Path(units.DefaultCgroupRoot),
		}, logger)
		tasks = append(tasks, Task{NameUnits, func(ctx context.Context, out *MachineStats) error {
			s, err := classic.Collect(ctx)
			if err != nil {
				return err
			}
			out.Units = s
			return nil
		}})
	}

	if cfg.VarlinkEnabled {
		client := varlink.NewClient(target.Path(cfg.VarlinkSocketPath), cfg.DBusTimeout, logger)
		proc := units.NewProcessor(cfg.StateStatsFilter(), logger)
		tasks = append(tasks, Task{NameVarlinkUnits, func(ctx context.Context, out *MachineStats) error {
			s, err := proc.Fold(client.ListMetrics(ctx))
			if err != nil {
				return err
			}
			out.VarlinkUnits = s
			return nil
		}})
	}

	if cfg.TimersEnabled {
		filter := cfg.TimersFilter()
		tasks = append(tasks, Task{NameTimers, func(ctx context.Context, out *MachineStats) error {
			s, err := timers.Collect(ctx, mgr, filter, logger)
			if err != nil {
				return err
			}
			out.Timers = s
			return nil
		}})
	}

	if cfg.DBusStatsEnabled {
		dcfg := dbusstats.Config{
			UserStats:              cfg.UserStats,
			PeerStats:              cfg.PeerStats,
			PeerWellKnownNamesOnly: cfg.PeerWellKnownNamesOnly,
			CGroupStats:            cfg.CGroupStats,
		}
		bus := sess.Broker()
		tasks = append(tasks, Task{NameDBusStats, func(ctx context.Context, out *MachineStats) error {
			var cgroups dbusstats.CGroupResolver
			if dcfg.CGroupStats {
				pc, err := dbusstats.NewProcCGroups(target.ProcRoot())
				if err != nil {
					return err
				}
				cgroups = pc
			}
			s, err := dbusstats.NewCollector(bus, dcfg, cgroups, logger).Collect(ctx)
			if err != nil {
				return err
			}
			out.DBusStats = s
			return nil
		}})
	}

	if cfg.BootEnabled {
		filter, n := cfg.BootFilter(), cfg.NumSlowestUnits
		tasks = append(tasks, Task{NameBootBlame, func(ctx context.Context, out *MachineStats) error {
			b, err := boot.Collect(ctx, mgr, filter, n, logger)
			if err != nil {
				return err
			}
			out.BootBlame = &b
			return nil
		}})
	}

	// systemd-analyze runs against the host's unit files only.
	if cfg.VerifyEnabled && target.IsHost() {
		filter := cfg.VerifyFilter()
		verifier := verify.ExecVerifier(process.NewAnalyzeRunner(cfg.AnalyzePath), logger, cfg.Verbose)
		tasks = append(tasks, Task{NameVerify, func(ctx context.Context, out *MachineStats) error {
			s, err := verify.Collect(ctx, mgr, filter, verifier, logger)
			if err != nil {
				return err
			}
			out.VerifyStats = s
			return nil
		}})
	}

	return tasks
}

// VersionTask reads the systemd version. It runs for every target but is
// not counted as a scheduled collector.
func VersionTask(sess Session) Task {
	mgr := sess.Manager()
	return Task{NameVersion, func(ctx context.Context, out *MachineStats) error {
		v, err := system.CollectVersion(ctx, mgr)
		if err != nil {
			return err
		}
		out.Version = v
		return nil
	}}
}
