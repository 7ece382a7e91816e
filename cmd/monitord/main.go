// Package main provides the monitord CLI entry point.
//
// monitord collects systemd health statistics from the host and its
// machined containers over D-Bus and prints them once, or periodically in
// daemon mode.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/config"
	"github.com/randomizedcoder/go-monitord/internal/logging"
	"github.com/randomizedcoder/go-monitord/internal/machines"
	"github.com/randomizedcoder/go-monitord/internal/orchestrator"
	"github.com/randomizedcoder/go-monitord/internal/output"
	"github.com/randomizedcoder/go-monitord/internal/preflight"
	"github.com/randomizedcoder/go-monitord/internal/tui"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/monitord
var version = "dev"

var errPreflight = errors.New("preflight checks failed")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "monitord",
		Short: "Collect systemd health statistics",
		Long: `monitord reads unit, timer, service, networkd, PID 1, D-Bus broker, boot
and verify statistics from systemd on the host and every running machined
container, and prints them as json, json-flat, json-pretty, yaml, table or
prometheus text.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitord(cmd.Context(), cmd.Flags(), stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	config.RegisterFlags(root.Flags())
	root.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\nUsage:\n  monitord [flags]\n  monitord version\n\n", cmd.Long)
		config.PrintUsage(cmd.OutOrStdout(), cmd.Flags())
	})

	root.AddCommand(newVersionCmd(stdout))
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the monitord version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "monitord %s\n", version)
		},
	}
}

// loadConfig layers defaults, the INI file, MONITORD_* variables and
// explicit flags, then validates the result.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(config.ConfigPath(fs))
	if err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(cfg, fs); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

func runMonitord(ctx context.Context, fs *pflag.FlagSet, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}

	// The dashboard owns the terminal, so logs are discarded while it runs.
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, cfg.LogFormat, cfg.LogLevel)
	} else {
		logger = logging.NewLoggerTo(stderr, cfg.LogFormat, cfg.LogLevel, cfg.Verbose)
	}
	logging.SetDefault(logger)

	if !cfg.SkipPreflight {
		result := preflight.RunAll(cfg)
		if !result.Passed {
			preflight.PrintResults(stderr, result)
			return errPreflight
		}
		if cfg.Verbose {
			preflight.PrintResults(stderr, result)
		}
	}

	logger.Info("starting",
		"version", version,
		"config", cfg.ConfigPath,
		"dbus_address", cfg.DBusAddress,
		"output_format", cfg.OutputFormat,
		"daemon", cfg.Daemon,
		"machines", cfg.MachinesEnabled,
	)
	logger.Debug("unit_filters",
		"state_stats", cfg.StateStatsFilter(),
		"timers", cfg.TimersFilter(),
		"machines", cfg.MachinesFilter(),
		"boot", cfg.BootFilter(),
		"verify", cfg.VerifyFilter(),
	)

	orch := orchestrator.New(orchestrator.Options{
		Config:        cfg,
		Connector:     collector.DBusConnector{},
		Discoverer:    newDiscoverer(cfg, logger),
		Logger:        logger,
		SummaryWriter: stderr,
	})

	if cfg.TUIEnabled {
		return runDashboard(ctx, cfg, orch)
	}

	write, err := output.New(output.Options{
		Format:    cfg.OutputFormat,
		KeyPrefix: cfg.KeyPrefix,
		Aggregate: orch.Aggregator().Aggregate,
	})
	if err != nil {
		return err
	}
	return orch.Run(ctx, func(_ context.Context, snap *collector.MonitordStats) error {
		return write(stdout, snap)
	})
}

// newDiscoverer returns the machined discoverer when container collection
// is enabled. machined is dialed lazily, so a host where it starts late or
// restarts picks containers up on a later cycle.
func newDiscoverer(cfg *config.Config, logger *slog.Logger) orchestrator.Discoverer {
	if !cfg.MachinesEnabled {
		return nil
	}
	lister := machines.NewRedialer(machines.DialAddress(cfg.DBusAddress), machines.DefaultBackoffConfig())
	return machines.NewDiscoverer(lister, cfg.MachinesFilter(), nil, logger)
}

// runDashboard runs the daemon loop behind the terminal dashboard. Quitting
// the dashboard stops the loop.
func runDashboard(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(tui.Config{
		HostName:        output.HostName(),
		RefreshInterval: cfg.RefreshInterval,
		SnapshotSource:  orch,
		StatsSource:     orch.Aggregator(),
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		done <- orch.Run(ctx, func(_ context.Context, snap *collector.MonitordStats) error {
			tui.SendSnapshot(p, snap, orch.Aggregator().Aggregate())
			return nil
		})
		tui.SendQuit(p)
	}()

	_, uiErr := p.Run()
	cancel()
	runErr := <-done
	if uiErr != nil {
		return fmt.Errorf("dashboard: %w", uiErr)
	}
	return runErr
}
