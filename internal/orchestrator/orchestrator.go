// Package orchestrator runs collection cycles: it reaches each target,
// fans its collectors out concurrently and merges the results into one
// snapshot.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-monitord/internal/collector"
	"github.com/randomizedcoder/go-monitord/internal/config"
	"github.com/randomizedcoder/go-monitord/internal/machines"
	"github.com/randomizedcoder/go-monitord/internal/stats"
)

// ErrNothingCollected is returned when no scheduled collector succeeded on
// the host.
var ErrNothingCollected = errors.New("no collector succeeded on the host")

// Discoverer lists the containers to collect from this cycle.
type Discoverer interface {
	Discover(ctx context.Context) ([]machines.Container, error)
}

// Emitter receives each snapshot.
type Emitter func(ctx context.Context, snap *collector.MonitordStats) error

// Options wires an Orchestrator.
type Options struct {
	Config     *config.Config
	Connector  collector.Connector
	Builder    collector.Builder
	Discoverer Discoverer // nil: host only
	Aggregator *stats.Aggregator
	Logger     *slog.Logger

	// SummaryWriter receives the exit summary when the daemon loop stops.
	SummaryWriter io.Writer
}

// Orchestrator runs collection cycles over the host and its containers.
type Orchestrator struct {
	config     *config.Config
	connector  collector.Connector
	builder    collector.Builder
	discoverer Discoverer
	aggregator *stats.Aggregator
	logger     *slog.Logger
	summary    io.Writer

	// mu guards the snapshot being assembled and the last complete one.
	mu     sync.Mutex
	latest *collector.MonitordStats

	startTime time.Time
}

// New creates an Orchestrator. Builder defaults to the configured
// collector set and Aggregator to a fresh one.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := opts.Builder
	if builder == nil {
		builder = collector.NewBuilder(opts.Config, logger)
	}
	agg := opts.Aggregator
	if agg == nil {
		agg = stats.NewAggregator()
	}
	return &Orchestrator{
		config:     opts.Config,
		connector:  opts.Connector,
		builder:    builder,
		discoverer: opts.Discoverer,
		aggregator: agg,
		logger:     logger,
		summary:    opts.SummaryWriter,
	}
}

// Collect runs one cycle: the host first, then each discovered container
// in turn. Unreachable targets are logged and left out. The snapshot is
// always returned; the error is ErrNothingCollected when the host yielded
// nothing.
func (o *Orchestrator) Collect(ctx context.Context) (*collector.MonitordStats, error) {
	start := time.Now()
	snap := collector.NewMonitordStats()
	result := stats.CycleResult{}

	host := collector.HostTarget(o.config.DBusAddress)
	rec, succeeded, err := o.collectTarget(ctx, host)
	if err != nil {
		o.logger.Error("target_unreachable", "target", host.Name, "address", host.Address, "error", err)
		result.Unreachable++
	} else {
		o.mu.Lock()
		snap.MachineStats = rec
		o.mu.Unlock()
		result.Targets++
	}
	hostOK := succeeded > 0

	for _, target := range o.containers(ctx) {
		rec, succeeded, err := o.collectTarget(ctx, target)
		if err != nil {
			o.logger.Warn("target_unreachable", "target", target.Name, "address", target.Address, "error", err)
			result.Unreachable++
			continue
		}
		if succeeded == 0 {
			o.logger.Warn("target_nothing_collected", "target", target.Name)
		}
		if rec.Empty() {
			o.logger.Warn("target_record_empty", "target", target.Name)
			result.Targets++
			continue
		}
		o.mu.Lock()
		snap.Machines[target.Name] = rec
		o.mu.Unlock()
		result.Targets++
	}

	result.Duration = time.Since(start)
	result.Failed = !hostOK
	o.aggregator.RecordCycle(result)

	o.mu.Lock()
	o.latest = snap
	o.mu.Unlock()

	o.logger.Info("cycle_complete",
		"duration", result.Duration.String(),
		"targets", result.Targets,
		"unreachable", result.Unreachable,
	)

	if !hostOK {
		return snap, ErrNothingCollected
	}
	return snap, nil
}

// containers returns this cycle's container targets, or none when machine
// collection is off or discovery fails.
func (o *Orchestrator) containers(ctx context.Context) []collector.Target {
	if !o.config.MachinesEnabled || o.discoverer == nil {
		return nil
	}
	found, err := o.discoverer.Discover(ctx)
	if errors.Is(err, machines.ErrMachinedBackoff) {
		o.logger.Debug("machines_discovery_deferred", "error", err)
		return nil
	}
	if err != nil {
		o.logger.Error("machines_discovery_failed", "error", err)
		return nil
	}
	targets := make([]collector.Target, 0, len(found))
	for _, c := range found {
		targets = append(targets, collector.ContainerTarget(c))
	}
	return targets
}

// collectTarget connects to target and runs every task concurrently on one
// record. It returns the record and how many scheduled collectors
// succeeded; the version task is not counted. The error is only for a
// failed connection.
func (o *Orchestrator) collectTarget(ctx context.Context, target collector.Target) (collector.MachineStats, int, error) {
	var rec collector.MachineStats

	sess, err := o.connector.Connect(ctx, target.Address)
	if err != nil {
		return rec, 0, err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			o.logger.Debug("session_close_failed", "target", target.Name, "error", err)
		}
	}()

	tasks := o.builder(target, sess)
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	run := func(task collector.Task, scheduled bool) {
		defer wg.Done()
		start := time.Now()
		err := o.runTask(ctx, task, &rec)
		elapsed := time.Since(start)
		if scheduled {
			o.aggregator.RecordCollector(task.Name, elapsed, err)
		}
		if err != nil {
			o.logger.Error("collector_failed",
				"target", target.Name,
				"collector", task.Name,
				"duration", elapsed.String(),
				"error", err,
			)
			return
		}
		if scheduled {
			succeeded.Add(1)
		}
	}

	wg.Add(len(tasks) + 1)
	go run(collector.VersionTask(sess), false)
	for _, task := range tasks {
		go run(task, true)
	}
	wg.Wait()

	o.logger.Debug("target_collected",
		"target", target.Name,
		"collectors", len(tasks),
		"succeeded", succeeded.Load(),
	)
	return rec, int(succeeded.Load()), nil
}

// runTask bounds a task by the D-Bus timeout and turns a panic into an
// error.
func (o *Orchestrator) runTask(ctx context.Context, task collector.Task, out *collector.MachineStats) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if o.config.DBusTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.DBusTimeout)
		defer cancel()
	}
	return task.Run(ctx, out)
}

// Run collects once, or in daemon mode every refresh interval until ctx is
// cancelled or SIGINT/SIGTERM arrives. Every snapshot goes to emit. In
// one-shot mode ErrNothingCollected is returned after emitting; in daemon
// mode it is logged and the loop continues.
func (o *Orchestrator) Run(ctx context.Context, emit Emitter) error {
	o.startTime = time.Now()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !o.config.Daemon {
		snap, collectErr := o.Collect(ctx)
		if err := emit(ctx, snap); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return collectErr
	}

	o.logger.Info("daemon_starting", "interval", o.config.RefreshInterval.String())
	for {
		start := time.Now()
		snap, err := o.Collect(ctx)
		if ctx.Err() != nil {
			return o.stopDaemon(ctx)
		}
		if errors.Is(err, ErrNothingCollected) {
			o.logger.Error("nothing_collected")
		}
		if err := emit(ctx, snap); err != nil {
			o.logger.Error("output_failed", "error", err)
		}

		wait := max(o.config.RefreshInterval-time.Since(start), 0)
		select {
		case <-ctx.Done():
			return o.stopDaemon(ctx)
		case <-time.After(wait):
		}
	}
}

func (o *Orchestrator) stopDaemon(ctx context.Context) error {
	o.logger.Info("daemon_stopping", "reason", context.Cause(ctx))
	o.printExitSummary()
	return nil
}

// printExitSummary writes the run's statistics to the summary writer.
func (o *Orchestrator) printExitSummary() {
	if o.summary == nil {
		return
	}
	fmt.Fprint(o.summary, stats.FormatExitSummary(o.aggregator.Aggregate(), stats.SummaryConfig{
		Duration:        time.Since(o.startTime),
		RefreshInterval: o.config.RefreshInterval,
		ShowErrors:      o.config.Verbose,
	}))
}

// Latest returns the most recent complete snapshot, or nil before the
// first cycle ends.
func (o *Orchestrator) Latest() *collector.MonitordStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest
}

// Aggregator returns the cycle statistics for external access.
func (o *Orchestrator) Aggregator() *stats.Aggregator {
	return o.aggregator
}
