// Package stats provides per-collector and per-cycle statistics for
// monitord runs.
//
// This file implements Aggregator which combines:
// - Cycle counts and durations (T-Digest percentiles)
// - Target reachability
// - Per-collector outcomes
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// AggregatedStats holds statistics across every cycle so far.
//
// This is a snapshot - values are computed at the time of Aggregate() call.
type AggregatedStats struct {
	// Timestamp when this snapshot was taken
	Timestamp time.Time
	Uptime    time.Duration

	// Cycles
	Cycles            int64
	FailedCycles      int64 // nothing collected on the host
	LastCycleDuration time.Duration
	CycleP50          time.Duration
	CycleP90          time.Duration
	CycleP99          time.Duration

	// Targets
	LastTargets      int
	TotalUnreachable int64
	LastUnreachable  int

	// Collectors, sorted by name
	CollectorSuccesses int64
	CollectorFailures  int64
	Collectors         []CollectorSummary
}

// CycleResult describes one finished collection cycle.
type CycleResult struct {
	Duration    time.Duration
	Targets     int // targets that produced a record
	Unreachable int
	Failed      bool
}

// Aggregator collects statistics from the orchestrator.
//
// Thread-safe: all methods can be called concurrently.
type Aggregator struct {
	mu         sync.RWMutex
	collectors map[string]*CollectorStats
	startTime  time.Time

	cycles       int64
	failedCycles int64
	unreachable  int64
	last         CycleResult
	cycleDigest  *tdigest.TDigest // seconds
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		collectors:  make(map[string]*CollectorStats),
		startTime:   time.Now(),
		cycleDigest: tdigest.NewWithCompression(100),
	}
}

// Collector returns the stats for name, creating them on first use.
func (a *Aggregator) Collector(name string) *CollectorStats {
	a.mu.RLock()
	s, ok := a.collectors[name]
	a.mu.RUnlock()
	if ok {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.collectors[name]; ok {
		return s
	}
	s = NewCollectorStats(name)
	a.collectors[name] = s
	return s
}

// RecordCollector records one collector run on any target.
func (a *Aggregator) RecordCollector(name string, d time.Duration, err error) {
	a.Collector(name).Record(d, err)
}

// RecordCycle records a finished cycle.
func (a *Aggregator) RecordCycle(r CycleResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cycles++
	if r.Failed {
		a.failedCycles++
	}
	a.unreachable += int64(r.Unreachable)
	a.last = r
	a.cycleDigest.Add(r.Duration.Seconds(), 1)
}

// Aggregate computes a snapshot of all statistics.
func (a *Aggregator) Aggregate() *AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := time.Now()
	result := &AggregatedStats{
		Timestamp:         now,
		Uptime:            now.Sub(a.startTime),
		Cycles:            a.cycles,
		FailedCycles:      a.failedCycles,
		LastCycleDuration: a.last.Duration,
		LastTargets:       a.last.Targets,
		TotalUnreachable:  a.unreachable,
		LastUnreachable:   a.last.Unreachable,
	}
	if a.cycleDigest.Count() > 0 {
		result.CycleP50 = secondsToDuration(a.cycleDigest.Quantile(0.50))
		result.CycleP90 = secondsToDuration(a.cycleDigest.Quantile(0.90))
		result.CycleP99 = secondsToDuration(a.cycleDigest.Quantile(0.99))
	}

	for _, c := range a.collectors {
		sum := c.Summary()
		result.CollectorSuccesses += sum.Successes
		result.CollectorFailures += sum.Failures
		result.Collectors = append(result.Collectors, sum)
	}
	sort.Slice(result.Collectors, func(i, j int) bool {
		return result.Collectors[i].Name < result.Collectors[j].Name
	})
	return result
}

// StartTime returns when the aggregator was created.
func (a *Aggregator) StartTime() time.Time {
	return a.startTime
}

// Elapsed returns the time since the aggregator was created.
func (a *Aggregator) Elapsed() time.Duration {
	return time.Since(a.startTime)
}
