// Package stats provides per-collector and per-cycle statistics for
// monitord runs.
//
// This file implements CollectorStats which tracks one collector across
// every target and cycle:
// - Success and failure counts
// - The most recent error
// - Run duration percentiles (T-Digest)
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"
)

// CollectorStats holds statistics for one collector name.
//
// Thread-safe: counters are atomic, the digest and last error are guarded
// by mu.
type CollectorStats struct {
	Name string

	successes atomic.Int64
	failures  atomic.Int64

	mu          sync.Mutex
	lastError   string
	lastFailure time.Time
	durations   *tdigest.TDigest // seconds
}

// NewCollectorStats creates stats for the named collector.
func NewCollectorStats(name string) *CollectorStats {
	return &CollectorStats{
		Name:      name,
		durations: tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
	}
}

// Record adds one run. A nil err counts as a success.
func (s *CollectorStats) Record(d time.Duration, err error) {
	if err == nil {
		s.successes.Add(1)
	} else {
		s.failures.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations.Add(d.Seconds(), 1)
	if err != nil {
		s.lastError = err.Error()
		s.lastFailure = time.Now()
	}
}

func (s *CollectorStats) Successes() int64 { return s.successes.Load() }

func (s *CollectorStats) Failures() int64 { return s.failures.Load() }

// CollectorSummary is a point-in-time copy of CollectorStats.
type CollectorSummary struct {
	Name        string
	Successes   int64
	Failures    int64
	LastError   string
	LastFailure time.Time
	DurationP50 time.Duration
	DurationP99 time.Duration
}

// Summary returns a snapshot of the collector's statistics.
func (s *CollectorStats) Summary() CollectorSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := CollectorSummary{
		Name:        s.Name,
		Successes:   s.successes.Load(),
		Failures:    s.failures.Load(),
		LastError:   s.lastError,
		LastFailure: s.lastFailure,
	}
	if s.durations.Count() > 0 {
		sum.DurationP50 = secondsToDuration(s.durations.Quantile(0.50))
		sum.DurationP99 = secondsToDuration(s.durations.Quantile(0.99))
	}
	return sum
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
