package symcache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordEnsure is called after every staleness check.
	RecordEnsure(status Status, duration time.Duration, err error)

	// RecordRebuild is called after a cache was rebuilt from its dump.
	// symbols is the number of distinct symbols, size the cache file size.
	RecordRebuild(symbols int, size int64, duration time.Duration, err error)

	// RecordFetch is called after a mirror download attempt.
	RecordFetch(size int64, duration time.Duration, err error)

	// RecordPush is called after a mirror upload attempt.
	RecordPush(size int64, duration time.Duration, err error)

	// RecordLookup is called after each symbol lookup.
	RecordLookup(found bool, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEnsure(Status, time.Duration, error)      {}
func (NoopMetricsCollector) RecordRebuild(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordFetch(int64, time.Duration, error)        {}
func (NoopMetricsCollector) RecordPush(int64, time.Duration, error)         {}
func (NoopMetricsCollector) RecordLookup(bool, time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EnsureFresh       atomic.Int64
	EnsureErrors      atomic.Int64
	RebuildCount      atomic.Int64
	RebuildErrors     atomic.Int64
	RebuildTotalNanos atomic.Int64
	RebuildBytes      atomic.Int64
	FetchCount        atomic.Int64
	FetchErrors       atomic.Int64
	FetchBytes        atomic.Int64
	PushCount         atomic.Int64
	PushErrors        atomic.Int64
	PushBytes         atomic.Int64
	LookupCount       atomic.Int64
	LookupHits        atomic.Int64
	LookupErrors      atomic.Int64
	LookupTotalNanos  atomic.Int64
}

// RecordEnsure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEnsure(status Status, _ time.Duration, err error) {
	if err != nil {
		b.EnsureErrors.Add(1)
		return
	}
	if status == StatusFresh {
		b.EnsureFresh.Add(1)
	}
}

// RecordRebuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRebuild(_ int, size int64, duration time.Duration, err error) {
	b.RebuildCount.Add(1)
	b.RebuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RebuildErrors.Add(1)
		return
	}
	b.RebuildBytes.Add(size)
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(size int64, _ time.Duration, err error) {
	b.FetchCount.Add(1)
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchBytes.Add(size)
}

// RecordPush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPush(size int64, _ time.Duration, err error) {
	b.PushCount.Add(1)
	if err != nil {
		b.PushErrors.Add(1)
		return
	}
	b.PushBytes.Add(size)
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(found bool, duration time.Duration, err error) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LookupErrors.Add(1)
	}
	if found {
		b.LookupHits.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EnsureFresh:     b.EnsureFresh.Load(),
		EnsureErrors:    b.EnsureErrors.Load(),
		RebuildCount:    b.RebuildCount.Load(),
		RebuildErrors:   b.RebuildErrors.Load(),
		RebuildAvgNanos: avg(b.RebuildTotalNanos.Load(), b.RebuildCount.Load()),
		RebuildBytes:    b.RebuildBytes.Load(),
		FetchCount:      b.FetchCount.Load(),
		FetchErrors:     b.FetchErrors.Load(),
		FetchBytes:      b.FetchBytes.Load(),
		PushCount:       b.PushCount.Load(),
		PushErrors:      b.PushErrors.Load(),
		PushBytes:       b.PushBytes.Load(),
		LookupCount:     b.LookupCount.Load(),
		LookupHits:      b.LookupHits.Load(),
		LookupErrors:    b.LookupErrors.Load(),
		LookupAvgNanos:  avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EnsureFresh     int64
	EnsureErrors    int64
	RebuildCount    int64
	RebuildErrors   int64
	RebuildAvgNanos int64
	RebuildBytes    int64
	FetchCount      int64
	FetchErrors     int64
	FetchBytes      int64
	PushCount       int64
	PushErrors      int64
	PushBytes       int64
	LookupCount     int64
	LookupHits      int64
	LookupErrors    int64
	LookupAvgNanos  int64
}
