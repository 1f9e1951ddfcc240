package shmarena

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Allocation and translation events are recorded on the hot path;
// implementations should be cheap and must be safe for concurrent use.
type MetricsCollector interface {
	// RecordProvision is called after each Create or Attach.
	// bytes is the pool capacity, hugePages reports the backing page size.
	RecordProvision(backing Backing, bytes uint64, hugePages bool, duration time.Duration, err error)

	// RecordAllocate is called after each non-empty allocation attempt.
	RecordAllocate(bytes uint64, err error)

	// RecordTranslate is called after each offset translation.
	RecordTranslate(err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordProvision(Backing, uint64, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordAllocate(uint64, error)                               {}
func (NoopMetricsCollector) RecordTranslate(error)                                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ProvisionCount      atomic.Int64
	ProvisionErrors     atomic.Int64
	ProvisionBytes      atomic.Uint64
	ProvisionHugePages  atomic.Int64
	ProvisionTotalNanos atomic.Int64
	AllocateCount       atomic.Int64
	AllocateErrors      atomic.Int64
	AllocateBytes       atomic.Uint64
	TranslateCount      atomic.Int64
	TranslateErrors     atomic.Int64
}

// RecordProvision implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProvision(_ Backing, bytes uint64, hugePages bool, duration time.Duration, err error) {
	b.ProvisionCount.Add(1)
	b.ProvisionTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ProvisionErrors.Add(1)
		return
	}
	b.ProvisionBytes.Add(bytes)
	if hugePages {
		b.ProvisionHugePages.Add(1)
	}
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(bytes uint64, err error) {
	b.AllocateCount.Add(1)
	if err != nil {
		b.AllocateErrors.Add(1)
		return
	}
	b.AllocateBytes.Add(bytes)
}

// RecordTranslate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTranslate(err error) {
	b.TranslateCount.Add(1)
	if err != nil {
		b.TranslateErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ProvisionCount:     b.ProvisionCount.Load(),
		ProvisionErrors:    b.ProvisionErrors.Load(),
		ProvisionBytes:     b.ProvisionBytes.Load(),
		ProvisionHugePages: b.ProvisionHugePages.Load(),
		ProvisionAvgNanos:  b.getAvgProvisionNanos(),
		AllocateCount:      b.AllocateCount.Load(),
		AllocateErrors:     b.AllocateErrors.Load(),
		AllocateBytes:      b.AllocateBytes.Load(),
		TranslateCount:     b.TranslateCount.Load(),
		TranslateErrors:    b.TranslateErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgProvisionNanos() int64 {
	count := b.ProvisionCount.Load()
	if count == 0 {
		return 0
	}
	return b.ProvisionTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ProvisionCount     int64
	ProvisionErrors    int64
	ProvisionBytes     uint64
	ProvisionHugePages int64
	ProvisionAvgNanos  int64
	AllocateCount      int64
	AllocateErrors     int64
	AllocateBytes      uint64
	TranslateCount     int64
	TranslateErrors    int64
}
