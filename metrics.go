package docquery

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/docquery/optimizer"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// observability package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each single-document insert.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordBatchInsert is called after each InsertMany.
	// count is the number of documents attempted, failed is the number that
	// failed, duration is the total time taken.
	RecordBatchInsert(count, failed int, duration time.Duration)

	// RecordRemove is called after each remove.
	RecordRemove(duration time.Duration, err error)

	// RecordQuery is called after each query. kind names the entry point
	// ("all", "by_example_hash", "execute", ...), results is the number of
	// documents returned.
	RecordQuery(kind string, results int, duration time.Duration, err error)

	// RecordPlan is called for every planned query with the chosen index
	// ("full scan" if none) and whether the plan was empty.
	RecordPlan(index string, empty bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)             {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration)     {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)             {}
func (NoopMetricsCollector) RecordQuery(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPlan(string, bool)                       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount       atomic.Int64
	InsertErrors      atomic.Int64
	InsertTotalNanos  atomic.Int64
	BatchInsertCount  atomic.Int64
	BatchInsertItems  atomic.Int64
	BatchInsertFailed atomic.Int64
	RemoveCount       atomic.Int64
	RemoveErrors      atomic.Int64
	QueryCount        atomic.Int64
	QueryErrors       atomic.Int64
	QueryResults      atomic.Int64
	QueryTotalNanos   atomic.Int64
	PlanCount         atomic.Int64
	EmptyPlans        atomic.Int64
	FullScans         atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordBatchInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchInsert(count, failed int, duration time.Duration) {
	b.BatchInsertCount.Add(1)
	b.BatchInsertItems.Add(int64(count))
	b.BatchInsertFailed.Add(int64(failed))
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(kind string, results int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	b.QueryResults.Add(int64(results))
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordPlan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPlan(index string, empty bool) {
	b.PlanCount.Add(1)
	switch {
	case empty:
		b.EmptyPlans.Add(1)
	case index == optimizer.FullScan:
		b.FullScans.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:       b.InsertCount.Load(),
		InsertErrors:      b.InsertErrors.Load(),
		InsertAvgNanos:    avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		BatchInsertCount:  b.BatchInsertCount.Load(),
		BatchInsertItems:  b.BatchInsertItems.Load(),
		BatchInsertFailed: b.BatchInsertFailed.Load(),
		RemoveCount:       b.RemoveCount.Load(),
		RemoveErrors:      b.RemoveErrors.Load(),
		QueryCount:        b.QueryCount.Load(),
		QueryErrors:       b.QueryErrors.Load(),
		QueryResults:      b.QueryResults.Load(),
		QueryAvgNanos:     avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		PlanCount:         b.PlanCount.Load(),
		EmptyPlans:        b.EmptyPlans.Load(),
		FullScans:         b.FullScans.Load(),
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
	InsertCount       int64
	InsertErrors      int64
	InsertAvgNanos    int64
	BatchInsertCount  int64
	BatchInsertItems  int64
	BatchInsertFailed int64
	RemoveCount       int64
	RemoveErrors      int64
	QueryCount        int64
	QueryErrors       int64
	QueryResults      int64
	QueryAvgNanos     int64
	PlanCount         int64
	EmptyPlans        int64
	FullScans         int64
}
