package assetload

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting loader metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordFetch is called when a backend read completes.
	// bytes is the buffer size on success.
	RecordFetch(location StorageLocation, bytes int, duration time.Duration, err error)

	// RecordDecode is called when decoding finishes.
	// ok is false when the decoder produced no artifact.
	RecordDecode(duration time.Duration, ok bool)

	// RecordLoad is called when a task reaches a terminal state through
	// completion, with the time from creation.
	RecordLoad(mode Mode, duration time.Duration, ok bool)

	// RecordCancel is called when an unfinished task is disposed.
	RecordCancel(state State)

	// RecordActiveTasks is called when the number of registered tasks changes.
	RecordActiveTasks(n int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFetch(StorageLocation, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDecode(time.Duration, bool)                       {}
func (NoopMetricsCollector) RecordLoad(Mode, time.Duration, bool)                   {}
func (NoopMetricsCollector) RecordCancel(State)                                     {}
func (NoopMetricsCollector) RecordActiveTasks(int)                                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	FetchCount      atomic.Int64
	FetchErrors     atomic.Int64
	FetchBytes      atomic.Int64
	FetchTotalNanos atomic.Int64

	DecodeCount      atomic.Int64
	DecodeFailures   atomic.Int64
	DecodeTotalNanos atomic.Int64

	LoadCount    atomic.Int64
	LoadFailures atomic.Int64

	CancelCount atomic.Int64
	ActiveTasks atomic.Int64
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(_ StorageLocation, bytes int, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchBytes.Add(int64(bytes))
}

// RecordDecode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecode(duration time.Duration, ok bool) {
	b.DecodeCount.Add(1)
	b.DecodeTotalNanos.Add(duration.Nanoseconds())
	if !ok {
		b.DecodeFailures.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ Mode, _ time.Duration, ok bool) {
	b.LoadCount.Add(1)
	if !ok {
		b.LoadFailures.Add(1)
	}
}

// RecordCancel implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCancel(State) {
	b.CancelCount.Add(1)
}

// RecordActiveTasks implements MetricsCollector.
func (b *BasicMetricsCollector) RecordActiveTasks(n int) {
	b.ActiveTasks.Store(int64(n))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FetchCount:     b.FetchCount.Load(),
		FetchErrors:    b.FetchErrors.Load(),
		FetchBytes:     b.FetchBytes.Load(),
		FetchAvgNanos:  avg(b.FetchTotalNanos.Load(), b.FetchCount.Load()),
		DecodeCount:    b.DecodeCount.Load(),
		DecodeFailures: b.DecodeFailures.Load(),
		DecodeAvgNanos: avg(b.DecodeTotalNanos.Load(), b.DecodeCount.Load()),
		LoadCount:      b.LoadCount.Load(),
		LoadFailures:   b.LoadFailures.Load(),
		CancelCount:    b.CancelCount.Load(),
		ActiveTasks:    b.ActiveTasks.Load(),
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
	FetchCount     int64
	FetchErrors    int64
	FetchBytes     int64
	FetchAvgNanos  int64
	DecodeCount    int64
	DecodeFailures int64
	DecodeAvgNanos int64
	LoadCount      int64
	LoadFailures   int64
	CancelCount    int64
	ActiveTasks    int64
}
