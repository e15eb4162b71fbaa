package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	cyclesCompleted atomic.Uint64
	cyclesDropped   atomic.Uint64
	quotesFetched   atomic.Uint64
	staleQuotes     atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	fetchLatencySumNs atomic.Int64
	fetchLatencyCount atomic.Uint64
	cycleLatencySumNs atomic.Int64

	// Gauges
	watchedItems    atomic.Int32
	activeObservers atomic.Int32
	circuitOpen     atomic.Int32 // 1 = open, 0 = closed
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordFetch records one upstream lookup with its latency.
func (m *Metrics) RecordFetch(latencyNs int64) {
	m.quotesFetched.Add(1)
	m.fetchLatencySumNs.Add(latencyNs)
	m.fetchLatencyCount.Add(1)
}

// RecordCycle records a completed refresh cycle.
func (m *Metrics) RecordCycle(latencyNs int64, items, stale int) {
	m.cyclesCompleted.Add(1)
	m.cycleLatencySumNs.Add(latencyNs)
	m.staleQuotes.Add(uint64(stale))
	m.watchedItems.Store(int32(items))
}

// RecordDropped records a trigger ignored because a cycle was in flight.
func (m *Metrics) RecordDropped() {
	m.cyclesDropped.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementObservers increments live observers by 1.
func (m *Metrics) IncrementObservers() {
	m.activeObservers.Add(1)
}

// DecrementObservers decrements live observers by 1.
func (m *Metrics) DecrementObservers() {
	m.activeObservers.Add(-1)
}

// SetCircuitState sets the circuit breaker state (true = open).
func (m *Metrics) SetCircuitState(open bool) {
	if open {
		m.circuitOpen.Store(1)
	} else {
		m.circuitOpen.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CyclesCompleted   uint64
	CyclesDropped     uint64
	QuotesFetched     uint64
	StaleQuotes       uint64
	ErrorsTotal       uint64
	AvgFetchLatencyNs int64
	AvgCycleLatencyNs int64
	WatchedItems      int32
	ActiveObservers   int32
	CircuitOpen       bool
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgFetch, avgCycle int64
	if count := m.fetchLatencyCount.Load(); count > 0 {
		avgFetch = m.fetchLatencySumNs.Load() / int64(count)
	}
	cycles := m.cyclesCompleted.Load()
	if cycles > 0 {
		avgCycle = m.cycleLatencySumNs.Load() / int64(cycles)
	}

	return MetricsSnapshot{
		CyclesCompleted:   cycles,
		CyclesDropped:     m.cyclesDropped.Load(),
		QuotesFetched:     m.quotesFetched.Load(),
		StaleQuotes:       m.staleQuotes.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgFetchLatencyNs: avgFetch,
		AvgCycleLatencyNs: avgCycle,
		WatchedItems:      m.watchedItems.Load(),
		ActiveObservers:   m.activeObservers.Load(),
		CircuitOpen:       m.circuitOpen.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.cyclesCompleted.Store(0)
	m.cyclesDropped.Store(0)
	m.quotesFetched.Store(0)
	m.staleQuotes.Store(0)
	m.errorsTotal.Store(0)
	m.fetchLatencySumNs.Store(0)
	m.fetchLatencyCount.Store(0)
	m.cycleLatencySumNs.Store(0)
	m.watchedItems.Store(0)
	m.activeObservers.Store(0)
	m.circuitOpen.Store(0)
}
