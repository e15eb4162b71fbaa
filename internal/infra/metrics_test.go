package infra

import (
	"testing"
)

func TestMetrics_RecordFetch(t *testing.T) {
	m := &Metrics{}

	m.RecordFetch(1000)
	m.RecordFetch(2000)
	m.RecordFetch(3000)

	snap := m.Snapshot()

	if snap.QuotesFetched != 3 {
		t.Errorf("Expected 3 fetches, got %d", snap.QuotesFetched)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgFetchLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgFetchLatencyNs)
	}
}

func TestMetrics_RecordCycle(t *testing.T) {
	m := &Metrics{}

	m.RecordCycle(4000, 3, 1)
	m.RecordCycle(2000, 2, 2)
	m.RecordDropped()

	snap := m.Snapshot()
	if snap.CyclesCompleted != 2 {
		t.Errorf("Expected 2 cycles, got %d", snap.CyclesCompleted)
	}
	if snap.StaleQuotes != 3 {
		t.Errorf("Expected 3 stale quotes, got %d", snap.StaleQuotes)
	}
	if snap.WatchedItems != 2 {
		t.Errorf("Expected watched items gauge 2, got %d", snap.WatchedItems)
	}
	if snap.AvgCycleLatencyNs != 3000 {
		t.Errorf("Expected avg cycle latency 3000, got %d", snap.AvgCycleLatencyNs)
	}
	if snap.CyclesDropped != 1 {
		t.Errorf("Expected 1 dropped trigger, got %d", snap.CyclesDropped)
	}
}

func TestMetrics_Observers(t *testing.T) {
	m := &Metrics{}

	m.IncrementObservers()
	m.IncrementObservers()
	m.IncrementObservers()

	snap := m.Snapshot()
	if snap.ActiveObservers != 3 {
		t.Errorf("Expected 3 observers, got %d", snap.ActiveObservers)
	}

	m.DecrementObservers()
	snap = m.Snapshot()
	if snap.ActiveObservers != 2 {
		t.Errorf("Expected 2 observers, got %d", snap.ActiveObservers)
	}
}

func TestMetrics_CircuitState(t *testing.T) {
	m := &Metrics{}

	snap := m.Snapshot()
	if snap.CircuitOpen {
		t.Error("Expected circuit closed initially")
	}

	m.SetCircuitState(true)
	snap = m.Snapshot()
	if !snap.CircuitOpen {
		t.Error("Expected circuit open")
	}

	m.SetCircuitState(false)
	snap = m.Snapshot()
	if snap.CircuitOpen {
		t.Error("Expected circuit closed")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordFetch(1000)
	m.RecordError()
	m.IncrementObservers()

	m.Reset()
	snap := m.Snapshot()

	if snap.QuotesFetched != 0 {
		t.Error("Expected 0 fetches after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.ActiveObservers != 0 {
		t.Error("Expected 0 observers after reset")
	}
}
