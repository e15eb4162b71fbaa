package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "dexwatch"

// MetricsCollector exposes a Metrics snapshot to Prometheus on every scrape.
type MetricsCollector struct {
	m *Metrics

	cyclesCompleted *prometheus.Desc
	cyclesDropped   *prometheus.Desc
	quotesFetched   *prometheus.Desc
	staleQuotes     *prometheus.Desc
	errorsTotal     *prometheus.Desc
	fetchLatency    *prometheus.Desc
	cycleLatency    *prometheus.Desc
	watchedItems    *prometheus.Desc
	activeObservers *prometheus.Desc
	circuitOpen     *prometheus.Desc
}

// NewMetricsCollector wraps m.
func NewMetricsCollector(m *Metrics) *MetricsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, nil, nil)
	}
	return &MetricsCollector{
		m:               m,
		cyclesCompleted: desc("refresh_cycles_total", "Completed refresh cycles."),
		cyclesDropped:   desc("refresh_triggers_dropped_total", "Refresh triggers dropped while a cycle was in flight."),
		quotesFetched:   desc("quote_fetches_total", "Upstream quote lookups."),
		staleQuotes:     desc("stale_quotes_total", "Stale quotes written to the cache."),
		errorsTotal:     desc("errors_total", "Upstream lookup failures."),
		fetchLatency:    desc("quote_fetch_latency_seconds_avg", "Average upstream lookup latency."),
		cycleLatency:    desc("refresh_cycle_latency_seconds_avg", "Average refresh cycle latency."),
		watchedItems:    desc("watched_items", "Items in the last refreshed watch-list."),
		activeObservers: desc("active_observers", "Connected overlay observers."),
		circuitOpen:     desc("circuit_open", "1 when the quote source circuit is open."),
	}
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cyclesCompleted
	ch <- c.cyclesDropped
	ch <- c.quotesFetched
	ch <- c.staleQuotes
	ch <- c.errorsTotal
	ch <- c.fetchLatency
	ch <- c.cycleLatency
	ch <- c.watchedItems
	ch <- c.activeObservers
	ch <- c.circuitOpen
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()

	circuit := 0.0
	if snap.CircuitOpen {
		circuit = 1
	}

	ch <- prometheus.MustNewConstMetric(c.cyclesCompleted, prometheus.CounterValue, float64(snap.CyclesCompleted))
	ch <- prometheus.MustNewConstMetric(c.cyclesDropped, prometheus.CounterValue, float64(snap.CyclesDropped))
	ch <- prometheus.MustNewConstMetric(c.quotesFetched, prometheus.CounterValue, float64(snap.QuotesFetched))
	ch <- prometheus.MustNewConstMetric(c.staleQuotes, prometheus.CounterValue, float64(snap.StaleQuotes))
	ch <- prometheus.MustNewConstMetric(c.errorsTotal, prometheus.CounterValue, float64(snap.ErrorsTotal))
	ch <- prometheus.MustNewConstMetric(c.fetchLatency, prometheus.GaugeValue, float64(snap.AvgFetchLatencyNs)/1e9)
	ch <- prometheus.MustNewConstMetric(c.cycleLatency, prometheus.GaugeValue, float64(snap.AvgCycleLatencyNs)/1e9)
	ch <- prometheus.MustNewConstMetric(c.watchedItems, prometheus.GaugeValue, float64(snap.WatchedItems))
	ch <- prometheus.MustNewConstMetric(c.activeObservers, prometheus.GaugeValue, float64(snap.ActiveObservers))
	ch <- prometheus.MustNewConstMetric(c.circuitOpen, prometheus.GaugeValue, circuit)
}
