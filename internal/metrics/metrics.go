// Package metrics exposes the aggregator's own operational counters and
// gauges for scraping, registering them via promauto the way any
// exposition-side consumer of client_golang does.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	putOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wxfabric_put_responses_total",
		Help: "PUT /weather.json responses by status code.",
	}, []string{"status"})

	getOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wxfabric_get_responses_total",
		Help: "GET /weather.json responses by status code.",
	}, []string{"status"})

	lamportErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wxfabric_invalid_lamport_header_total",
		Help: "Requests rejected for an unparseable X-Lamport-Clock header.",
	})

	lamportGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wxfabric_lamport_clock",
		Help: "The aggregator's current Lamport clock value.",
	})

	storeSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wxfabric_store_size",
		Help: "Number of stations currently held by the store.",
	})

	sweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wxfabric_sweep_runs_total",
		Help: "Number of expiry sweeps executed.",
	})

	sweepEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wxfabric_sweep_evictions_total",
		Help: "Number of expiry sweeps that removed at least one entry.",
	})

	capacityEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wxfabric_capacity_evictions_total",
		Help: "Number of entries evicted to stay within station capacity.",
	})
)

// ObservePut records the outcome of a PUT /weather.json request.
func ObservePut(status string) { putOutcomes.WithLabelValues(status).Inc() }

// ObserveGet records the outcome of a GET /weather.json request.
func ObserveGet(status string) { getOutcomes.WithLabelValues(status).Inc() }

// ObserveLamportError records a rejected X-Lamport-Clock header.
func ObserveLamportError() { lamportErrors.Inc() }

// SetLamportGauge publishes the aggregator's current Lamport value.
func SetLamportGauge(v int64) { lamportGauge.Set(float64(v)) }

// SetStoreSize publishes the current station count.
func SetStoreSize(n int) { storeSizeGauge.Set(float64(n)) }

// ObserveSweep records one sweep run. removedAny reports only whether
// the sweep evicted at least one entry - Store.Sweep does not return an
// exact count - so the eviction counter tracks sweeps-that-evicted, not
// entries evicted.
func ObserveSweep(removedAny bool) {
	sweepRuns.Inc()
	if removedAny {
		sweepEvictions.Inc()
	}
}

// ObserveCapacityEviction records one entry evicted to enforce MaxStations.
func ObserveCapacityEviction() { capacityEvictions.Inc() }
