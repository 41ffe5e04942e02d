// Package metrics holds the Prometheus collectors for the sync and request
// loops. All methods are safe to call on a nil *Metrics, so components can be
// built without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors exported by lens.
type Metrics struct {
	// Sync cycles by result ("ok" or "error")
	SyncCycles *prometheus.CounterVec

	// Duration of one discovery sweep including persistence
	SyncDuration prometheus.Histogram

	// Records read and inserted into the cache
	DiscoveredRecords prometheus.Counter

	// Records skipped because their payload did not decode
	DroppedRecords prometheus.Counter

	// Photo list replacements sent to the state actor
	Publishes prometheus.Counter

	// Requests accepted by the service loop, by kind
	Requests *prometheus.CounterVec

	// Requests waiting for the next service tick
	QueueDepth prometheus.Gauge

	// Length of the published photo list
	Photos prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SyncCycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_sync_cycles_total",
				Help: "Total number of discovery cycles",
			},
			[]string{"result"},
		),
		SyncDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lens_sync_cycle_duration_seconds",
				Help:    "Discovery cycle latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),
		DiscoveredRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "lens_sync_discovered_records_total",
			Help: "Photo records read from the record store",
		}),
		DroppedRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "lens_sync_dropped_records_total",
			Help: "Photo records skipped because they failed to decode",
		}),
		Publishes: f.NewCounter(prometheus.CounterOpts{
			Name: "lens_sync_publishes_total",
			Help: "Full photo list replacements published",
		}),
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lens_service_requests_total",
				Help: "Requests handled by the service loop",
			},
			[]string{"kind"},
		),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "lens_service_queue_depth",
			Help: "Requests queued for the next service tick",
		}),
		Photos: f.NewGauge(prometheus.GaugeOpts{
			Name: "lens_photos",
			Help: "Number of photos in the published list",
		}),
	}
}

// ObserveCycle records a completed discovery cycle.
func (m *Metrics) ObserveCycle(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SyncCycles.WithLabelValues(result).Inc()
	m.SyncDuration.Observe(d.Seconds())
}

// RecordDiscovered counts n inserted records.
func (m *Metrics) RecordDiscovered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DiscoveredRecords.Add(float64(n))
}

// RecordDropped counts n undecodable records.
func (m *Metrics) RecordDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedRecords.Add(float64(n))
}

// RecordPublish counts a photo list replacement of the given length.
func (m *Metrics) RecordPublish(photos int) {
	if m == nil {
		return
	}
	m.Publishes.Inc()
	m.Photos.Set(float64(photos))
}

// RecordRequest counts one handled request.
func (m *Metrics) RecordRequest(kind string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(kind).Inc()
}

// SetQueueDepth reports the current request backlog.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
