// Package monitoring exports Prometheus metrics and sends webhook alerts
// when dataset loads fail or regions stop joining.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/edmap/internal/join"
)

// Load results.
const (
	LoadOK     = "ok"
	LoadFailed = "failed"
)

// Metrics owns a private registry so tests and multiple servers do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	selections       *prometheus.CounterVec
	classifyDuration prometheus.Histogram
	loads            *prometheus.CounterVec
	joinMisses       prometheus.Gauge
	wsClients        prometheus.Gauge
	revision         prometheus.Gauge
}

// NewMetrics registers the edmap collectors plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edmap_selections_total",
			Help: "Attribute selections by outcome.",
		}, []string{"attribute", "result"}),
		classifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edmap_classify_duration_seconds",
			Help:    "Time to classify an attribute and rebuild the view.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edmap_dataset_loads_total",
			Help: "Dataset loads by result.",
		}, []string{"result"}),
		joinMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edmap_join_misses",
			Help: "Region codes present in only one dataset after the last load.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edmap_ws_clients",
			Help: "Connected WebSocket view subscribers.",
		}),
		revision: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "edmap_view_revision",
			Help: "Revision of the currently expressed view.",
		}),
	}
	m.registry.MustRegister(
		m.selections,
		m.classifyDuration,
		m.loads,
		m.joinMisses,
		m.wsClients,
		m.revision,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSelection implements selection.Recorder.
func (m *Metrics) ObserveSelection(attribute, result string, elapsed time.Duration) {
	m.selections.WithLabelValues(attribute, result).Inc()
	m.classifyDuration.Observe(elapsed.Seconds())
}

// SetRevision implements selection.Recorder.
func (m *Metrics) SetRevision(rev uint64) {
	m.revision.Set(float64(rev))
}

// ObserveLoad counts a dataset load. The join-miss gauge only moves on
// success so a failed reload keeps reporting the data still being served.
func (m *Metrics) ObserveLoad(err error, rep join.Report) {
	if err != nil {
		m.loads.WithLabelValues(LoadFailed).Inc()
		return
	}
	m.loads.WithLabelValues(LoadOK).Inc()
	m.joinMisses.Set(float64(rep.Misses()))
}

// ClientConnected increments the WebSocket gauge.
func (m *Metrics) ClientConnected() { m.wsClients.Inc() }

// ClientDisconnected decrements the WebSocket gauge.
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
