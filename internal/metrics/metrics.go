// Package metrics wires the aggregator's self-observability into
// Prometheus. The teacher only ever reaches for
// github.com/prometheus/client_golang as a PromQL *query* client
// (internal/metricdata/prometheus.go); this package uses the same
// library for its other standard purpose, registering and exporting
// process-local gauges/counters via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Radioafricagroup/glowroot/internal/aggregator"
)

// Aggregator implements aggregator.Observer, exporting queue depth,
// open-window count and flush outcomes as Prometheus metrics.
type Aggregator struct {
	queueDepth     prometheus.Gauge
	windowsOpened  prometheus.Counter
	windowsFlushed prometheus.Counter
	flushErrors    prometheus.Counter
	currentWindow  prometheus.Gauge
}

// NewAggregator registers its metrics against reg (pass
// prometheus.DefaultRegisterer for the global registry, or a dedicated
// registry in tests).
func NewAggregator(reg prometheus.Registerer) *Aggregator {
	factory := promauto.With(reg)
	return &Aggregator{
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "glowroot",
			Subsystem: "aggregator",
			Name:      "queue_depth",
			Help:      "Number of completed traces waiting to be folded, as observed right after the most recent enqueue.",
		}),
		windowsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "glowroot",
			Subsystem: "aggregator",
			Name:      "windows_opened_total",
			Help:      "Number of aggregation windows opened.",
		}),
		windowsFlushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "glowroot",
			Subsystem: "aggregator",
			Name:      "windows_flushed_total",
			Help:      "Number of successful per-transaction-type Store calls; a window holding both foreground and background traces counts twice.",
		}),
		flushErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "glowroot",
			Subsystem: "aggregator",
			Name:      "flush_errors_total",
			Help:      "Number of per-transaction-type Store calls that failed; the points of that type for that window are dropped.",
		}),
		currentWindow: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "glowroot",
			Subsystem: "aggregator",
			Name:      "current_window_capture_time_millis",
			Help:      "Capture time (wall-clock ms) of the window currently accepting traces.",
		}),
	}
}

var _ aggregator.Observer = (*Aggregator)(nil)

func (m *Aggregator) OnEnqueue(queueDepth int) {
	m.queueDepth.Set(float64(queueDepth))
}

func (m *Aggregator) OnWindowOpened(captureTime int64) {
	m.windowsOpened.Inc()
	m.currentWindow.Set(float64(captureTime))
}

func (m *Aggregator) OnWindowFlushed(int64) {
	m.windowsFlushed.Inc()
}

func (m *Aggregator) OnFlushError(int64, error) {
	m.flushErrors.Inc()
}
