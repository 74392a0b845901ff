package aggregator

import (
	"time"

	"github.com/c360studio/semstreams/metric"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsService = "aggregator"

// Metrics holds Prometheus metrics for aggregator views. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	batches       prometheus.Counter
	updated       prometheus.Counter
	removed       prometheus.Counter
	modelChanges  *prometheus.CounterVec // By action (add/remove)
	entities      prometheus.Gauge
	batchDuration prometheus.Histogram
}

// NewMetrics creates and registers aggregator metrics with the provided
// registry. A nil registry disables metrics.
func NewMetrics(registry *metric.MetricsRegistry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semagg",
			Subsystem: "view",
			Name:      "batches_total",
			Help:      "Total number of change batches delivered to view subscribers",
		}),
		updated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semagg",
			Subsystem: "view",
			Name:      "entities_updated_total",
			Help:      "Total number of entity updates published by the view",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "semagg",
			Subsystem: "view",
			Name:      "entities_removed_total",
			Help:      "Total number of entity removals published by the view",
		}),
		modelChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semagg",
			Subsystem: "view",
			Name:      "model_changes_total",
			Help:      "Models added to or removed from the root merge",
		}, []string{"action"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semagg",
			Subsystem: "view",
			Name:      "entities",
			Help:      "Number of entities in the current snapshot",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semagg",
			Subsystem: "view",
			Name:      "batch_duration_seconds",
			Help:      "Time spent applying and delivering one change batch",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}

	if err := registry.RegisterCounter(metricsService, "batches_total", m.batches); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(metricsService, "entities_updated_total", m.updated); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(metricsService, "entities_removed_total", m.removed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(metricsService, "model_changes_total", m.modelChanges); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(metricsService, "entities", m.entities); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(metricsService, "batch_duration_seconds", m.batchDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) recordBatch(updated, removed, total int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.updated.Add(float64(updated))
	m.removed.Add(float64(removed))
	m.entities.Set(float64(total))
	m.batchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) recordModelChange(action string) {
	if m == nil {
		return
	}
	m.modelChanges.WithLabelValues(action).Inc()
}

func (m *Metrics) setEntities(n int) {
	if m == nil {
		return
	}
	m.entities.Set(float64(n))
}
