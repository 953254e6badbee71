// Package telemetry exports FTRL training and prediction statistics as
// Prometheus metrics.
//
// Collector implements ftrl.Observer, so it can be passed straight to
// ftrl.WithObserver or to the estimator's WithObserver option.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YuminosukeSato/ftrl/linear/ftrl"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

const namespace = "ftrl"

// Collector holds the metrics of one process on a private registry.
type Collector struct {
	registry *prometheus.Registry

	examples *prometheus.CounterVec
	nnz      *prometheus.CounterVec
	batches  *prometheus.CounterVec
	loss     *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	workers  prometheus.Gauge

	mu     sync.Mutex
	models map[string]*modelCollector
}

// NewCollector creates a Collector and registers its metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		models:   make(map[string]*modelCollector),
	}

	c.examples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "examples_total",
			Help:      "Total number of examples processed",
		},
		[]string{"operation", "mode"},
	)
	c.nnz = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "nonzeros_total",
			Help:      "Total number of stored feature values processed",
		},
		[]string{"operation"},
	)
	c.batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "calls_total",
			Help:      "Total number of batch calls",
		},
		[]string{"operation", "mode"},
	)
	c.loss = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "loss",
			Help:      "Mean loss of the last training batch",
		},
		[]string{"mode"},
	)
	c.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch call duration in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"operation"},
	)
	c.workers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "batch",
		Name:      "workers",
		Help:      "Worker count of the last batch call",
	})

	c.registry.MustRegister(c.examples, c.nnz, c.batches, c.loss, c.duration, c.workers)
	return c
}

// ObserveBatch implements ftrl.Observer.
func (c *Collector) ObserveBatch(s ftrl.BatchStats) {
	mode := s.Mode.String()
	c.examples.WithLabelValues(s.Operation, mode).Add(float64(s.Examples))
	c.nnz.WithLabelValues(s.Operation).Add(float64(s.NNZ))
	c.batches.WithLabelValues(s.Operation, mode).Inc()
	c.duration.WithLabelValues(s.Operation).Observe(s.Duration.Seconds())
	c.workers.Set(float64(s.Workers))
	if s.Operation == "FitBatch" {
		c.loss.WithLabelValues(mode).Set(s.Loss)
	}
}

// TrackModel exports the size and sparsity of m under the given name.
// A name can be tracked once; tracking it again replaces the model.
func (c *Collector) TrackModel(name string, m *ftrl.Model) error {
	if m == nil {
		return errors.NewValueError("TrackModel", "model must not be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.models[name]; ok {
		prev.set(m)
		return nil
	}
	mc := newModelCollector(name, m)
	if err := c.registry.Register(mc); err != nil {
		return errors.Wrapf(err, "telemetry: register model %q", name)
	}
	c.models[name] = mc
	return nil
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// modelCollector reads the model at scrape time.
type modelCollector struct {
	mu    sync.RWMutex
	model *ftrl.Model

	nonZero  *prometheus.Desc
	features *prometheus.Desc
	released *prometheus.Desc
}

func newModelCollector(name string, m *ftrl.Model) *modelCollector {
	labels := prometheus.Labels{"model": name}
	return &modelCollector{
		model: m,
		nonZero: prometheus.NewDesc(
			namespace+"_model_nonzero_weights",
			"Number of non-zero feature weights",
			nil, labels,
		),
		features: prometheus.NewDesc(
			namespace+"_model_features",
			"Number of features the model was created with",
			nil, labels,
		),
		released: prometheus.NewDesc(
			namespace+"_model_released",
			"1 if the model storage has been released, otherwise 0",
			nil, labels,
		),
	}
}

func (mc *modelCollector) set(m *ftrl.Model) {
	mc.mu.Lock()
	mc.model = m
	mc.mu.Unlock()
}

func (mc *modelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- mc.nonZero
	ch <- mc.features
	ch <- mc.released
}

func (mc *modelCollector) Collect(ch chan<- prometheus.Metric) {
	mc.mu.RLock()
	m := mc.model
	mc.mu.RUnlock()

	ch <- prometheus.MustNewConstMetric(mc.features, prometheus.GaugeValue, float64(m.NumFeatures()))
	if m.Released() {
		ch <- prometheus.MustNewConstMetric(mc.released, prometheus.GaugeValue, 1)
		return
	}
	ch <- prometheus.MustNewConstMetric(mc.released, prometheus.GaugeValue, 0)
	if nz, err := m.NonZeroWeights(); err == nil {
		ch <- prometheus.MustNewConstMetric(mc.nonZero, prometheus.GaugeValue, float64(nz))
	}
}
