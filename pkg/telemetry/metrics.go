package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hydra").
	Namespace string

	// Subsystem is the metrics subsystem (default: "boundary").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for resolution duration.
	Buckets []float64

	// Registry is the Prometheus registry to register against.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "hydra",
		Subsystem:   "boundary",
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Metrics holds the fragment lifecycle metrics: attempts, resolution
// latency, settlement outcome, and fallback-marker emissions.
type Metrics struct {
	attemptsTotal     *prometheus.CounterVec
	resolutionSeconds *prometheus.HistogramVec
	fragmentsSettled  *prometheus.CounterVec
	fallbacksEmitted  prometheus.Counter
}

var (
	global     *Metrics
	globalOnce sync.Once
	globalMu   sync.Mutex
)

func initMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "attempts_total",
			Help:        "Total number of boundary resolution attempts",
			ConstLabels: config.ConstLabels,
		}, []string{"boundary_id"}),

		resolutionSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resolution_seconds",
			Help:        "Time from boundary registration to fragment settlement",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"boundary_id"}),

		fragmentsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fragments_settled_total",
			Help:        "Total number of fragments settled, by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}), // "ok" or "error"

		fallbacksEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fallbacks_emitted_total",
			Help:        "Total number of sync-mode $$f fallback markers emitted",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// GlobalMetrics returns the process-wide Metrics singleton, creating it
// from opts on first call. Subsequent calls ignore opts (matching the
// teacher's singleton-behind-mutex convention — a registry can only
// accept one set of collector registrations).
func GlobalMetrics(opts ...MetricsOption) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		cfg := defaultMetricsConfig()
		for _, opt := range opts {
			opt(&cfg)
		}
		global = initMetrics(cfg)
	}
	return global
}

// RecordAttempt increments the attempt counter for boundaryID.
func (m *Metrics) RecordAttempt(boundaryID string) {
	m.attemptsTotal.WithLabelValues(boundaryID).Inc()
}

// RecordResolution observes how long a boundary took to settle from
// registration to fragment done().
func (m *Metrics) RecordResolution(boundaryID string, d time.Duration) {
	m.resolutionSeconds.WithLabelValues(boundaryID).Observe(d.Seconds())
}

// RecordSettlement records a fragment's terminal outcome.
func (m *Metrics) RecordSettlement(err error) {
	if err != nil {
		m.fragmentsSettled.WithLabelValues("error").Inc()
		return
	}
	m.fragmentsSettled.WithLabelValues("ok").Inc()
}

// RecordFallback increments the sync-mode fallback-marker counter.
func (m *Metrics) RecordFallback() {
	m.fallbacksEmitted.Inc()
}
