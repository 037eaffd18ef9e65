package comparison

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records comparison progress on a private Prometheus registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	iterations     prometheus.Counter
	contacts       prometheus.Histogram
	engineWall     *prometheus.HistogramVec
	engineReported *prometheus.CounterVec
	outbreakSize   *prometheus.HistogramVec
}

// NewMetrics registers the comparison metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Paired generate/encode/simulate cycles completed
		iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "tsir_iterations_total",
			Help: "Total number of completed comparison iterations",
		}),

		contacts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsir_network_contacts",
			Help:    "Number of contacts per generated temporal network",
			Buckets: prometheus.ExponentialBuckets(10, 4, 10),
		}),

		// Includes process start-up and network parsing inside the engine
		engineWall: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tsir_engine_wall_seconds",
			Help:    "Wall-clock duration of engine invocations in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"engine"}),

		engineReported: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tsir_engine_reported_seconds_total",
			Help: "Compute time reported by the engines in seconds",
		}, []string{"engine"}),

		outbreakSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tsir_outbreak_size",
			Help:    "Outbreak sizes reported by the engines",
			Buckets: prometheus.ExponentialBuckets(1, 2, 20),
		}, []string{"engine"}),
	}
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeNetwork(contacts int) {
	if m == nil {
		return
	}
	m.contacts.Observe(float64(contacts))
}

func (m *Metrics) observeEngine(engine string, wallSeconds, reported float64, sizes []int) {
	if m == nil {
		return
	}
	m.engineWall.WithLabelValues(engine).Observe(wallSeconds)
	m.engineReported.WithLabelValues(engine).Add(max(reported, 0))
	hist := m.outbreakSize.WithLabelValues(engine)
	for _, s := range sizes {
		hist.Observe(float64(s))
	}
}

func (m *Metrics) iterationDone() {
	if m == nil {
		return
	}
	m.iterations.Inc()
}

// WriteToTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
