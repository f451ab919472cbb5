package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "odin"

const metricsSubsystem = "monitor"

// Observation kinds used as metric labels and span names.
const (
	kindStats    = "stats"
	kindLogs     = "logs"
	kindAnalysis = "analysis"
	kindDisplay  = "display"
)

// Metrics holds the Prometheus collectors of one monitor. A nil *Metrics
// records nothing.
type Metrics struct {
	cycles           *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
	fetchFailures    *prometheus.CounterVec
	containers       *prometheus.GaugeVec
	failingContainer prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cycles_total",
			Help:      "Scheduled task runs by kind and result",
		}, []string{"kind", "result"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one task run by kind",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		}, []string{"kind"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "fetch_failures_total",
			Help:      "Per-container fetch or analysis failures by kind",
		}, []string{"kind"}),
		containers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "containers_collected",
			Help:      "Containers successfully collected in the last cycle by kind",
		}, []string{"kind"}),
		failingContainer: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "failing_containers",
			Help:      "Containers with a stored failure record",
		}),
	}
	reg.MustRegister(m.cycles, m.cycleDuration, m.fetchFailures, m.containers, m.failingContainer)
	return m
}

func (m *Metrics) cycleDone(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cycles.WithLabelValues(kind, result).Inc()
	m.cycleDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) fetchFailed(kind string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) collected(kind string, n int) {
	if m == nil {
		return
	}
	m.containers.WithLabelValues(kind).Set(float64(n))
}

func (m *Metrics) failing(n int) {
	if m == nil {
		return
	}
	m.failingContainer.Set(float64(n))
}
