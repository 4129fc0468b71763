package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "modelregistry"

// Metrics instruments Submit. A nil *Metrics records nothing.
type Metrics struct {
	// Submissions counts successful submissions by outcome.
	Submissions *prometheus.CounterVec
	// Errors counts failed submissions by the stage that failed.
	Errors *prometheus.CounterVec
	// Duration observes Submit latency, successful or not.
	Duration prometheus.Histogram
	// ChampionMetric is the metric of the champion after the last submission.
	ChampionMetric prometheus.Gauge
}

// NewMetrics registers the registry collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submissions_total",
			Help:      "Model submissions by outcome.",
		}, []string{"outcome"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submit_errors_total",
			Help:      "Failed submissions by stage.",
		}, []string{"stage"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "submit_duration_seconds",
			Help:      "Time spent in Submit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		ChampionMetric: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "champion_metric",
			Help:      "Error metric of the current champion.",
		}),
	}
}

func (m *Metrics) observe(start time.Time) {
	if m == nil {
		return
	}
	m.Duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) success(o Outcome, champion float64) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(o.String()).Inc()
	m.ChampionMetric.Set(champion)
}

func (m *Metrics) failure(stage string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(stage).Inc()
}
