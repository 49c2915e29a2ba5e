// Package prometheus exposes send metrics through the Prometheus client.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssyqq/dream"
)

const namespace = "dream"

// Metrics records send activity. It implements dream.Observer.
type Metrics struct {
	attempts prometheus.Counter
	retries  *prometheus.CounterVec
	sends    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Interface compliance check.
var _ dream.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of HTTP attempts, including retries.",
		}),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retries by failure kind.",
			},
			[]string{"kind"},
		),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sends_total",
				Help:      "Total number of finished sends by outcome.",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "send_duration_seconds",
				Help:      "Wall time of a send from start to EventDone, retries included.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.retries, m.sends, m.duration)
	}
	return m
}

// OnAttempt counts one HTTP attempt.
func (m *Metrics) OnAttempt() {
	m.attempts.Inc()
}

// OnRetry counts one retry of the given kind.
func (m *Metrics) OnRetry(kind dream.ErrorKind) {
	m.retries.WithLabelValues(kind.String()).Inc()
}

// OnFinish counts a finished send and records its duration.
func (m *Metrics) OnFinish(outcome dream.Outcome, elapsed time.Duration) {
	m.sends.WithLabelValues(string(outcome)).Inc()
	m.duration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}
