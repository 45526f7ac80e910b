package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry
	pauses   *prometheus.CounterVec
	wait     *prometheus.HistogramVec
	tasks    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pauses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pause_total",
				Help: "Pauses of the automation loop by rule and outcome",
			},
			[]string{"rule", "outcome"},
		),
		wait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pause_wait_seconds",
				Help:    "Time spent waiting for human input",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
			[]string{"rule"},
		),
		tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_tasks_total",
				Help: "Finished agent tasks by status",
			},
			[]string{"status"},
		),
	}

	m.registry.MustRegister(m.pauses, m.wait, m.tasks)

	return m
}

func (m *Metrics) ObservePause(rule string, wait time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := "resumed"
	if err != nil {
		outcome = "failed"
	}

	m.pauses.WithLabelValues(rule, outcome).Inc()
	m.wait.WithLabelValues(rule).Observe(wait.Seconds())
}

func (m *Metrics) ObserveTask(status string) {
	if m == nil {
		return
	}

	m.tasks.WithLabelValues(status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
