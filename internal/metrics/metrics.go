// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dutchpay"

// Metrics groups the server's collectors.
type Metrics struct {
	commands         *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	shares           *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Settlement commands handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
		commandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent handling settlement commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_analyses_total",
			Help:      "Receipt analyses, by outcome.",
		}, []string{"outcome"}),
		analysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_analysis_duration_seconds",
			Help:      "Time spent analyzing receipts, including cache lookups.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		shares: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_sent_total",
			Help:      "Share messages handed to the messaging provider, by result.",
		}, []string{"result"}),
	}
}

// ObserveCommand records one handled command.
func (m *Metrics) ObserveCommand(procedure, code string, elapsed time.Duration) {
	m.commands.WithLabelValues(procedure, code).Inc()
	m.commandDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// ObserveAnalysis records one receipt analysis. Its signature matches
// receipt.Observer.
func (m *Metrics) ObserveAnalysis(outcome string, elapsed time.Duration) {
	m.analyses.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(elapsed.Seconds())
}

// ObserveShare records one share send attempt.
func (m *Metrics) ObserveShare(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.shares.WithLabelValues(result).Inc()
}
