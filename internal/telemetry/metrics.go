package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the moderation bot.
type Metrics struct {
	MessagesTotal          *prometheus.CounterVec
	OracleRequestsTotal    *prometheus.CounterVec
	OracleLatencySeconds   prometheus.Histogram
	CommandsTotal          *prometheus.CounterVec
	TriggeredCategoryTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_messages_total",
			Help: "Messages processed by the dispatcher, by final outcome.",
		}, []string{"outcome"}),

		OracleRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_oracle_requests_total",
			Help: "Classification calls to the moderation oracle, by status.",
		}, []string{"status"}),

		OracleLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "modbot_oracle_latency_seconds",
			Help:    "Latency of moderation oracle calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		CommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_commands_total",
			Help: "Operator command invocations, by command and result.",
		}, []string{"command", "result"}),

		TriggeredCategoryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "modbot_triggered_category_total",
			Help: "Flagged categories across deleted messages.",
		}, []string{"category"}),
	}
}

func (m *Metrics) RecordMessage(outcome string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordOracleRequest(status string, latencySeconds float64) {
	if m == nil {
		return
	}
	m.OracleRequestsTotal.WithLabelValues(status).Inc()
	m.OracleLatencySeconds.Observe(latencySeconds)
}

func (m *Metrics) RecordCommand(command, result string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, result).Inc()
}

func (m *Metrics) RecordTriggered(category string) {
	if m == nil {
		return
	}
	m.TriggeredCategoryTotal.WithLabelValues(category).Inc()
}
