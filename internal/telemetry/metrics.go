package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the bot's Prometheus collectors.
type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	CompletionTotal    *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	ChunksSentTotal    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rustbot_events_total",
			Help: "Inbound chat events by kind.",
		}, []string{"kind"}),

		CompletionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rustbot_completion_total",
			Help: "Completion calls by task kind and outcome.",
		}, []string{"task", "outcome"}),

		CompletionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rustbot_completion_duration_seconds",
			Help:    "Completion call latency in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"task"}),

		ChunksSentTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "rustbot_chunks_sent_total",
			Help: "Text chunks delivered to users.",
		}),
	}
}

// ObserveCompletion records the outcome and latency of one completion call.
func (m *Metrics) ObserveCompletion(task, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CompletionTotal.WithLabelValues(task, outcome).Inc()
	m.CompletionDuration.WithLabelValues(task).Observe(elapsed.Seconds())
}

// ObserveEvent counts one inbound event.
func (m *Metrics) ObserveEvent(kind string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// ObserveChunks counts delivered text chunks.
func (m *Metrics) ObserveChunks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChunksSentTotal.Add(float64(n))
}
