// Package metrics provides observability for the verification engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Evidence agent latencies by kind.
	AgentLatency *prometheus.HistogramVec

	// Agent completions by kind and success.
	AgentOutcome *prometheus.CounterVec

	// Pipeline outcomes by recommendation.
	PipelineOutcome *prometheus.CounterVec

	// Full pipeline latency including agent fan-out.
	PipelineLatency prometheus.Histogram

	// Pre-flight prefilter hits (pipelines short-circuited).
	PreflightHits prometheus.Counter
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		AgentLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "titleguard_agent_duration_seconds",
			Help:    "Duration of evidence agent executions by kind",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"agent"}),

		AgentOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "titleguard_agent_outcomes_total",
			Help: "Agent completions by kind and success",
		}, []string{"agent", "success"}),

		PipelineOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "titleguard_pipeline_outcomes_total",
			Help: "Verification pipeline outcomes by recommendation",
		}, []string{"recommendation"}),

		PipelineLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "titleguard_pipeline_duration_seconds",
			Help:    "Duration of full verification pipelines",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		PreflightHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "titleguard_preflight_conflicts_total",
			Help: "Verification requests short-circuited by the pre-flight proximity filter",
		}),
	}
}

// ObserveAgent records one agent execution.
func (m *Metrics) ObserveAgent(agent string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.AgentLatency.WithLabelValues(agent).Observe(d.Seconds())
	label := "false"
	if success {
		label = "true"
	}
	m.AgentOutcome.WithLabelValues(agent, label).Inc()
}

// ObservePipeline records a completed pipeline.
func (m *Metrics) ObservePipeline(recommendation string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineOutcome.WithLabelValues(recommendation).Inc()
	m.PipelineLatency.Observe(d.Seconds())
}

// IncrementPreflightHit records a short-circuited verification request.
func (m *Metrics) IncrementPreflightHit() {
	if m != nil {
		m.PreflightHits.Inc()
	}
}
