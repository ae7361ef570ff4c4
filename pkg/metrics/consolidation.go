package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initConsolidationMetrics(cfg Config) {
	m.consolidationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consolidation_runs_total",
			Help: "Consolidation runs by terminal status",
		},
		[]string{"status"},
	)

	m.consolidationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consolidation_run_duration_seconds",
			Help:    "Per-context consolidation run duration in seconds",
			Buckets: cfg.ConsolidationBuckets,
		},
	)

	m.patternsMined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "patterns_mined_total",
			Help: "Patterns surfaced by the extractor",
		},
	)

	m.recordsSuperseded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "records_superseded_total",
			Help: "Memory records superseded by a revision",
		},
	)

	m.feedbackApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_applied_total",
			Help: "Pattern feedback applications by outcome",
		},
		[]string{"outcome"},
	)

	m.registry.MustRegister(m.consolidationRuns, m.consolidationLatency,
		m.patternsMined, m.recordsSuperseded, m.feedbackApplied)
}

// RecordConsolidationRun records one finished run.
func (m *Manager) RecordConsolidationRun(status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.consolidationRuns.WithLabelValues(status).Inc()
	m.consolidationLatency.Observe(duration.Seconds())
}

// RecordPatternsMined adds n mined patterns.
func (m *Manager) RecordPatternsMined(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.patternsMined.Add(float64(n))
}

// RecordSupersession records one record supersession.
func (m *Manager) RecordSupersession() {
	if !m.enabled {
		return
	}
	m.recordsSuperseded.Inc()
}

// RecordFeedback records one feedback application.
func (m *Manager) RecordFeedback(outcome string) {
	if !m.enabled {
		return
	}
	m.feedbackApplied.WithLabelValues(outcome).Inc()
}
