package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initRetrievalMetrics(cfg Config) {
	m.retrievals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrievals_total",
			Help: "Total retrieval requests by outcome",
		},
		[]string{"outcome"},
	)

	m.retrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "retrieval_duration_seconds",
			Help:    "Retrieval pipeline duration in seconds",
			Buckets: cfg.RetrievalBuckets,
		},
	)

	m.degradedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrieval_degraded_total",
			Help: "Retrievals that degraded to a fallback strategy, by reason",
		},
		[]string{"reason"},
	)

	m.rerankFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rerank_failures_total",
			Help: "Relevance scorer calls that failed and fell back to fused order",
		},
	)

	m.registry.MustRegister(m.retrievals, m.retrievalDuration, m.degradedRequests, m.rerankFailures)
}

// RecordRetrieval records one retrieval request.
func (m *Manager) RecordRetrieval(outcome string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.retrievals.WithLabelValues(outcome).Inc()
	m.retrievalDuration.Observe(duration.Seconds())
}

// RecordDegradation records a degraded-mode fallback.
func (m *Manager) RecordDegradation(reason string) {
	if !m.enabled {
		return
	}
	m.degradedRequests.WithLabelValues(reason).Inc()
}

// RecordRerankFailures adds n scorer failures.
func (m *Manager) RecordRerankFailures(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.rerankFailures.Add(float64(n))
}
