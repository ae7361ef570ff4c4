// Package metrics provides Prometheus instrumentation for the memory
// engine.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the engine's Prometheus registry and metric families.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	// Retrieval metrics
	retrievals        *prometheus.CounterVec
	retrievalDuration prometheus.Histogram
	degradedRequests  *prometheus.CounterVec
	rerankFailures    prometheus.Counter

	// Working-memory metrics
	workingItems    prometheus.Gauge
	zoneChanges     *prometheus.CounterVec
	archivedItems   prometheus.Counter
	boundariesFound prometheus.Counter

	// Consolidation metrics
	consolidationRuns    *prometheus.CounterVec
	consolidationLatency prometheus.Histogram
	patternsMined        prometheus.Counter
	recordsSuperseded    prometheus.Counter
	feedbackApplied      *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Port    int
	Path    string

	RetrievalBuckets     []float64
	ConsolidationBuckets []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		Port:                 9091,
		Path:                 "/metrics",
		RetrievalBuckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		ConsolidationBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}
}

// NewManager creates a metrics manager. A disabled manager records
// nothing and serves no endpoint.
func NewManager(cfg Config) *Manager {
	if !cfg.Enabled {
		return &Manager{enabled: false}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		enabled:  true,
	}
	m.initRetrievalMetrics(cfg)
	m.initWorkingMemoryMetrics()
	m.initConsolidationMetrics(cfg)
	return m
}

// NoOpManager returns a disabled manager.
func NoOpManager() *Manager {
	return &Manager{enabled: false}
}

// Enabled reports whether collection is on.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves the metrics endpoint until ctx is cancelled.
func (m *Manager) StartServer(ctx context.Context, port int, path string) error {
	if !m.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}
