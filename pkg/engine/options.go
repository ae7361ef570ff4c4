package engine

import (
	"github.com/mnemos/mnemos/pkg/logger"
	"github.com/mnemos/mnemos/pkg/memory"
	"github.com/mnemos/mnemos/pkg/metrics"
	"github.com/mnemos/mnemos/pkg/notify"
	"github.com/mnemos/mnemos/pkg/retrieval"
	"github.com/mnemos/mnemos/pkg/storage"
)

// Option is a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and its subsystems.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics sets the metrics manager for the engine.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock sets the clock driving decay, priming, and reconsolidation.
func WithClock(clock memory.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithStore sets the backing store. The caller retains ownership: the
// engine will not close a store it did not open.
func WithStore(store storage.Store) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
			e.ownsStore = false
		}
	}
}

// WithBus sets the notification bus.
func WithBus(bus *notify.Bus) Option {
	return func(e *Engine) {
		if bus != nil {
			e.bus = bus
		}
	}
}

// WithEmbeddingProvider sets the embedding provider. Without one the
// engine serves lexical-only retrieval.
func WithEmbeddingProvider(provider retrieval.EmbeddingProvider) Option {
	return func(e *Engine) {
		if provider != nil {
			e.embedder = provider
		}
	}
}

// WithRelevanceScorer sets the external reranking scorer. Without one
// reranking is skipped.
func WithRelevanceScorer(scorer retrieval.RelevanceScorer) Option {
	return func(e *Engine) {
		if scorer != nil {
			e.scorer = scorer
		}
	}
}
