// Package config provides configuration management for the memory engine.
package config

import (
	"fmt"
	"time"
)

// Config is the full engine configuration.
type Config struct {
	// App is the application metadata.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Segmenter tunes surprise-based event segmentation.
	Segmenter SegmenterConfig `mapstructure:"segmenter"`

	// WorkingMemory tunes the bounded working set and decay model.
	WorkingMemory WorkingMemoryConfig `mapstructure:"working_memory"`

	// Retrieval tunes the hybrid retrieval pipeline.
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Priming tunes the temporal boost tiers.
	Priming PrimingConfig `mapstructure:"priming"`

	// Reconsolidation tunes the record state machine and feedback.
	Reconsolidation ReconsolidationConfig `mapstructure:"reconsolidation"`

	// Consolidation tunes the background orchestrator and extraction.
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`

	// Storage is the persistence configuration.
	Storage StorageConfig `mapstructure:"storage"`

	// Metrics is the Prometheus configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the OpenTelemetry configuration.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// AppConfig holds application metadata.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment.
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is "json" or "text".
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output"`
}

// SegmenterConfig tunes event-boundary detection.
type SegmenterConfig struct {
	// EntropyThreshold is the normalized-surprise boundary threshold.
	EntropyThreshold float64 `mapstructure:"entropy_threshold" validate:"gt=0,lte=1"`

	// MinEventSpacing is the minimum positions between boundaries.
	MinEventSpacing int `mapstructure:"min_event_spacing" validate:"min=1"`

	// WindowSize is the local frequency-model window.
	WindowSize int `mapstructure:"window_size" validate:"min=1"`

	// ReferenceWindowSize is the reference distribution window.
	ReferenceWindowSize int `mapstructure:"reference_window_size" validate:"min=1"`

	// CoherenceWindow is the neighborhood size for coherence scoring.
	CoherenceWindow int `mapstructure:"coherence_window" validate:"min=1"`

	// SurpriseWeight, KLWeight, and CoherenceWeight combine the score terms.
	SurpriseWeight  float64 `mapstructure:"surprise_weight" validate:"gte=0,lte=1"`
	KLWeight        float64 `mapstructure:"kl_weight" validate:"gte=0,lte=1"`
	CoherenceWeight float64 `mapstructure:"coherence_weight" validate:"gte=0,lte=1"`
}

// WorkingMemoryConfig tunes the bounded working set.
type WorkingMemoryConfig struct {
	// Capacity is the hard item limit.
	Capacity int `mapstructure:"capacity" validate:"min=1"`

	// OptimalMax, CautionCount, and NearCapacityCount bound the zones.
	OptimalMax        int `mapstructure:"optimal_max" validate:"min=1"`
	CautionCount      int `mapstructure:"caution_count" validate:"min=1"`
	NearCapacityCount int `mapstructure:"near_capacity_count" validate:"min=1"`

	// ArchivalDecayThreshold and ArchivalImportanceCutoff gate archival.
	ArchivalDecayThreshold   float64 `mapstructure:"archival_decay_threshold" validate:"gt=0"`
	ArchivalImportanceCutoff float64 `mapstructure:"archival_importance_cutoff" validate:"gt=0,lte=1"`

	// DefaultDecayRate applies to items admitted without one.
	DefaultDecayRate float64 `mapstructure:"default_decay_rate" validate:"gt=0"`

	// HalfLives maps content types to decay half-lives.
	HalfLives map[string]time.Duration `mapstructure:"half_lives"`

	// DefaultHalfLife applies to unknown content types.
	DefaultHalfLife time.Duration `mapstructure:"default_half_life" validate:"gt=0"`

	// LowMultiplier, MediumMultiplier, and HighMultiplier scale half-life
	// by importance tier.
	LowMultiplier    float64 `mapstructure:"low_multiplier" validate:"gt=0"`
	MediumMultiplier float64 `mapstructure:"medium_multiplier" validate:"gt=0"`
	HighMultiplier   float64 `mapstructure:"high_multiplier" validate:"gt=0"`

	// DecayInterval is the background decay-sweep period.
	DecayInterval time.Duration `mapstructure:"decay_interval" validate:"gt=0"`
}

// RetrievalConfig tunes the hybrid retrieval pipeline.
type RetrievalConfig struct {
	// BM25K1 and BM25B are the lexical scoring parameters.
	BM25K1 float64 `mapstructure:"bm25_k1" validate:"gt=0"`
	BM25B  float64 `mapstructure:"bm25_b" validate:"gte=0,lte=1"`

	// RRFK is the reciprocal-rank fusion constant.
	RRFK float64 `mapstructure:"rrf_k" validate:"gt=0"`

	// VectorDimension is the embedding dimension.
	VectorDimension int `mapstructure:"vector_dimension" validate:"min=1"`

	// TopK is the default result size.
	TopK int `mapstructure:"top_k" validate:"min=1"`

	// VectorWeight and RelevanceWeight blend rerank scores.
	VectorWeight    float64 `mapstructure:"vector_weight" validate:"gte=0"`
	RelevanceWeight float64 `mapstructure:"relevance_weight" validate:"gte=0"`

	// RerankTopK bounds how many candidates are rescored.
	RerankTopK int `mapstructure:"rerank_top_k" validate:"min=1"`

	// EmbedTimeout and ScoreTimeout bound provider calls.
	EmbedTimeout time.Duration `mapstructure:"embed_timeout" validate:"gt=0"`
	ScoreTimeout time.Duration `mapstructure:"score_timeout" validate:"gt=0"`

	// EmbedRPS and EmbedBurst rate-limit the embedding provider.
	EmbedRPS   float64 `mapstructure:"embed_rps" validate:"gt=0"`
	EmbedBurst int     `mapstructure:"embed_burst" validate:"min=1"`
}

// PrimingConfig tunes temporal priming tiers.
type PrimingConfig struct {
	ShortWindow  time.Duration `mapstructure:"short_window" validate:"gt=0"`
	MediumWindow time.Duration `mapstructure:"medium_window" validate:"gt=0"`
	LongWindow   time.Duration `mapstructure:"long_window" validate:"gt=0"`

	ShortBoost  float64 `mapstructure:"short_boost" validate:"gte=1"`
	MediumBoost float64 `mapstructure:"medium_boost" validate:"gte=1"`
	LongBoost   float64 `mapstructure:"long_boost" validate:"gte=1"`
}

// ReconsolidationConfig tunes the record state machine and feedback.
type ReconsolidationConfig struct {
	// Window is how long a retrieved record stays revisable.
	Window time.Duration `mapstructure:"window" validate:"gt=0"`

	// SuccessIncrement and FailureDecrement adjust confidence per outcome.
	SuccessIncrement float64 `mapstructure:"success_increment" validate:"gt=0,lte=1"`
	FailureDecrement float64 `mapstructure:"failure_decrement" validate:"gt=0,lte=1"`

	// DeprecationFloor deprecates patterns whose confidence drops below it.
	DeprecationFloor float64 `mapstructure:"deprecation_floor" validate:"gt=0,lt=1"`
}

// ConsolidationConfig tunes the background orchestrator and extraction.
type ConsolidationConfig struct {
	// Interval is the cycle period.
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`

	// Lookback bounds context selection.
	Lookback time.Duration `mapstructure:"lookback" validate:"gt=0"`

	// MinEvents is the minimum recent-event count per context.
	MinEvents int `mapstructure:"min_events" validate:"min=1"`

	// Backoff is the loop restart delay after failure.
	Backoff time.Duration `mapstructure:"backoff" validate:"gt=0"`

	// MinSampleSize is the minimum evidence cluster size.
	MinSampleSize int `mapstructure:"min_sample_size" validate:"min=1"`

	// ConfidenceThreshold discards weaker mined patterns.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" validate:"gt=0,lte=1"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `mapstructure:"backend" validate:"oneof=memory badger"`

	// Path is the Badger data directory.
	Path string `mapstructure:"path"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the span exporter ("otlp").
	Exporter string `mapstructure:"exporter"`

	// Endpoint is the collector endpoint.
	Endpoint string `mapstructure:"endpoint"`

	// Headers are extra headers sent to the collector.
	Headers map[string]string `mapstructure:"headers"`

	// Timeout bounds exporter calls.
	Timeout time.Duration `mapstructure:"timeout"`

	// Sampler is "always", "never", or "ratio".
	Sampler string `mapstructure:"sampler"`

	// SampleRate applies when Sampler is "ratio".
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Validate applies cross-field rules the tag validator cannot express.
func (c *Config) Validate() error {
	if err := ValidateWithDetails(c); err != nil {
		return err
	}
	wm := c.WorkingMemory
	if !(wm.OptimalMax < wm.CautionCount && wm.CautionCount < wm.NearCapacityCount && wm.NearCapacityCount < wm.Capacity) {
		return fmt.Errorf("working_memory: zone thresholds must be strictly increasing and below capacity")
	}
	p := c.Priming
	if !(p.ShortWindow < p.MediumWindow && p.MediumWindow < p.LongWindow) {
		return fmt.Errorf("priming: tier windows must be strictly increasing")
	}
	r := c.Reconsolidation
	if r.SuccessIncrement >= r.FailureDecrement {
		return fmt.Errorf("reconsolidation: failure decrement must exceed success increment")
	}
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("storage: badger backend requires a path")
	}
	return nil
}
