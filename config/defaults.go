package config

import "time"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "mnemos",
			Version:     "dev",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Segmenter: SegmenterConfig{
			EntropyThreshold:    0.6,
			MinEventSpacing:     3,
			WindowSize:          50,
			ReferenceWindowSize: 200,
			CoherenceWindow:     5,
			SurpriseWeight:      0.5,
			KLWeight:            0.3,
			CoherenceWeight:     0.2,
		},
		WorkingMemory: WorkingMemoryConfig{
			Capacity:                 7,
			OptimalMax:               3,
			CautionCount:             5,
			NearCapacityCount:        6,
			ArchivalDecayThreshold:   0.5,
			ArchivalImportanceCutoff: 0.6,
			DefaultDecayRate:         0.1,
			HalfLives: map[string]time.Duration{
				"verbal":   15 * time.Minute,
				"spatial":  30 * time.Minute,
				"action":   45 * time.Minute,
				"decision": 60 * time.Minute,
			},
			DefaultHalfLife:  20 * time.Minute,
			LowMultiplier:    0.5,
			MediumMultiplier: 1.0,
			HighMultiplier:   2.0,
			DecayInterval:    time.Minute,
		},
		Retrieval: RetrievalConfig{
			BM25K1:          1.5,
			BM25B:           0.75,
			RRFK:            60,
			VectorDimension: 384,
			TopK:            10,
			VectorWeight:    0.6,
			RelevanceWeight: 0.4,
			RerankTopK:      20,
			EmbedTimeout:    5 * time.Second,
			ScoreTimeout:    5 * time.Second,
			EmbedRPS:        10,
			EmbedBurst:      20,
		},
		Priming: PrimingConfig{
			ShortWindow:  5 * time.Minute,
			MediumWindow: 30 * time.Minute,
			LongWindow:   2 * time.Hour,
			ShortBoost:   2.0,
			MediumBoost:  1.5,
			LongBoost:    1.2,
		},
		Reconsolidation: ReconsolidationConfig{
			Window:           5 * time.Minute,
			SuccessIncrement: 0.05,
			FailureDecrement: 0.10,
			DeprecationFloor: 0.4,
		},
		Consolidation: ConsolidationConfig{
			Interval:            5 * time.Minute,
			Lookback:            24 * time.Hour,
			MinEvents:           3,
			Backoff:             10 * time.Second,
			MinSampleSize:       5,
			ConfidenceThreshold: 0.6,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9091,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlp",
			Endpoint:   "localhost:4317",
			Timeout:    10 * time.Second,
			Sampler:    "ratio",
			SampleRate: 0.1,
		},
	}
}
