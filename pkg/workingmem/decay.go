// Package workingmem implements the bounded working-memory set and its
// decay-based eviction policy.
package workingmem

import (
	"math"
	"time"
)

// ContentType classifies working-memory content for decay purposes.
// Each type carries an independently configurable half-life.
type ContentType string

const (
	ContentVerbal   ContentType = "verbal"
	ContentSpatial  ContentType = "spatial"
	ContentAction   ContentType = "action"
	ContentDecision ContentType = "decision"
)

// DecayConfig tunes the decay model.
type DecayConfig struct {
	// HalfLives maps content types to their base half-life.
	HalfLives map[ContentType]time.Duration

	// DefaultHalfLife applies to unknown content types.
	DefaultHalfLife time.Duration

	// LowMultiplier, MediumMultiplier, and HighMultiplier scale the
	// half-life by importance tier.
	LowMultiplier    float64
	MediumMultiplier float64
	HighMultiplier   float64

	// MediumFloor and HighFloor are the importance cutoffs for the
	// medium and high tiers.
	MediumFloor float64
	HighFloor   float64
}

// DefaultDecayConfig returns the decay defaults.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		HalfLives: map[ContentType]time.Duration{
			ContentVerbal:   15 * time.Minute,
			ContentSpatial:  30 * time.Minute,
			ContentAction:   45 * time.Minute,
			ContentDecision: 60 * time.Minute,
		},
		DefaultHalfLife:  20 * time.Minute,
		LowMultiplier:    0.5,
		MediumMultiplier: 1.0,
		HighMultiplier:   2.0,
		MediumFloor:      0.4,
		HighFloor:        0.7,
	}
}

// DecayCalculator computes activation levels as a pure function of age,
// importance, and content type.
type DecayCalculator struct {
	cfg DecayConfig
}

// NewDecayCalculator creates a calculator. Zero-value fields fall back to
// defaults.
func NewDecayCalculator(cfg DecayConfig) *DecayCalculator {
	def := DefaultDecayConfig()
	if len(cfg.HalfLives) == 0 {
		cfg.HalfLives = def.HalfLives
	}
	if cfg.DefaultHalfLife <= 0 {
		cfg.DefaultHalfLife = def.DefaultHalfLife
	}
	if cfg.LowMultiplier <= 0 {
		cfg.LowMultiplier = def.LowMultiplier
	}
	if cfg.MediumMultiplier <= 0 {
		cfg.MediumMultiplier = def.MediumMultiplier
	}
	if cfg.HighMultiplier <= 0 {
		cfg.HighMultiplier = def.HighMultiplier
	}
	if cfg.MediumFloor <= 0 {
		cfg.MediumFloor = def.MediumFloor
	}
	if cfg.HighFloor <= 0 {
		cfg.HighFloor = def.HighFloor
	}
	return &DecayCalculator{cfg: cfg}
}

// Activation computes importance * exp(-age / effectiveHalfLife).
// At age zero the activation equals the importance exactly. Non-positive
// importance yields zero.
func (d *DecayCalculator) Activation(importance float64, contentType ContentType, age time.Duration) float64 {
	if importance <= 0 {
		return 0
	}
	if importance > 1 {
		importance = 1
	}
	if age <= 0 {
		return importance
	}
	halfLife := d.effectiveHalfLife(importance, contentType)
	return importance * math.Exp(-age.Seconds()/halfLife.Seconds())
}

// RemainingLifespan returns the duration until activation drops to the
// threshold, via the closed-form exponential inverse. It returns 0 when
// the item is already at or below the threshold or importance is
// non-positive.
func (d *DecayCalculator) RemainingLifespan(importance float64, contentType ContentType, threshold float64) time.Duration {
	if importance <= 0 || threshold >= importance {
		return 0
	}
	if threshold <= 0 {
		threshold = 1e-9
	}
	halfLife := d.effectiveHalfLife(importance, contentType)
	seconds := halfLife.Seconds() * math.Log(importance/threshold)
	return time.Duration(seconds * float64(time.Second))
}

// effectiveHalfLife is the content-type half-life scaled by the importance
// tier multiplier.
func (d *DecayCalculator) effectiveHalfLife(importance float64, contentType ContentType) time.Duration {
	base, ok := d.cfg.HalfLives[contentType]
	if !ok || base <= 0 {
		base = d.cfg.DefaultHalfLife
	}
	mult := d.cfg.LowMultiplier
	switch {
	case importance >= d.cfg.HighFloor:
		mult = d.cfg.HighMultiplier
	case importance >= d.cfg.MediumFloor:
		mult = d.cfg.MediumMultiplier
	}
	return time.Duration(float64(base) * mult)
}
