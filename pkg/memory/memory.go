// Package memory defines the core data model of the Mnemos memory engine:
// captured events, durable memory records with their consolidation lifecycle,
// mined patterns, and temporal priming rows.
package memory

import (
	"errors"
	"time"
)

// Sentinel errors for the memory engine.
var (
	ErrNotFound           = errors.New("memory: not found")
	ErrInvalidConfidence  = errors.New("memory: confidence must be in [0,1]")
	ErrInvalidImportance  = errors.New("memory: importance must be in [0,1]")
	ErrInvalidTransition  = errors.New("memory: invalid consolidation state transition")
	ErrInvalidQuery       = errors.New("memory: invalid query (no text and no vector)")
	ErrEmptyContent       = errors.New("memory: content cannot be empty")
	ErrDimensionMismatch  = errors.New("memory: vector dimension mismatch")
	ErrStorageUnavailable = errors.New("memory: storage unavailable")
)

// Clock supplies wall-clock time. All decay, priming, and reconsolidation
// math is a pure function of the injected clock so it is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Clamp01 clamps v to the [0,1] interval. Confidence and importance values
// are clamped at construction and at every update site by contract.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
