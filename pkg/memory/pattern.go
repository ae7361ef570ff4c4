package memory

import (
	"time"

	"github.com/google/uuid"
)

// PatternType labels the statistical shape of a mined pattern.
type PatternType int

const (
	PatternSequence PatternType = iota
	PatternTransition
	PatternSuccessRate
)

// String returns the string representation of the pattern type.
func (t PatternType) String() string {
	switch t {
	case PatternSequence:
		return "sequence"
	case PatternTransition:
		return "transition"
	case PatternSuccessRate:
		return "success_rate"
	default:
		return "unknown"
	}
}

// PatternStatus is the lifecycle status of a pattern.
type PatternStatus int

const (
	PatternActive PatternStatus = iota
	PatternDeprecated
)

// String returns the string representation of the status.
func (s PatternStatus) String() string {
	if s == PatternDeprecated {
		return "deprecated"
	}
	return "active"
}

// Pattern is a statistically supported rule (condition -> prediction)
// mined from clustered evidence.
type Pattern struct {
	// ID is the unique identifier for this pattern.
	ID string `json:"id"`

	// Name is a human-readable label.
	Name string `json:"name"`

	// Type is the pattern shape.
	Type PatternType `json:"type"`

	// Condition is the antecedent key the pattern fires on.
	Condition string `json:"condition"`

	// Prediction is the consequent the pattern predicts.
	Prediction string `json:"prediction"`

	// SampleSize is the number of evidence items behind the pattern.
	SampleSize int `json:"sample_size"`

	// Support is the fraction of all evidence matching the antecedent.
	Support float64 `json:"support"`

	// ConfidenceScore is P(prediction | condition), in [0,1]. Nudged by
	// outcome feedback after extraction.
	ConfidenceScore float64 `json:"confidence_score"`

	// SuccessRate is the observed success fraction within the cluster.
	SuccessRate float64 `json:"success_rate"`

	// FailureCount counts negative outcome feedback since extraction.
	FailureCount int `json:"failure_count"`

	// Status flips to deprecated once confidence drops below the floor.
	Status PatternStatus `json:"status"`

	// CreatedAt is the extraction timestamp.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last feedback timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPattern constructs an active pattern. Confidence, support, and success
// rate are clamped to [0,1] at construction.
func NewPattern(now time.Time, name string, typ PatternType, condition, prediction string, sampleSize int, support, confidence, successRate float64) *Pattern {
	return &Pattern{
		ID:              uuid.NewString(),
		Name:            name,
		Type:            typ,
		Condition:       condition,
		Prediction:      prediction,
		SampleSize:      sampleSize,
		Support:         Clamp01(support),
		ConfidenceScore: Clamp01(confidence),
		SuccessRate:     Clamp01(successRate),
		Status:          PatternActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
