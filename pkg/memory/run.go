package memory

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal status of one consolidation run.
type RunStatus int

const (
	RunCompleted RunStatus = iota
	RunFailed
	RunInterrupted
)

// String returns the string representation of the run status.
func (s RunStatus) String() string {
	switch s {
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	case RunInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ConsolidationRun is the persisted record of one per-context consolidation
// pass, written by the orchestrator at the end of each run.
type ConsolidationRun struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`

	// Context is the consolidated context.
	Context string `json:"context"`

	// Status is the terminal run status.
	Status RunStatus `json:"status"`

	// EntitiesCreated counts patterns and records produced.
	EntitiesCreated int `json:"entities_created"`

	// RelationshipsCreated counts supersession and association links produced.
	RelationshipsCreated int `json:"relationships_created"`

	// Duration is the wall-clock run duration.
	Duration time.Duration `json:"duration"`

	// Error holds the failure message for failed runs.
	Error string `json:"error,omitempty"`

	// Timestamp is when the run finished.
	Timestamp time.Time `json:"timestamp"`
}

// NewConsolidationRun constructs a run record with a generated ID.
func NewConsolidationRun(context string) *ConsolidationRun {
	return &ConsolidationRun{
		ID:      uuid.NewString(),
		Context: context,
	}
}
