package memory

import (
	"time"

	"github.com/google/uuid"
)

// ConsolidationState is the lifecycle state of a MemoryRecord.
type ConsolidationState int

const (
	StateUnconsolidated ConsolidationState = iota
	StateConsolidating
	StateConsolidated
	StateLabile
	StateReconsolidating
	StateSuperseded
)

// String returns the string representation of the state.
func (s ConsolidationState) String() string {
	switch s {
	case StateUnconsolidated:
		return "unconsolidated"
	case StateConsolidating:
		return "consolidating"
	case StateConsolidated:
		return "consolidated"
	case StateLabile:
		return "labile"
	case StateReconsolidating:
		return "reconsolidating"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// stateTransitions is the exhaustive transition table. A retrieval within
// the reconsolidation window moves consolidated -> labile; an untouched
// labile record returns to consolidated; a write during the window moves
// labile -> reconsolidating, which resolves to consolidated or superseded.
var stateTransitions = map[ConsolidationState][]ConsolidationState{
	StateUnconsolidated:  {StateConsolidating},
	StateConsolidating:   {StateConsolidated, StateUnconsolidated},
	StateConsolidated:    {StateLabile, StateSuperseded},
	StateLabile:          {StateConsolidated, StateReconsolidating},
	StateReconsolidating: {StateConsolidated, StateSuperseded},
	StateSuperseded:      {},
}

// CanTransition reports whether from -> to is a legal lifecycle transition.
func CanTransition(from, to ConsolidationState) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MemoryRecord is a durable semantic/procedural memory unit.
type MemoryRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`

	// Content is the consolidated knowledge text.
	Content string `json:"content"`

	// Version increases strictly across supersession chains.
	Version int `json:"version"`

	// State is the consolidation lifecycle state.
	State ConsolidationState `json:"consolidation_state"`

	// SupersededBy is the successor's ID. Non-empty iff State == superseded.
	SupersededBy string `json:"superseded_by,omitempty"`

	// UsefulnessScore tracks outcome feedback, in [0,1].
	UsefulnessScore float64 `json:"usefulness_score"`

	// AccessCount is the number of retrievals of this record.
	AccessCount int `json:"access_count"`

	// Embedding is the record's vector, if one was computed.
	Embedding []float32 `json:"embedding,omitempty"`

	// Context groups records by their originating context.
	Context string `json:"context,omitempty"`

	// LastRetrieved anchors the reconsolidation window. Persisted so the
	// window survives restarts.
	LastRetrieved time.Time `json:"last_retrieved"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the last state or content change.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMemoryRecord constructs a version-1 record in the unconsolidated state.
func NewMemoryRecord(now time.Time, content, context string, usefulness float64) (*MemoryRecord, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	return &MemoryRecord{
		ID:              uuid.NewString(),
		Content:         content,
		Version:         1,
		State:           StateUnconsolidated,
		UsefulnessScore: Clamp01(usefulness),
		Context:         context,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// TransitionTo moves the record to the given state, rejecting illegal
// transitions. The caller supplies the clock time for UpdatedAt.
func (r *MemoryRecord) TransitionTo(state ConsolidationState, now time.Time) error {
	if !CanTransition(r.State, state) {
		return ErrInvalidTransition
	}
	r.State = state
	r.UpdatedAt = now
	return nil
}

// Supersede marks the record superseded by successorID. The successor's
// version must be exactly this record's version plus one; that invariant
// is enforced at the creation site in the reconsolidation controller.
func (r *MemoryRecord) Supersede(successorID string, now time.Time) error {
	if err := r.TransitionTo(StateSuperseded, now); err != nil {
		return err
	}
	r.SupersededBy = successorID
	return nil
}
