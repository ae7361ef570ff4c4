package memory

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable interaction record produced by the capture layer.
// The engine reads and archives events; it never mutates them.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event was captured.
	Timestamp time.Time `json:"timestamp"`

	// Content is the raw text content of the event.
	Content string `json:"content"`

	// Type classifies the event (e.g. "message", "tool_call", "observation").
	Type string `json:"type"`

	// Outcome records the result of the event, if any ("success", "failure", "").
	Outcome string `json:"outcome,omitempty"`

	// Confidence is the capture layer's confidence in the event, in [0,1].
	Confidence float64 `json:"confidence"`

	// Context groups related events (session, project, task).
	Context string `json:"context,omitempty"`

	// Metadata holds arbitrary key-value pairs for filtering.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewEvent constructs an Event with a generated ID. Confidence is clamped
// to [0,1] at construction per the data-model contract.
func NewEvent(ts time.Time, content, eventType, outcome string, confidence float64, context string) (*Event, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	return &Event{
		ID:         uuid.NewString(),
		Timestamp:  ts,
		Content:    content,
		Type:       eventType,
		Outcome:    outcome,
		Confidence: Clamp01(confidence),
		Context:    context,
	}, nil
}
