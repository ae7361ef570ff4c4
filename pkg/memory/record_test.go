package memory

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from ConsolidationState
		to   ConsolidationState
		want bool
	}{
		{StateUnconsolidated, StateConsolidating, true},
		{StateUnconsolidated, StateConsolidated, false},
		{StateUnconsolidated, StateLabile, false},
		{StateConsolidating, StateConsolidated, true},
		{StateConsolidating, StateUnconsolidated, true},
		{StateConsolidating, StateLabile, false},
		{StateConsolidated, StateLabile, true},
		{StateConsolidated, StateSuperseded, true},
		{StateConsolidated, StateReconsolidating, false},
		{StateLabile, StateConsolidated, true},
		{StateLabile, StateReconsolidating, true},
		{StateLabile, StateSuperseded, false},
		{StateReconsolidating, StateConsolidated, true},
		{StateReconsolidating, StateSuperseded, true},
		{StateReconsolidating, StateLabile, false},
		{StateSuperseded, StateConsolidated, false},
		{StateSuperseded, StateLabile, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestMemoryRecordTransitionTo(t *testing.T) {
	record, err := NewMemoryRecord(testNow, "content", "ctx", 0.5)
	if err != nil {
		t.Fatalf("NewMemoryRecord failed: %v", err)
	}
	if record.State != StateUnconsolidated {
		t.Fatalf("new record state = %s, want unconsolidated", record.State)
	}
	if record.Version != 1 {
		t.Fatalf("new record version = %d, want 1", record.Version)
	}

	later := testNow.Add(time.Minute)
	if err := record.TransitionTo(StateConsolidating, later); err != nil {
		t.Fatalf("unconsolidated -> consolidating: %v", err)
	}
	if !record.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", record.UpdatedAt, later)
	}

	if err := record.TransitionTo(StateSuperseded, later); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("consolidating -> superseded: err = %v, want ErrInvalidTransition", err)
	}
	if record.State != StateConsolidating {
		t.Errorf("state after rejected transition = %s, want consolidating", record.State)
	}
}

func TestMemoryRecordSupersede(t *testing.T) {
	record, err := NewMemoryRecord(testNow, "content", "ctx", 0.5)
	if err != nil {
		t.Fatalf("NewMemoryRecord failed: %v", err)
	}

	// Superseding an unconsolidated record is illegal.
	if err := record.Supersede("successor-id", testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("supersede unconsolidated: err = %v, want ErrInvalidTransition", err)
	}
	if record.SupersededBy != "" {
		t.Errorf("SupersededBy set on failed supersede: %q", record.SupersededBy)
	}

	if err := record.TransitionTo(StateConsolidating, testNow); err != nil {
		t.Fatal(err)
	}
	if err := record.TransitionTo(StateConsolidated, testNow); err != nil {
		t.Fatal(err)
	}
	if err := record.Supersede("successor-id", testNow); err != nil {
		t.Fatalf("supersede consolidated: %v", err)
	}
	if record.State != StateSuperseded {
		t.Errorf("state = %s, want superseded", record.State)
	}
	if record.SupersededBy != "successor-id" {
		t.Errorf("SupersededBy = %q, want successor-id", record.SupersededBy)
	}
}

func TestNewMemoryRecordValidation(t *testing.T) {
	if _, err := NewMemoryRecord(testNow, "", "ctx", 0.5); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("empty content: err = %v, want ErrEmptyContent", err)
	}

	record, err := NewMemoryRecord(testNow, "content", "ctx", 1.7)
	if err != nil {
		t.Fatal(err)
	}
	if record.UsefulnessScore != 1.0 {
		t.Errorf("usefulness clamped to %v, want 1.0", record.UsefulnessScore)
	}
}

func TestNewEventClampsConfidence(t *testing.T) {
	if _, err := NewEvent(testNow, "", "message", "", 0.5, "ctx"); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("empty content: err = %v, want ErrEmptyContent", err)
	}

	event, err := NewEvent(testNow, "content", "message", "success", -0.2, "ctx")
	if err != nil {
		t.Fatal(err)
	}
	if event.Confidence != 0 {
		t.Errorf("confidence clamped to %v, want 0", event.Confidence)
	}
}

func TestNewPatternClampsScores(t *testing.T) {
	pattern := NewPattern(testNow, "n", PatternTransition, "a", "b", 5, 1.4, -0.1, 2.0)
	if pattern.Support != 1.0 {
		t.Errorf("support = %v, want 1.0", pattern.Support)
	}
	if pattern.ConfidenceScore != 0.0 {
		t.Errorf("confidence = %v, want 0.0", pattern.ConfidenceScore)
	}
	if pattern.SuccessRate != 1.0 {
		t.Errorf("success rate = %v, want 1.0", pattern.SuccessRate)
	}
	if pattern.Status != PatternActive {
		t.Errorf("status = %s, want active", pattern.Status)
	}
}

func TestPrimingRecordExpiry(t *testing.T) {
	row := PrimingRecord{
		MemoryID:  "m1",
		Layer:     "semantic",
		Strength:  1.0,
		PrimedAt:  testNow,
		ExpiresAt: testNow.Add(2 * time.Hour),
	}

	if row.Expired(testNow.Add(time.Hour)) {
		t.Error("row should not be expired before ExpiresAt")
	}
	if !row.Expired(testNow.Add(2 * time.Hour)) {
		t.Error("row should be expired at ExpiresAt")
	}
	if got := row.Key(); got != (PrimingKey{MemoryID: "m1", Layer: "semantic"}) {
		t.Errorf("unexpected key: %+v", got)
	}
}
