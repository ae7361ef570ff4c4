package consolidation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mnemos/mnemos/pkg/memory"
	"github.com/mnemos/mnemos/pkg/storage"
)

// ControllerConfig tunes the reconsolidation state machine and feedback.
type ControllerConfig struct {
	// ReconsolidationWindow is how long after a retrieval a consolidated
	// record stays revisable (default 5m).
	ReconsolidationWindow time.Duration

	// SuccessIncrement and FailureDecrement adjust pattern confidence per
	// outcome. Failures weigh more than successes (defaults +0.05/-0.10).
	SuccessIncrement float64
	FailureDecrement float64

	// DeprecationFloor deprecates a pattern once confidence drops below
	// it (default 0.4).
	DeprecationFloor float64
}

// DefaultControllerConfig returns the reconsolidation defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		ReconsolidationWindow: 5 * time.Minute,
		SuccessIncrement:      0.05,
		FailureDecrement:      0.10,
		DeprecationFloor:      0.4,
	}
}

type controllerLogger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Controller owns the memory-record state machine and bidirectional
// confidence feedback. All record and pattern state writes in the engine
// flow through here.
type Controller struct {
	cfg      ControllerConfig
	records  storage.RecordStore
	patterns storage.PatternStore
	clock    memory.Clock
	logger   controllerLogger
}

// NewController creates a reconsolidation controller. logger may be nil.
func NewController(cfg ControllerConfig, records storage.RecordStore, patterns storage.PatternStore, clock memory.Clock, logger controllerLogger) *Controller {
	def := DefaultControllerConfig()
	if cfg.ReconsolidationWindow <= 0 {
		cfg.ReconsolidationWindow = def.ReconsolidationWindow
	}
	if cfg.SuccessIncrement <= 0 {
		cfg.SuccessIncrement = def.SuccessIncrement
	}
	if cfg.FailureDecrement <= 0 {
		cfg.FailureDecrement = def.FailureDecrement
	}
	if cfg.DeprecationFloor <= 0 {
		cfg.DeprecationFloor = def.DeprecationFloor
	}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{
		cfg:      cfg,
		records:  records,
		patterns: patterns,
		clock:    clock,
		logger:   logger,
	}
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Warn(msg string, args ...any)  {}

// MarkRetrieved records a retrieval. Retrieving a consolidated record
// opens its reconsolidation window: the record turns labile and stays
// revisable until the window elapses. Retrieval of records in any other
// state only updates access bookkeeping.
func (c *Controller) MarkRetrieved(ctx context.Context, id string) (*memory.MemoryRecord, error) {
	record, err := c.records.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()

	if record.State == memory.StateConsolidated {
		if err := record.TransitionTo(memory.StateLabile, now); err != nil {
			return nil, err
		}
		c.logger.Debug("record turned labile", "id", id)
	}

	record.AccessCount++
	record.LastRetrieved = now
	if err := c.records.PutRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ReviseRecord rewrites a labile record within its reconsolidation
// window. The prior version moves through reconsolidating to superseded
// with SupersededBy back-filled; the successor carries version prior+1
// and starts reconsolidating, settling to consolidated once its window
// elapses untouched. Revising a record in any other state is an invalid
// transition.
func (c *Controller) ReviseRecord(ctx context.Context, id, content string) (*memory.MemoryRecord, error) {
	if content == "" {
		return nil, memory.ErrEmptyContent
	}
	prior, err := c.records.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()

	if prior.State != memory.StateLabile || now.Sub(prior.LastRetrieved) > c.cfg.ReconsolidationWindow {
		return nil, fmt.Errorf("%w: revise requires a labile record within the window, state=%s", memory.ErrInvalidTransition, prior.State)
	}
	if err := prior.TransitionTo(memory.StateReconsolidating, now); err != nil {
		return nil, err
	}

	successor := &memory.MemoryRecord{
		ID:              uuid.NewString(),
		Content:         content,
		Version:         prior.Version + 1,
		State:           memory.StateReconsolidating,
		UsefulnessScore: prior.UsefulnessScore,
		Context:         prior.Context,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := c.records.PutRecord(ctx, successor); err != nil {
		return nil, err
	}
	if err := prior.Supersede(successor.ID, now); err != nil {
		return nil, err
	}
	if err := c.records.PutRecord(ctx, prior); err != nil {
		return nil, err
	}
	c.logger.Debug("record revised", "prior", prior.ID, "successor", successor.ID, "version", successor.Version)
	return successor, nil
}

// SettleLabile returns labile records whose window elapsed untouched to
// the consolidated state, and promotes reconsolidating successors whose
// window elapsed. Returns the number settled.
func (c *Controller) SettleLabile(ctx context.Context) (int, error) {
	labile, err := c.records.ListRecordsByState(ctx, memory.StateLabile)
	if err != nil {
		return 0, err
	}
	reconsolidating, err := c.records.ListRecordsByState(ctx, memory.StateReconsolidating)
	if err != nil {
		return 0, err
	}
	now := c.clock.Now()
	settled := 0
	for _, record := range append(labile, reconsolidating...) {
		// Fresh successors were never retrieved; their revision time
		// anchors the window instead.
		anchor := record.LastRetrieved
		if anchor.IsZero() {
			anchor = record.UpdatedAt
		}
		if now.Sub(anchor) <= c.cfg.ReconsolidationWindow {
			continue
		}
		if err := record.TransitionTo(memory.StateConsolidated, now); err != nil {
			c.logger.Warn("settle failed", "id", record.ID, "error", err)
			continue
		}
		if err := c.records.PutRecord(ctx, record); err != nil {
			c.logger.Warn("settle write failed", "id", record.ID, "error", err)
			continue
		}
		settled++
	}
	return settled, nil
}

// Consolidate promotes an unconsolidated record through consolidating to
// consolidated.
func (c *Controller) Consolidate(ctx context.Context, id string) (*memory.MemoryRecord, error) {
	record, err := c.records.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	if err := record.TransitionTo(memory.StateConsolidating, now); err != nil {
		return nil, err
	}
	if err := record.TransitionTo(memory.StateConsolidated, now); err != nil {
		return nil, err
	}
	if err := c.records.PutRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ApplyOutcome nudges a pattern's confidence for one outcome: a fixed
// increment on success, a larger decrement on failure, clamped to [0,1].
// A pattern whose confidence falls below the deprecation floor flips to
// deprecated and is excluded from ranking.
func (c *Controller) ApplyOutcome(ctx context.Context, patternID string, success bool) (*memory.Pattern, error) {
	pattern, err := c.patterns.GetPattern(ctx, patternID)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()

	observed := 0.0
	if success {
		pattern.ConfidenceScore = memory.Clamp01(pattern.ConfidenceScore + c.cfg.SuccessIncrement)
		observed = 1.0
	} else {
		pattern.ConfidenceScore = memory.Clamp01(pattern.ConfidenceScore - c.cfg.FailureDecrement)
		pattern.FailureCount++
	}
	pattern.SuccessRate = memory.Clamp01((pattern.SuccessRate*float64(pattern.SampleSize) + observed) / float64(pattern.SampleSize+1))
	pattern.SampleSize++
	pattern.UpdatedAt = now

	if pattern.ConfidenceScore < c.cfg.DeprecationFloor && pattern.Status == memory.PatternActive {
		pattern.Status = memory.PatternDeprecated
		c.logger.Debug("pattern deprecated", "id", patternID, "confidence", pattern.ConfidenceScore)
	}

	if err := c.patterns.PutPattern(ctx, pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

// Feedback is one (task, pattern, outcome) triple for batch application.
type Feedback struct {
	TaskID    string
	PatternID string
	Success   bool
}

// FeedbackResult reports the per-pair outcome of a batch application.
type FeedbackResult struct {
	TaskID    string
	PatternID string
	Skipped   bool
	Err       error
}

// BatchFeedback applies a feedback batch. Duplicate (task, pattern) pairs
// within the batch are applied once and reported as skipped; a failing
// pair is reported and does not abort the rest.
func (c *Controller) BatchFeedback(ctx context.Context, batch []Feedback) []FeedbackResult {
	results := make([]FeedbackResult, 0, len(batch))
	seen := make(map[string]struct{}, len(batch))
	for _, fb := range batch {
		result := FeedbackResult{TaskID: fb.TaskID, PatternID: fb.PatternID}
		key := fb.TaskID + "\x00" + fb.PatternID
		if _, dup := seen[key]; dup {
			result.Skipped = true
			results = append(results, result)
			continue
		}
		seen[key] = struct{}{}

		if _, err := c.ApplyOutcome(ctx, fb.PatternID, fb.Success); err != nil {
			result.Err = err
			c.logger.Warn("feedback failed", "task", fb.TaskID, "pattern", fb.PatternID, "error", err)
		}
		results = append(results, result)
	}
	return results
}
