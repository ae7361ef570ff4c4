package consolidation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mnemos/mnemos/pkg/memory"
	"github.com/mnemos/mnemos/pkg/storage"
)

// OrchestratorConfig tunes the background consolidation scheduler.
type OrchestratorConfig struct {
	// Interval is the cycle period (default 5m).
	Interval time.Duration

	// Lookback bounds how far back the context selection looks for
	// recent events (default 24h).
	Lookback time.Duration

	// MinEvents is the minimum recent-event count before a context is
	// consolidated (default 3).
	MinEvents int

	// Backoff is the restart delay after an unexpected loop failure
	// (default 10s).
	Backoff time.Duration
}

// DefaultOrchestratorConfig returns the scheduler defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Interval:  5 * time.Minute,
		Lookback:  24 * time.Hour,
		MinEvents: 3,
		Backoff:   10 * time.Second,
	}
}

// Publisher receives orchestrator notifications. Satisfied by the
// notification bus.
type Publisher interface {
	Publish(subject string, payload any)
}

// Orchestrator drives periodic consolidation: each cycle it selects
// contexts with enough recent events, mines patterns per context, settles
// labile records, and persists a run record. At most one run per context
// is in flight at a time; per-context failures never abort the cycle.
type Orchestrator struct {
	cfg        OrchestratorConfig
	store      storage.Store
	extractor  *Extractor
	controller *Controller
	clock      memory.Clock
	logger     controllerLogger
	publisher  Publisher

	mu   sync.Mutex
	busy map[string]struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrchestrator creates a consolidation orchestrator. logger and
// publisher may be nil.
func NewOrchestrator(cfg OrchestratorConfig, store storage.Store, extractor *Extractor, controller *Controller, clock memory.Clock, logger controllerLogger, publisher Publisher) *Orchestrator {
	def := DefaultOrchestratorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.MinEvents <= 0 {
		cfg.MinEvents = def.MinEvents
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		extractor:  extractor,
		controller: controller,
		clock:      clock,
		logger:     logger,
		publisher:  publisher,
		busy:       make(map[string]struct{}),
	}
}

// Start launches the background loop. The loop restarts after a backoff
// on unexpected failure instead of terminating.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan struct{})
	go func() {
		defer close(o.done)
		for {
			o.runLoop(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.cfg.Backoff):
				o.logger.Warn("consolidation loop restarting after backoff")
			}
		}
	}()
}

// Stop cancels the loop and waits for the current cycle to wind down. An
// in-flight context finishes with an interrupted run record.
func (o *Orchestrator) Stop() {
	if o.cancel == nil {
		return
	}
	o.cancel()
	<-o.done
}

func (o *Orchestrator) runLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("consolidation loop panicked", "panic", r)
		}
	}()

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Cycle(ctx)
		}
	}
}

// Cycle performs one selection-and-consolidation pass over all eligible
// contexts. Exported so callers can trigger a pass outside the schedule.
func (o *Orchestrator) Cycle(ctx context.Context) {
	since := o.clock.Now().Add(-o.cfg.Lookback)
	counts, err := o.store.ContextsSince(ctx, since)
	if err != nil {
		o.logger.Warn("context selection failed", "error", err)
		return
	}

	for context, count := range counts {
		if count < o.cfg.MinEvents {
			continue
		}
		if err := o.TriggerContext(ctx, context); err != nil {
			o.logger.Warn("context consolidation failed", "context", context, "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// TriggerContext consolidates one context immediately. A context with a
// run already in flight is a no-op, never a concurrent second run.
func (o *Orchestrator) TriggerContext(ctx context.Context, name string) error {
	if !o.acquire(name) {
		o.logger.Debug("context busy, skipping", "context", name)
		return nil
	}
	defer o.release(name)
	return o.consolidateContext(ctx, name)
}

func (o *Orchestrator) acquire(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, inFlight := o.busy[name]; inFlight {
		return false
	}
	o.busy[name] = struct{}{}
	return true
}

func (o *Orchestrator) release(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.busy, name)
}

func (o *Orchestrator) consolidateContext(ctx context.Context, name string) error {
	start := o.clock.Now()
	run := memory.NewConsolidationRun(name)

	entities, relationships, err := o.consolidate(ctx, name)
	run.EntitiesCreated = entities
	run.RelationshipsCreated = relationships
	run.Duration = o.clock.Now().Sub(start)
	run.Timestamp = o.clock.Now()

	switch {
	case ctx.Err() != nil:
		run.Status = memory.RunInterrupted
		run.Error = ctx.Err().Error()
	case err != nil:
		run.Status = memory.RunFailed
		run.Error = err.Error()
	default:
		run.Status = memory.RunCompleted
	}

	// The run log is written on a fresh context so interrupted runs are
	// still recorded.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if putErr := o.store.PutRun(writeCtx, run); putErr != nil {
		o.logger.Warn("run record write failed", "context", name, "error", putErr)
	}
	if o.publisher != nil {
		o.publisher.Publish("consolidation.run", run)
	}
	o.logger.Debug("consolidation run finished",
		"context", name, "status", run.Status.String(),
		"entities", entities, "duration", run.Duration)
	return err
}

// consolidate mines patterns from the context's recent events and settles
// labile records. Returns entity and relationship counts for the run log.
func (o *Orchestrator) consolidate(ctx context.Context, name string) (entities, relationships int, err error) {
	since := o.clock.Now().Add(-o.cfg.Lookback)
	events, err := o.store.EventsByContext(ctx, name, since)
	if err != nil {
		return 0, 0, fmt.Errorf("load events: %w", err)
	}
	if len(events) < o.cfg.MinEvents {
		return 0, 0, nil
	}

	patterns := o.extractor.Extract(o.clock.Now(), evidenceFromEvents(events))
	for _, pattern := range patterns {
		if ctx.Err() != nil {
			return entities, relationships, ctx.Err()
		}
		if putErr := o.store.PutPattern(ctx, pattern); putErr != nil {
			o.logger.Warn("pattern write failed", "pattern", pattern.Name, "error", putErr)
			continue
		}
		entities++
	}

	settled, err := o.controller.SettleLabile(ctx)
	if err != nil {
		return entities, relationships, fmt.Errorf("settle labile: %w", err)
	}
	relationships += settled
	return entities, relationships, nil
}

// evidenceFromEvents derives extraction evidence: consecutive event types
// become sequence steps, and events carrying an outcome become feedback.
func evidenceFromEvents(events []*memory.Event) []Evidence {
	var evidence []Evidence
	for i, event := range events {
		if i+1 < len(events) {
			evidence = append(evidence, Evidence{
				Kind:       KindSequence,
				Antecedent: eventKey(event),
				Consequent: eventKey(events[i+1]),
				Timestamp:  event.Timestamp,
			})
		}
		if event.Outcome != "" {
			evidence = append(evidence, Evidence{
				Kind:       KindFeedback,
				Antecedent: eventKey(event),
				Outcome:    event.Outcome,
				Timestamp:  event.Timestamp,
			})
		}
	}
	return evidence
}

func eventKey(event *memory.Event) string {
	if event.Type != "" {
		return event.Type
	}
	return "event"
}
