package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mnemos/mnemos/pkg/consolidation"
	"github.com/mnemos/mnemos/pkg/memory"
	"github.com/mnemos/mnemos/pkg/notify"
	"github.com/mnemos/mnemos/pkg/retrieval"
	"github.com/mnemos/mnemos/pkg/segment"
	"github.com/mnemos/mnemos/pkg/workingmem"
)

// Observation is one ingested interaction.
type Observation struct {
	// Context groups related observations (session, project, task).
	Context string

	// Content is the raw text.
	Content string

	// Type classifies the observation (e.g. "message", "tool_call",
	// "decision").
	Type string

	// Outcome records the result, if known ("success", "failure", "").
	Outcome string

	// Confidence is the capture layer's confidence, in [0,1].
	Confidence float64
}

// IngestResult reports what one observation produced.
type IngestResult struct {
	// EventID is the persisted event's ID.
	EventID string

	// Boundaries are the detected segment boundaries, if any.
	Boundaries []segment.SurpriseEvent

	// ItemIDs are the working-memory items admitted for the segments.
	ItemIDs []string

	// Zone is the working-set pressure zone after admission.
	Zone workingmem.Zone
}

// Ingest records an observation: it persists the event, segments the
// content at surprise boundaries, and admits each segment into working
// memory. At near-capacity pressure it kicks off consolidation for the
// observation's context.
func (e *Engine) Ingest(ctx context.Context, obs Observation) (*IngestResult, error) {
	event, err := memory.NewEvent(e.clock.Now(), obs.Content, obs.Type, obs.Outcome, obs.Confidence, obs.Context)
	if err != nil {
		return nil, err
	}
	if err := e.store.PutEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("persist event: %w", err)
	}

	tokens := segment.Tokenize(obs.Content)
	boundaries := e.segmenter.FindEventBoundaries(tokens)
	e.metrics.RecordBoundaries(len(boundaries))
	for _, b := range boundaries {
		e.bus.Publish(notify.SubjectBoundaryDetected, b)
	}

	result := &IngestResult{EventID: event.ID, Boundaries: boundaries}
	contentType := contentTypeFor(obs.Type)
	for _, span := range splitAtBoundaries(tokens, boundaries) {
		importance := obs.Confidence
		if span.confidence > importance {
			importance = span.confidence
		}
		id, _, err := e.working.Admit(span.text, contentType, importance, 0)
		if err != nil {
			e.log.Warn("admitting segment failed", "context", obs.Context, "error", err)
			continue
		}
		result.ItemIDs = append(result.ItemIDs, id)
	}

	e.metrics.SetWorkingItems(e.working.Len())
	result.Zone = e.noteZone()

	if result.Zone >= workingmem.ZoneNearCapacity && obs.Context != "" {
		bg := context.WithoutCancel(ctx)
		go func() {
			if err := e.orchestrator.TriggerContext(bg, obs.Context); err != nil {
				e.log.Warn("pressure-triggered consolidation failed", "context", obs.Context, "error", err)
			}
		}()
	}

	return result, nil
}

// span is a contiguous run of tokens between boundaries.
type span struct {
	text       string
	confidence float64
}

func splitAtBoundaries(tokens []string, boundaries []segment.SurpriseEvent) []span {
	if len(tokens) == 0 {
		return nil
	}
	if len(boundaries) == 0 {
		return []span{{text: strings.Join(tokens, " ")}}
	}

	var spans []span
	start := 0
	conf := 0.0
	for _, b := range boundaries {
		if b.Index > start {
			spans = append(spans, span{
				text:       strings.Join(tokens[start:b.Index], " "),
				confidence: conf,
			})
		}
		start = b.Index
		conf = b.Confidence
	}
	if start < len(tokens) {
		spans = append(spans, span{
			text:       strings.Join(tokens[start:], " "),
			confidence: conf,
		})
	}
	return spans
}

func contentTypeFor(eventType string) workingmem.ContentType {
	switch eventType {
	case "decision":
		return workingmem.ContentDecision
	case "tool_call", "action":
		return workingmem.ContentAction
	case "navigation", "location":
		return workingmem.ContentSpatial
	default:
		return workingmem.ContentVerbal
	}
}

// Remember stores content directly as an unconsolidated long-term record
// and indexes it for retrieval, bypassing working memory.
func (e *Engine) Remember(ctx context.Context, content, contextName string, usefulness float64) (*memory.MemoryRecord, error) {
	return e.remember(ctx, content, contextName, usefulness)
}

func (e *Engine) remember(ctx context.Context, content, contextName string, usefulness float64) (*memory.MemoryRecord, error) {
	record, err := memory.NewMemoryRecord(e.clock.Now(), content, contextName, usefulness)
	if err != nil {
		return nil, err
	}
	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, content)
		if err != nil {
			e.log.Warn("embedding record failed", "record_id", record.ID, "error", err)
		} else {
			record.Embedding = vec
		}
	}
	if err := e.store.PutRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("persist record: %w", err)
	}
	e.indexRecord(record)
	return record, nil
}

// indexRecord adds a record to the lexical and vector indexes.
func (e *Engine) indexRecord(record *memory.MemoryRecord) {
	e.bm25.Index(record.ID, record.Content)
	if len(record.Embedding) > 0 {
		if err := e.vector.Add(record.ID, record.Embedding); err != nil {
			e.log.Warn("vector indexing failed", "record_id", record.ID, "error", err)
		}
	}
}

// Retrieve runs the hybrid retrieval pipeline over the record indexes.
// Superseded records are filtered out, every returned record is marked
// retrieved (opening its reconsolidation window), and the returned IDs
// are primed for subsequent queries.
func (e *Engine) Retrieve(ctx context.Context, query retrieval.Query) (*retrieval.Result, error) {
	start := time.Now()

	baseFilter := query.Filter
	query.Filter = func(id string) bool {
		if baseFilter != nil && !baseFilter(id) {
			return false
		}
		record, err := e.store.GetRecord(ctx, id)
		if err != nil {
			return false
		}
		return record.State != memory.StateSuperseded
	}

	result, err := e.retriever.Retrieve(ctx, query, func(id string) (string, bool) {
		record, err := e.store.GetRecord(ctx, id)
		if err != nil {
			return "", false
		}
		return record.Content, true
	})
	if err != nil {
		e.metrics.RecordRetrieval("error", time.Since(start))
		return nil, err
	}

	if result.Degraded.LexicalUnavailable {
		e.metrics.RecordDegradation("lexical_unavailable")
	}
	if result.Degraded.VectorUnavailable {
		e.metrics.RecordDegradation("vector_unavailable")
	}
	if result.Degraded.RerankSkipped {
		e.metrics.RecordDegradation("rerank_skipped")
	}
	e.metrics.RecordRerankFailures(result.Impact.Failed)

	for _, candidate := range result.Candidates {
		if _, err := e.controller.MarkRetrieved(ctx, candidate.ID); err != nil {
			e.log.Warn("marking retrieval failed", "record_id", candidate.ID, "error", err)
		}
		row := e.priming.Prime(candidate.ID, "semantic", 1.0)
		if err := e.store.PutPriming(ctx, row); err != nil {
			e.log.Warn("persisting priming row failed", "record_id", candidate.ID, "error", err)
		}
	}

	e.metrics.RecordRetrieval("ok", time.Since(start))
	return result, nil
}

// Revise rewrites a labile record within its reconsolidation window. The
// successor replaces the prior record in the retrieval indexes.
func (e *Engine) Revise(ctx context.Context, id, content string) (*memory.MemoryRecord, error) {
	successor, err := e.controller.ReviseRecord(ctx, id, content)
	if err != nil {
		return nil, err
	}

	if e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, content)
		if err != nil {
			e.log.Warn("embedding successor failed", "record_id", successor.ID, "error", err)
		} else {
			successor.Embedding = vec
			if err := e.store.PutRecord(ctx, successor); err != nil {
				e.log.Warn("persisting successor embedding failed", "record_id", successor.ID, "error", err)
			}
		}
	}

	e.bm25.Remove(id)
	e.vector.Delete(id)
	e.indexRecord(successor)

	e.metrics.RecordSupersession()
	e.bus.Publish(notify.SubjectRecordSuperseded, map[string]string{
		"superseded_id": id,
		"successor_id":  successor.ID,
	})
	return successor, nil
}

// Feedback applies a batch of task outcomes to their matched patterns.
func (e *Engine) Feedback(ctx context.Context, batch []consolidation.Feedback) []consolidation.FeedbackResult {
	results := e.controller.BatchFeedback(ctx, batch)
	for _, r := range results {
		switch {
		case r.Err != nil:
			e.metrics.RecordFeedback("error")
		case r.Skipped:
			e.metrics.RecordFeedback("skipped")
		default:
			e.metrics.RecordFeedback("applied")
		}
	}
	return results
}

// Consolidate runs one consolidation pass for a context immediately,
// outside the orchestrator's schedule.
func (e *Engine) Consolidate(ctx context.Context, contextName string) error {
	return e.orchestrator.TriggerContext(ctx, contextName)
}

// WorkingItems returns a snapshot of the current working-memory items.
func (e *Engine) WorkingItems() []workingmem.Item {
	return e.working.Items()
}

// WorkingZone returns the current capacity pressure zone.
func (e *Engine) WorkingZone() workingmem.Zone {
	return e.working.Zone()
}

// Runs returns the most recent consolidation runs for a context, newest
// first. An empty context matches all contexts.
func (e *Engine) Runs(ctx context.Context, contextName string, limit int) ([]*memory.ConsolidationRun, error) {
	return e.store.ListRuns(ctx, contextName, limit)
}

// Subscribe returns a subscription to engine notifications. Patterns
// follow the notify bus syntax ("*" per segment, trailing ">").
func (e *Engine) Subscribe(pattern string, buffer int) *notify.Subscription {
	return e.bus.Subscribe(pattern, buffer)
}
