package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mnemos/mnemos/pkg/memory"
)

// MemStore is an in-memory Store for tests and embedded use. All methods
// are safe for concurrent use; returned values are copies.
type MemStore struct {
	mu       sync.RWMutex
	events   map[string]*memory.Event
	records  map[string]*memory.MemoryRecord
	patterns map[string]*memory.Pattern
	priming  map[memory.PrimingKey]memory.PrimingRecord
	runs     []*memory.ConsolidationRun
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		events:   make(map[string]*memory.Event),
		records:  make(map[string]*memory.MemoryRecord),
		patterns: make(map[string]*memory.Pattern),
		priming:  make(map[memory.PrimingKey]memory.PrimingRecord),
	}
}

func (s *MemStore) PutEvent(ctx context.Context, event *memory.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

func (s *MemStore) GetEvent(ctx context.Context, id string) (*memory.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	cp := *event
	return &cp, nil
}

func (s *MemStore) EventsByContext(ctx context.Context, context string, since time.Time) ([]*memory.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*memory.Event
	for _, event := range s.events {
		if event.Context == context && !event.Timestamp.Before(since) {
			cp := *event
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemStore) ContextsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, event := range s.events {
		if !event.Timestamp.Before(since) {
			counts[event.Context]++
		}
	}
	return counts, nil
}

func (s *MemStore) PutRecord(ctx context.Context, record *memory.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *MemStore) GetRecord(ctx context.Context, id string) (*memory.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *MemStore) ListRecords(ctx context.Context) ([]*memory.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*memory.MemoryRecord, 0, len(s.records))
	for _, record := range s.records {
		cp := *record
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) ListRecordsByState(ctx context.Context, state memory.ConsolidationState) ([]*memory.MemoryRecord, error) {
	all, _ := s.ListRecords(ctx)
	out := all[:0]
	for _, record := range all {
		if record.State == state {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *MemStore) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemStore) PutPattern(ctx context.Context, pattern *memory.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pattern
	s.patterns[pattern.ID] = &cp
	return nil
}

func (s *MemStore) GetPattern(ctx context.Context, id string) (*memory.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pattern, ok := s.patterns[id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	cp := *pattern
	return &cp, nil
}

func (s *MemStore) ListPatterns(ctx context.Context, status memory.PatternStatus) ([]*memory.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*memory.Pattern
	for _, pattern := range s.patterns {
		if pattern.Status == status {
			cp := *pattern
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) DeletePattern(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patterns, id)
	return nil
}

func (s *MemStore) PutPriming(ctx context.Context, row memory.PrimingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priming[memory.PrimingKey{MemoryID: row.MemoryID, Layer: row.Layer}] = row
	return nil
}

func (s *MemStore) ListPriming(ctx context.Context) ([]memory.PrimingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]memory.PrimingRecord, 0, len(s.priming))
	for _, row := range s.priming {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemoryID != out[j].MemoryID {
			return out[i].MemoryID < out[j].MemoryID
		}
		return out[i].Layer < out[j].Layer
	})
	return out, nil
}

func (s *MemStore) DeleteExpiredPriming(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, row := range s.priming {
		if row.Expired(now) {
			delete(s.priming, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemStore) PutRun(ctx context.Context, run *memory.ConsolidationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs = append(s.runs, &cp)
	return nil
}

func (s *MemStore) ListRuns(ctx context.Context, context string, limit int) ([]*memory.ConsolidationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*memory.ConsolidationRun
	for _, run := range s.runs {
		if context != "" && run.Context != context {
			continue
		}
		cp := *run
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Close() error { return nil }
