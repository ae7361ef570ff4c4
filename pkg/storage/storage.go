// Package storage defines the persistence boundary for the memory engine
// and provides in-memory and Badger-backed implementations. The store is
// the single source of truth for records, patterns, and priming rows;
// writes are transactional per entity, never across entities.
package storage

import (
	"context"
	"time"

	"github.com/mnemos/mnemos/pkg/memory"
)

// EventStore archives immutable interaction events.
type EventStore interface {
	PutEvent(ctx context.Context, event *memory.Event) error
	GetEvent(ctx context.Context, id string) (*memory.Event, error)
	// EventsByContext returns events for a context with timestamps at or
	// after since, ordered by timestamp ascending.
	EventsByContext(ctx context.Context, context string, since time.Time) ([]*memory.Event, error)
	// ContextsSince returns the distinct contexts that produced events at
	// or after since, with per-context event counts.
	ContextsSince(ctx context.Context, since time.Time) (map[string]int, error)
}

// RecordStore persists semantic/procedural memory records.
type RecordStore interface {
	PutRecord(ctx context.Context, record *memory.MemoryRecord) error
	GetRecord(ctx context.Context, id string) (*memory.MemoryRecord, error)
	ListRecords(ctx context.Context) ([]*memory.MemoryRecord, error)
	ListRecordsByState(ctx context.Context, state memory.ConsolidationState) ([]*memory.MemoryRecord, error)
	DeleteRecord(ctx context.Context, id string) error
}

// PatternStore persists mined patterns.
type PatternStore interface {
	PutPattern(ctx context.Context, pattern *memory.Pattern) error
	GetPattern(ctx context.Context, id string) (*memory.Pattern, error)
	ListPatterns(ctx context.Context, status memory.PatternStatus) ([]*memory.Pattern, error)
	DeletePattern(ctx context.Context, id string) error
}

// PrimingStore persists priming rows so boosts survive restarts.
type PrimingStore interface {
	PutPriming(ctx context.Context, row memory.PrimingRecord) error
	ListPriming(ctx context.Context) ([]memory.PrimingRecord, error)
	// DeleteExpiredPriming removes rows expired as of now and returns the
	// number removed.
	DeleteExpiredPriming(ctx context.Context, now time.Time) (int, error)
}

// RunStore persists the consolidation run log.
type RunStore interface {
	PutRun(ctx context.Context, run *memory.ConsolidationRun) error
	// ListRuns returns the most recent runs for a context, newest first.
	// An empty context matches all contexts.
	ListRuns(ctx context.Context, context string, limit int) ([]*memory.ConsolidationRun, error)
}

// Store bundles the per-entity stores behind one lifecycle.
type Store interface {
	EventStore
	RecordStore
	PatternStore
	PrimingStore
	RunStore
	Close() error
}
