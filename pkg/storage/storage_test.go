package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mnemos/mnemos/pkg/memory"
)

// stores returns every backend under test, keyed by name.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	bs := NewBadgerStore(db)
	t.Cleanup(func() { bs.Close() })
	return map[string]Store{
		"mem":    NewMemStore(),
		"badger": bs,
	}
}

func mustEvent(t *testing.T, ts time.Time, content, context string) *memory.Event {
	t.Helper()
	event, err := memory.NewEvent(ts, content, "action", "", 0.9, context)
	if err != nil {
		t.Fatal(err)
	}
	return event
}

func TestStore_EventRoundTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e1 := mustEvent(t, base, "first step", "proj-a")
			e2 := mustEvent(t, base.Add(time.Minute), "second step", "proj-a")
			e3 := mustEvent(t, base.Add(2*time.Minute), "other work", "proj-b")
			for _, e := range []*memory.Event{e1, e2, e3} {
				if err := store.PutEvent(ctx, e); err != nil {
					t.Fatal(err)
				}
			}

			got, err := store.GetEvent(ctx, e1.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Context != "proj-a" || got.Content != "first step" {
				t.Errorf("round trip mismatch: %+v", got)
			}

			events, err := store.EventsByContext(ctx, "proj-a", base)
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != 2 {
				t.Fatalf("expected 2 proj-a events, got %d", len(events))
			}
			if events[0].ID != e1.ID || events[1].ID != e2.ID {
				t.Error("expected timestamp-ascending order")
			}

			// Lookback cuts off older events.
			events, err = store.EventsByContext(ctx, "proj-a", base.Add(30*time.Second))
			if err != nil {
				t.Fatal(err)
			}
			if len(events) != 1 || events[0].ID != e2.ID {
				t.Errorf("expected only the later event within lookback, got %d", len(events))
			}

			counts, err := store.ContextsSince(ctx, base)
			if err != nil {
				t.Fatal(err)
			}
			if counts["proj-a"] != 2 || counts["proj-b"] != 1 {
				t.Errorf("unexpected context counts: %v", counts)
			}
		})
	}
}

func TestStore_RecordNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetRecord(context.Background(), "missing")
			if !errors.Is(err, memory.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_RecordsByState(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r1, err := memory.NewMemoryRecord(now, "alpha", "proj-a", 0.5)
			if err != nil {
				t.Fatal(err)
			}
			r2, err := memory.NewMemoryRecord(now, "beta", "proj-a", 0.5)
			if err != nil {
				t.Fatal(err)
			}
			if err := r2.TransitionTo(memory.StateConsolidating, now); err != nil {
				t.Fatal(err)
			}
			for _, r := range []*memory.MemoryRecord{r1, r2} {
				if err := store.PutRecord(ctx, r); err != nil {
					t.Fatal(err)
				}
			}

			got, err := store.ListRecordsByState(ctx, memory.StateConsolidating)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].ID != r2.ID {
				t.Errorf("expected only the consolidating record, got %d", len(got))
			}
		})
	}
}

func TestStore_PatternsByStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			active := memory.NewPattern(now, "build then test", memory.PatternSequence, "build", "test", 10, 0.8, 0.9, 0.9)
			deprecated := memory.NewPattern(now, "flaky path", memory.PatternSequence, "deploy", "rollback", 10, 0.3, 0.2, 0.2)
			deprecated.Status = memory.PatternDeprecated
			for _, p := range []*memory.Pattern{active, deprecated} {
				if err := store.PutPattern(ctx, p); err != nil {
					t.Fatal(err)
				}
			}

			got, err := store.ListPatterns(ctx, memory.PatternActive)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].ID != active.ID {
				t.Errorf("expected only the active pattern, got %d", len(got))
			}
		})
	}
}

func TestStore_PrimingRefreshAndPurge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			row := memory.PrimingRecord{
				MemoryID: "m1", Layer: "working", Strength: 1.0,
				PrimedAt: now, ExpiresAt: now.Add(2 * time.Hour),
			}
			if err := store.PutPriming(ctx, row); err != nil {
				t.Fatal(err)
			}
			// Same key writes in place.
			row.PrimedAt = now.Add(time.Minute)
			if err := store.PutPriming(ctx, row); err != nil {
				t.Fatal(err)
			}
			rows, err := store.ListPriming(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 {
				t.Fatalf("expected 1 row after refresh, got %d", len(rows))
			}

			removed, err := store.DeleteExpiredPriming(ctx, now.Add(3*time.Hour))
			if err != nil {
				t.Fatal(err)
			}
			if removed != 1 {
				t.Errorf("expected 1 purged, got %d", removed)
			}
		})
	}
}

func TestStore_RunLogNewestFirst(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, status := range []memory.RunStatus{memory.RunCompleted, memory.RunFailed, memory.RunCompleted} {
				run := memory.NewConsolidationRun("proj-a")
				run.Status = status
				run.Timestamp = now.Add(time.Duration(i) * time.Minute)
				if err := store.PutRun(ctx, run); err != nil {
					t.Fatal(err)
				}
			}

			runs, err := store.ListRuns(ctx, "proj-a", 2)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != 2 {
				t.Fatalf("expected 2 runs, got %d", len(runs))
			}
			if !runs[0].Timestamp.After(runs[1].Timestamp) {
				t.Errorf("expected newest first, got %v then %v", runs[0].Timestamp, runs[1].Timestamp)
			}
		})
	}
}
