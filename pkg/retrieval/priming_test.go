package retrieval

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTable(t *testing.T) (*PrimingTable, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewPrimingTable(DefaultPrimingConfig(), clock), clock
}

func TestPrimingTable_TierDecay(t *testing.T) {
	table, clock := newTestTable(t)
	table.Prime("m1", "working", 1.0)

	if got := table.Boost("m1"); got != 2.0 {
		t.Errorf("within short window: expected 2.0, got %f", got)
	}

	clock.Advance(10 * time.Minute)
	if got := table.Boost("m1"); got != 1.5 {
		t.Errorf("within medium window: expected 1.5, got %f", got)
	}

	clock.Advance(50 * time.Minute)
	if got := table.Boost("m1"); got != 1.2 {
		t.Errorf("within long window: expected 1.2, got %f", got)
	}

	clock.Advance(2 * time.Hour)
	if got := table.Boost("m1"); got != 1.0 {
		t.Errorf("past long window: expected 1.0, got %f", got)
	}
}

func TestPrimingTable_UnknownMemory(t *testing.T) {
	table, _ := newTestTable(t)
	if got := table.Boost("nope"); got != 1.0 {
		t.Errorf("expected neutral boost for unknown memory, got %f", got)
	}
}

func TestPrimingTable_RePrimeRefreshes(t *testing.T) {
	table, clock := newTestTable(t)
	table.Prime("m1", "working", 1.0)

	clock.Advance(25 * time.Minute)
	table.Prime("m1", "working", 1.0)

	if got := table.Boost("m1"); got != 2.0 {
		t.Errorf("re-primed row should be back in short tier, got %f", got)
	}
	if len(table.Rows()) != 1 {
		t.Errorf("re-priming should update in place, got %d rows", len(table.Rows()))
	}
}

func TestPrimingTable_MaxAcrossLayers(t *testing.T) {
	table, clock := newTestTable(t)
	table.Prime("m1", "working", 1.0)
	clock.Advance(10 * time.Minute)
	table.Prime("m1", "episodic", 1.0)

	// working is in the medium tier, episodic in the short tier.
	if got := table.Boost("m1"); got != 2.0 {
		t.Errorf("expected strongest layer to win, got %f", got)
	}
	if got := table.BoostForLayer("m1", "working"); got != 1.5 {
		t.Errorf("expected 1.5 for working layer alone, got %f", got)
	}
}

func TestPrimingTable_Purge(t *testing.T) {
	table, clock := newTestTable(t)
	table.Prime("old", "working", 1.0)
	clock.Advance(3 * time.Hour)
	table.Prime("fresh", "working", 1.0)

	if removed := table.Purge(); removed != 1 {
		t.Errorf("expected 1 expired row purged, got %d", removed)
	}
	rows := table.Rows()
	if len(rows) != 1 || rows[0].MemoryID != "fresh" {
		t.Errorf("expected only the fresh row to survive, got %+v", rows)
	}
}

func TestPrimingTable_LoadSkipsExpired(t *testing.T) {
	table, clock := newTestTable(t)
	table.Prime("a", "working", 1.0)
	table.Prime("b", "working", 1.0)
	rows := table.Rows()

	clock.Advance(3 * time.Hour)
	restored := NewPrimingTable(DefaultPrimingConfig(), clock)
	restored.Load(rows)
	if got := len(restored.Rows()); got != 0 {
		t.Errorf("expected expired rows dropped on load, got %d", got)
	}
}
