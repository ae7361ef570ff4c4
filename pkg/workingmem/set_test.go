package workingmem

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mnemos/mnemos/pkg/memory"
)

// fakeClock is a manually advanced clock for decay tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestSet(t *testing.T) (*Set, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	set := NewSet(DefaultSetConfig(), NewDecayCalculator(DefaultDecayConfig()), clock)
	return set, clock
}

func TestZoneForCount_TotalPartition(t *testing.T) {
	set, _ := newTestSet(t)

	want := map[int]Zone{
		0:  ZoneOptimal,
		1:  ZoneOptimal,
		2:  ZoneOptimal,
		3:  ZoneOptimal,
		4:  ZoneNormal,
		5:  ZoneCaution,
		6:  ZoneNearCapacity,
		7:  ZoneOverflow,
		8:  ZoneOverflow,
		12: ZoneOverflow,
	}

	for count, zone := range want {
		if got := set.ZoneForCount(count); got != zone {
			t.Errorf("ZoneForCount(%d) = %v, want %v", count, got, zone)
		}
	}

	// Every count maps to exactly one zone; adjacent counts never skip
	// backward through the ordering.
	prev := ZoneOptimal
	for count := 0; count <= 20; count++ {
		z := set.ZoneForCount(count)
		if z < prev {
			t.Errorf("zone regressed at count %d: %v after %v", count, z, prev)
		}
		prev = z
	}
}

func TestAdmitReportsZone(t *testing.T) {
	set, _ := newTestSet(t)

	var lastZone Zone
	for i := 0; i < 7; i++ {
		_, zone, err := set.Admit(fmt.Sprintf("item %d", i), ContentVerbal, 0.5, 0)
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		lastZone = zone
	}
	if lastZone != ZoneOverflow {
		t.Errorf("zone after 7 admissions = %v, want overflow", lastZone)
	}
}

func TestAdmit_EmptyContent(t *testing.T) {
	set, _ := newTestSet(t)
	if _, _, err := set.Admit("", ContentVerbal, 0.5, 0); err != memory.ErrEmptyContent {
		t.Errorf("Admit(empty) error = %v, want ErrEmptyContent", err)
	}
}

func TestAccess_TracksCyclesAndTime(t *testing.T) {
	set, clock := newTestSet(t)

	id, _, err := set.Admit("remember this", ContentVerbal, 0.8, 0)
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(10 * time.Minute)
	item, err := set.Access(id)
	if err != nil {
		t.Fatal(err)
	}
	if item.ActiveCycles != 1 {
		t.Errorf("ActiveCycles = %d, want 1", item.ActiveCycles)
	}
	if !item.LastAccessed.Equal(clock.Now()) {
		t.Errorf("LastAccessed = %v, want %v", item.LastAccessed, clock.Now())
	}

	if _, err := set.Access("no-such-id"); err != memory.ErrNotFound {
		t.Errorf("Access(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAccess_ConcurrentSerializes(t *testing.T) {
	set, _ := newTestSet(t)
	id, _, _ := set.Admit("contended", ContentAction, 0.5, 0)

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set.Access(id) //nolint:errcheck
		}()
	}
	wg.Wait()

	item, err := set.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if item.ActiveCycles != goroutines {
		t.Errorf("ActiveCycles = %d, want %d", item.ActiveCycles, goroutines)
	}
}

func TestItemsForArchiving_RequiresBothConditions(t *testing.T) {
	set, clock := newTestSet(t)

	// Old and unimportant: archivable.
	oldWeak, _, _ := set.Admit("stale note", ContentVerbal, 0.2, 0.2)
	// Old but important: never archived regardless of age.
	oldStrong, _, _ := set.Admit("critical decision", ContentDecision, 0.9, 0.2)

	clock.Advance(10 * time.Hour)

	// Fresh and unimportant: decay score still low.
	freshWeak, _, _ := set.Admit("fresh note", ContentVerbal, 0.2, 0.2)

	candidates := set.ItemsForArchiving()
	ids := make(map[string]bool, len(candidates))
	for _, item := range candidates {
		ids[item.ID] = true
	}

	if !ids[oldWeak] {
		t.Error("old low-importance item should be archivable")
	}
	if ids[oldStrong] {
		t.Error("high-importance item must not be archivable regardless of age")
	}
	if ids[freshWeak] {
		t.Error("recently accessed item should not be archivable")
	}
}

func TestArchiveRemovesItems(t *testing.T) {
	set, _ := newTestSet(t)
	a, _, _ := set.Admit("a", ContentVerbal, 0.3, 0)
	b, _, _ := set.Admit("b", ContentVerbal, 0.3, 0)

	removed := set.Archive([]string{a, "missing"})
	if len(removed) != 1 || removed[0].ID != a {
		t.Fatalf("Archive removed %v, want [%s]", removed, a)
	}
	if set.Len() != 1 {
		t.Errorf("Len = %d, want 1", set.Len())
	}
	if _, err := set.Get(b); err != nil {
		t.Errorf("unrelated item missing after archive: %v", err)
	}
}

func TestClear(t *testing.T) {
	set, _ := newTestSet(t)
	set.Admit("a", ContentVerbal, 0.3, 0) //nolint:errcheck
	set.Admit("b", ContentVerbal, 0.3, 0) //nolint:errcheck

	if n := set.Clear(); n != 2 {
		t.Errorf("Clear = %d, want 2", n)
	}
	if set.Zone() != ZoneOptimal {
		t.Errorf("zone after clear = %v, want optimal", set.Zone())
	}
}

func TestActivationDropsWithClock(t *testing.T) {
	set, clock := newTestSet(t)
	id, _, _ := set.Admit("fading", ContentVerbal, 0.8, 0)

	before, err := set.Activation(id)
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Hour)
	after, err := set.Activation(id)
	if err != nil {
		t.Fatal(err)
	}
	if after >= before {
		t.Errorf("activation did not drop: before=%f after=%f", before, after)
	}
}
