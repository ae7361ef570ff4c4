package retrieval

import (
	"sync"
	"time"

	"github.com/mnemos/mnemos/pkg/memory"
)

// PrimingConfig tunes the tiered temporal boost.
type PrimingConfig struct {
	// ShortWindow, MediumWindow, and LongWindow bound the boost tiers by
	// elapsed time since priming. Beyond LongWindow the boost is 1.0 and
	// the row is purge-eligible.
	ShortWindow  time.Duration
	MediumWindow time.Duration
	LongWindow   time.Duration

	// ShortBoost, MediumBoost, and LongBoost are the tier multipliers.
	ShortBoost  float64
	MediumBoost float64
	LongBoost   float64
}

// DefaultPrimingConfig returns the priming defaults.
func DefaultPrimingConfig() PrimingConfig {
	return PrimingConfig{
		ShortWindow:  5 * time.Minute,
		MediumWindow: 30 * time.Minute,
		LongWindow:   2 * time.Hour,
		ShortBoost:   2.0,
		MediumBoost:  1.5,
		LongBoost:    1.2,
	}
}

// PrimingTable is a time-decayed boost registry keyed by (memory, layer).
// Boosts decay in discrete tiers; rows past the long window are purged.
type PrimingTable struct {
	mu    sync.RWMutex
	cfg   PrimingConfig
	clock memory.Clock
	rows  map[memory.PrimingKey]*memory.PrimingRecord
}

// NewPrimingTable creates a priming table.
func NewPrimingTable(cfg PrimingConfig, clock memory.Clock) *PrimingTable {
	def := DefaultPrimingConfig()
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = def.ShortWindow
	}
	if cfg.MediumWindow <= cfg.ShortWindow {
		cfg.MediumWindow = def.MediumWindow
	}
	if cfg.LongWindow <= cfg.MediumWindow {
		cfg.LongWindow = def.LongWindow
	}
	if cfg.ShortBoost <= 1 {
		cfg.ShortBoost = def.ShortBoost
	}
	if cfg.MediumBoost <= 1 {
		cfg.MediumBoost = def.MediumBoost
	}
	if cfg.LongBoost <= 1 {
		cfg.LongBoost = def.LongBoost
	}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	return &PrimingTable{
		cfg:   cfg,
		clock: clock,
		rows:  make(map[memory.PrimingKey]*memory.PrimingRecord),
	}
}

// Prime registers or refreshes a boost for (memoryID, layer). Repeated
// priming of the same pair refreshes the existing row in place rather
// than duplicating it. Strength is clamped to [0,1].
func (t *PrimingTable) Prime(memoryID, layer string, strength float64) memory.PrimingRecord {
	now := t.clock.Now()
	key := memory.PrimingKey{MemoryID: memoryID, Layer: layer}

	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[key]
	if !ok {
		row = &memory.PrimingRecord{MemoryID: memoryID, Layer: layer}
		t.rows[key] = row
	}
	row.Strength = memory.Clamp01(strength)
	row.PrimedAt = now
	row.ExpiresAt = now.Add(t.cfg.LongWindow)
	return *row
}

// Boost returns the multiplicative boost for a memory: the highest tier
// multiplier among its unexpired rows, or 1.0 if never primed or past
// all windows.
func (t *PrimingTable) Boost(memoryID string) float64 {
	now := t.clock.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	best := 1.0
	for key, row := range t.rows {
		if key.MemoryID != memoryID || row.Expired(now) {
			continue
		}
		if b := t.tierBoost(now.Sub(row.PrimedAt)); b > best {
			best = b
		}
	}
	return best
}

// BoostForLayer returns the boost for one (memory, layer) pair.
func (t *PrimingTable) BoostForLayer(memoryID, layer string) float64 {
	now := t.clock.Now()
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[memory.PrimingKey{MemoryID: memoryID, Layer: layer}]
	if !ok || row.Expired(now) {
		return 1.0
	}
	return t.tierBoost(now.Sub(row.PrimedAt))
}

func (t *PrimingTable) tierBoost(elapsed time.Duration) float64 {
	switch {
	case elapsed < t.cfg.ShortWindow:
		return t.cfg.ShortBoost
	case elapsed < t.cfg.MediumWindow:
		return t.cfg.MediumBoost
	case elapsed < t.cfg.LongWindow:
		return t.cfg.LongBoost
	default:
		return 1.0
	}
}

// Purge removes expired rows and returns the number purged.
func (t *PrimingTable) Purge() int {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	purged := 0
	for key, row := range t.rows {
		if row.Expired(now) {
			delete(t.rows, key)
			purged++
		}
	}
	return purged
}

// Rows returns a snapshot of all standing priming rows.
func (t *PrimingTable) Rows() []memory.PrimingRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]memory.PrimingRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, *row)
	}
	return out
}

// Load seeds the table from persisted rows, skipping already-expired ones.
func (t *PrimingTable) Load(rows []memory.PrimingRecord) {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range rows {
		row := rows[i]
		if row.Expired(now) {
			continue
		}
		t.rows[row.Key()] = &row
	}
}
