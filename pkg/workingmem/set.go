package workingmem

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemos/mnemos/pkg/memory"
)

// Zone names the capacity pressure level of the working set.
type Zone int

const (
	ZoneOptimal Zone = iota
	ZoneNormal
	ZoneCaution
	ZoneNearCapacity
	ZoneOverflow
)

// String returns the string representation of the zone.
func (z Zone) String() string {
	switch z {
	case ZoneOptimal:
		return "optimal"
	case ZoneNormal:
		return "normal"
	case ZoneCaution:
		return "caution"
	case ZoneNearCapacity:
		return "near_capacity"
	case ZoneOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Item is a working-memory item. Items are owned exclusively by the
// WorkingMemorySet for their lifetime; callers receive copies.
type Item struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	ContentType  ContentType `json:"content_type"`
	CreatedAt    time.Time   `json:"created_at"`
	LastAccessed time.Time   `json:"last_accessed"`
	Importance   float64     `json:"importance"`
	DecayRate    float64     `json:"decay_rate"`
	ActiveCycles int         `json:"active_cycles"`
}

// SetConfig tunes capacity zones and the archival policy.
type SetConfig struct {
	// Capacity is the nominal capacity N. At or above it the set is in
	// the overflow zone.
	Capacity int

	// OptimalMax is the upper count of the optimal zone.
	OptimalMax int

	// CautionCount is the count at which the caution zone begins.
	CautionCount int

	// NearCapacityCount is the count at which auto-consolidation should
	// trigger.
	NearCapacityCount int

	// ArchivalDecayThreshold is the decay score (decay rate x hours since
	// access) above which an item becomes archivable.
	ArchivalDecayThreshold float64

	// ArchivalImportanceCutoff is the importance below which an item
	// becomes archivable. Both conditions are required, so high-importance
	// items are never silently dropped regardless of age.
	ArchivalImportanceCutoff float64

	// DefaultDecayRate applies to admitted items that do not specify one.
	DefaultDecayRate float64
}

// DefaultSetConfig returns the working-set defaults (nominal capacity 7).
func DefaultSetConfig() SetConfig {
	return SetConfig{
		Capacity:                 7,
		OptimalMax:               3,
		CautionCount:             5,
		NearCapacityCount:        6,
		ArchivalDecayThreshold:   0.5,
		ArchivalImportanceCutoff: 0.6,
		DefaultDecayRate:         0.1,
	}
}

// Set is the bounded collection of active working-memory items.
type Set struct {
	mu    sync.RWMutex
	cfg   SetConfig
	decay *DecayCalculator
	clock memory.Clock
	items map[string]*Item
}

// NewSet creates a working-memory set.
func NewSet(cfg SetConfig, decay *DecayCalculator, clock memory.Clock) *Set {
	def := DefaultSetConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.OptimalMax <= 0 {
		cfg.OptimalMax = def.OptimalMax
	}
	if cfg.CautionCount <= 0 {
		cfg.CautionCount = def.CautionCount
	}
	if cfg.NearCapacityCount <= 0 {
		cfg.NearCapacityCount = def.NearCapacityCount
	}
	if cfg.ArchivalDecayThreshold <= 0 {
		cfg.ArchivalDecayThreshold = def.ArchivalDecayThreshold
	}
	if cfg.ArchivalImportanceCutoff <= 0 {
		cfg.ArchivalImportanceCutoff = def.ArchivalImportanceCutoff
	}
	if cfg.DefaultDecayRate <= 0 {
		cfg.DefaultDecayRate = def.DefaultDecayRate
	}
	if decay == nil {
		decay = NewDecayCalculator(DefaultDecayConfig())
	}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	return &Set{
		cfg:   cfg,
		decay: decay,
		clock: clock,
		items: make(map[string]*Item),
	}
}

// Admit adds a new item and returns its ID and the resulting zone, so
// callers can trigger consolidation at near-capacity. Importance is
// clamped at admission.
func (s *Set) Admit(content string, contentType ContentType, importance, decayRate float64) (string, Zone, error) {
	if content == "" {
		return "", ZoneOptimal, memory.ErrEmptyContent
	}
	if decayRate <= 0 {
		decayRate = s.cfg.DefaultDecayRate
	}
	now := s.clock.Now()
	item := &Item{
		ID:           uuid.NewString(),
		Content:      content,
		ContentType:  contentType,
		CreatedAt:    now,
		LastAccessed: now,
		Importance:   memory.Clamp01(importance),
		DecayRate:    decayRate,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return item.ID, s.zoneLocked(), nil
}

// Access records a retrieval of the item: last-accessed and active-cycle
// updates serialize under the set lock, so concurrent accesses to the
// same item never interleave.
func (s *Set) Access(id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, memory.ErrNotFound
	}
	item.LastAccessed = s.clock.Now()
	item.ActiveCycles++
	return *item, nil
}

// Get returns a copy of the item without touching access tracking.
func (s *Set) Get(id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, memory.ErrNotFound
	}
	return *item, nil
}

// Remove evicts the item from the set.
func (s *Set) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return memory.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Clear empties the set and returns the number of items removed.
func (s *Set) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = make(map[string]*Item)
	return n
}

// Len returns the current item count.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Zone returns the current capacity zone.
func (s *Set) Zone() Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.zoneLocked()
}

// ZoneForCount classifies an arbitrary item count. The classification is a
// total, non-overlapping partition: every count maps to exactly one zone.
func (s *Set) ZoneForCount(count int) Zone {
	switch {
	case count >= s.cfg.Capacity:
		return ZoneOverflow
	case count >= s.cfg.NearCapacityCount:
		return ZoneNearCapacity
	case count >= s.cfg.CautionCount:
		return ZoneCaution
	case count > s.cfg.OptimalMax:
		return ZoneNormal
	default:
		return ZoneOptimal
	}
}

func (s *Set) zoneLocked() Zone {
	return s.ZoneForCount(len(s.items))
}

// Activation computes the item's current activation level.
func (s *Set) Activation(id string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return 0, memory.ErrNotFound
	}
	age := s.clock.Now().Sub(item.LastAccessed)
	return s.decay.Activation(item.Importance, item.ContentType, age), nil
}

// Items returns a snapshot of all items, most recently accessed first.
func (s *Set) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out
}

// ItemsForArchiving returns items whose decay score exceeds the archival
// threshold AND whose importance is below the cutoff. Both conditions are
// required by contract.
func (s *Set) ItemsForArchiving() []Item {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, item := range s.items {
		hours := now.Sub(item.LastAccessed).Hours()
		score := item.DecayRate * hours
		if score > s.cfg.ArchivalDecayThreshold && item.Importance < s.cfg.ArchivalImportanceCutoff {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.Before(out[j].LastAccessed)
	})
	return out
}

// Archive removes the given items from the set and returns the removed
// copies. Event history is never touched here; archival only affects the
// working set.
func (s *Set) Archive(ids []string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, *item)
			delete(s.items, id)
		}
	}
	return out
}
