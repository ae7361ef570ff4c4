package memory

import "time"

// PrimingRecord is a time-decayed retrieval boost registered when a memory
// is accessed. Rows are keyed by (memory, layer); repeated priming of the
// same pair refreshes the existing row rather than duplicating it.
type PrimingRecord struct {
	// MemoryID is the primed memory's ID.
	MemoryID string `json:"memory_id"`

	// Layer names the memory layer the boost applies to
	// (e.g. "episodic", "semantic", "procedural").
	Layer string `json:"layer"`

	// Strength scales the tier multiplier, in [0,1].
	Strength float64 `json:"strength"`

	// PrimedAt is when the row was created or last refreshed.
	PrimedAt time.Time `json:"primed_at"`

	// ExpiresAt is when the row becomes purge-eligible.
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the row is purge-eligible at the given time.
func (p *PrimingRecord) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// PrimingKey identifies a priming row.
type PrimingKey struct {
	MemoryID string
	Layer    string
}

// Key returns the row's identity.
func (p *PrimingRecord) Key() PrimingKey {
	return PrimingKey{MemoryID: p.MemoryID, Layer: p.Layer}
}
