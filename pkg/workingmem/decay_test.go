package workingmem

import (
	"math"
	"testing"
	"time"
)

func TestActivation_BoundaryConditions(t *testing.T) {
	d := NewDecayCalculator(DefaultDecayConfig())

	tests := []struct {
		name       string
		importance float64
		age        time.Duration
		want       float64
	}{
		{"zero age equals importance", 0.8, 0, 0.8},
		{"zero importance", 0, time.Hour, 0},
		{"negative importance", -0.5, time.Hour, 0},
		{"importance clamped above one", 1.5, 0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Activation(tt.importance, ContentVerbal, tt.age)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Activation(%f, verbal, %v) = %f, want %f", tt.importance, tt.age, got, tt.want)
			}
		})
	}
}

func TestActivation_StrictlyDecreasingInAge(t *testing.T) {
	d := NewDecayCalculator(DefaultDecayConfig())

	prev := math.Inf(1)
	for age := time.Duration(0); age <= 4*time.Hour; age += 10 * time.Minute {
		got := d.Activation(0.9, ContentAction, age)
		if got >= prev {
			t.Fatalf("activation not strictly decreasing: %f at age %v, previous %f", got, age, prev)
		}
		prev = got
	}
}

func TestActivation_StrictlyIncreasingInImportance(t *testing.T) {
	d := NewDecayCalculator(DefaultDecayConfig())

	prev := -1.0
	for imp := 0.05; imp <= 1.0; imp += 0.05 {
		got := d.Activation(imp, ContentDecision, 30*time.Minute)
		if got <= prev {
			t.Fatalf("activation not strictly increasing: %f at importance %f, previous %f", got, imp, prev)
		}
		prev = got
	}
}

func TestActivation_ContentTypeHalfLives(t *testing.T) {
	d := NewDecayCalculator(DefaultDecayConfig())

	// Decision content has a longer half-life than verbal, so at equal
	// age and importance it retains more activation.
	verbal := d.Activation(0.5, ContentVerbal, time.Hour)
	decision := d.Activation(0.5, ContentDecision, time.Hour)
	if decision <= verbal {
		t.Errorf("decision activation %f should exceed verbal %f", decision, verbal)
	}

	// Unknown content types fall back to the default half-life.
	unknown := d.Activation(0.5, ContentType("olfactory"), time.Hour)
	if unknown <= 0 {
		t.Errorf("unknown content type activation = %f, want > 0", unknown)
	}
}

func TestRemainingLifespan(t *testing.T) {
	d := NewDecayCalculator(DefaultDecayConfig())

	tests := []struct {
		name       string
		importance float64
		threshold  float64
		wantZero   bool
	}{
		{"threshold above importance", 0.3, 0.5, true},
		{"threshold equals importance", 0.5, 0.5, true},
		{"non-positive importance", 0, 0.1, true},
		{"normal case", 0.8, 0.2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.RemainingLifespan(tt.importance, ContentVerbal, tt.threshold)
			if tt.wantZero && got != 0 {
				t.Errorf("RemainingLifespan = %v, want 0", got)
			}
			if !tt.wantZero && got <= 0 {
				t.Errorf("RemainingLifespan = %v, want > 0", got)
			}
		})
	}
}

func TestRemainingLifespan_InverseOfActivation(t *testing.T) {
	d := NewDecayCalculator(DefaultDecayConfig())

	importance, threshold := 0.9, 0.3
	lifespan := d.RemainingLifespan(importance, ContentSpatial, threshold)

	// Activation at exactly the remaining lifespan lands on the threshold.
	got := d.Activation(importance, ContentSpatial, lifespan)
	if math.Abs(got-threshold) > 1e-6 {
		t.Errorf("Activation at lifespan = %f, want %f", got, threshold)
	}
}
