package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestManager_RecordsAndServes(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordRetrieval("ok", 15*time.Millisecond)
	m.RecordDegradation("vector_unavailable")
	m.RecordRerankFailures(2)
	m.SetWorkingItems(5)
	m.RecordZoneChange("near_capacity")
	m.RecordArchived(3)
	m.RecordBoundaries(7)
	m.RecordConsolidationRun("completed", 2*time.Second)
	m.RecordPatternsMined(4)
	m.RecordSupersession()
	m.RecordFeedback("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"retrievals_total",
		"retrieval_degraded_total",
		"rerank_failures_total",
		"working_memory_items 5",
		"working_memory_zone_changes_total",
		"segment_boundaries_total",
		"consolidation_runs_total",
		"patterns_mined_total",
		"records_superseded_total",
		"feedback_applied_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestManager_DisabledIsInert(t *testing.T) {
	m := NoOpManager()
	if m.Enabled() {
		t.Fatal("NoOpManager must be disabled")
	}

	// None of these may panic on a disabled manager.
	m.RecordRetrieval("ok", time.Millisecond)
	m.RecordDegradation("x")
	m.SetWorkingItems(1)
	m.RecordConsolidationRun("failed", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("disabled handler should 404, got %d", rec.Code)
	}
}
