package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initWorkingMemoryMetrics() {
	m.workingItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "working_memory_items",
			Help: "Current number of items in the working set",
		},
	)

	m.zoneChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "working_memory_zone_changes_total",
			Help: "Working-memory zone transitions by target zone",
		},
		[]string{"zone"},
	)

	m.archivedItems = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "working_memory_archived_total",
			Help: "Items archived out of the working set",
		},
	)

	m.boundariesFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "segment_boundaries_total",
			Help: "Event boundaries detected by the segmenter",
		},
	)

	m.registry.MustRegister(m.workingItems, m.zoneChanges, m.archivedItems, m.boundariesFound)
}

// SetWorkingItems sets the working-set size gauge.
func (m *Manager) SetWorkingItems(n int) {
	if !m.enabled {
		return
	}
	m.workingItems.Set(float64(n))
}

// RecordZoneChange records a zone transition.
func (m *Manager) RecordZoneChange(zone string) {
	if !m.enabled {
		return
	}
	m.zoneChanges.WithLabelValues(zone).Inc()
}

// RecordArchived adds n archived items.
func (m *Manager) RecordArchived(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.archivedItems.Add(float64(n))
}

// RecordBoundaries adds n detected boundaries.
func (m *Manager) RecordBoundaries(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.boundariesFound.Add(float64(n))
}
