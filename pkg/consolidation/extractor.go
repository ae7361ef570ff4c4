// Package consolidation converts transient episodic evidence into durable,
// confidence-scored patterns and owns the memory-record lifecycle. It is
// the only package that writes record or pattern state rows.
package consolidation

import (
	"fmt"
	"sort"
	"time"

	"github.com/mnemos/mnemos/pkg/memory"
)

// EvidenceKind classifies one piece of consolidation evidence.
type EvidenceKind int

const (
	// KindSequence is a step observed in an ordered episode.
	KindSequence EvidenceKind = iota
	// KindTransition is an antecedent/consequent pair across episodes.
	KindTransition
	// KindFeedback is an execution outcome tied to an antecedent.
	KindFeedback
)

// Evidence is one consolidation-eligible observation. Antecedent is the
// clustering key; Consequent is the observed follow-up (empty for pure
// outcome feedback); Outcome is "success", "failure", or empty.
type Evidence struct {
	Kind       EvidenceKind
	Antecedent string
	Consequent string
	Outcome    string
	Timestamp  time.Time
}

// ExtractorConfig tunes pattern mining.
type ExtractorConfig struct {
	// MinSampleSize is the minimum cluster size before a pattern may be
	// mined (default 5).
	MinSampleSize int

	// ConfidenceThreshold discards patterns whose conditional probability
	// falls below it (default 0.6).
	ConfidenceThreshold float64
}

// DefaultExtractorConfig returns the extraction defaults.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MinSampleSize:       5,
		ConfidenceThreshold: 0.6,
	}
}

// Extractor mines statistically supported patterns from clustered
// evidence. Per cluster it computes support (fraction of all evidence in
// the cluster), confidence (conditional probability of the dominant
// consequent given the antecedent), and a success rate from outcomes.
type Extractor struct {
	cfg ExtractorConfig
}

// NewExtractor creates an extractor, filling zero config fields with
// defaults.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.MinSampleSize <= 0 {
		cfg.MinSampleSize = def.MinSampleSize
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}
	return &Extractor{cfg: cfg}
}

type cluster struct {
	antecedent  string
	kind        EvidenceKind
	consequents map[string]int
	successes   int
	outcomes    int
	size        int
}

// Extract mines patterns from the evidence set. Clusters below the
// minimum sample size and patterns below the confidence threshold are
// dropped before surfacing. Output order is deterministic.
func (e *Extractor) Extract(now time.Time, evidence []Evidence) []*memory.Pattern {
	if len(evidence) == 0 {
		return nil
	}

	clusters := make(map[string]*cluster)
	keys := make([]string, 0)
	for _, ev := range evidence {
		if ev.Antecedent == "" {
			continue
		}
		c, ok := clusters[ev.Antecedent]
		if !ok {
			c = &cluster{
				antecedent:  ev.Antecedent,
				kind:        ev.Kind,
				consequents: make(map[string]int),
			}
			clusters[ev.Antecedent] = c
			keys = append(keys, ev.Antecedent)
		}
		c.size++
		if ev.Consequent != "" {
			c.consequents[ev.Consequent]++
		}
		switch ev.Outcome {
		case "success":
			c.successes++
			c.outcomes++
		case "failure":
			c.outcomes++
		}
	}
	sort.Strings(keys)

	total := len(evidence)
	var patterns []*memory.Pattern
	for _, key := range keys {
		c := clusters[key]
		if c.size < e.cfg.MinSampleSize {
			continue
		}
		if p := e.mine(now, c, total); p != nil {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func (e *Extractor) mine(now time.Time, c *cluster, total int) *memory.Pattern {
	consequent, count := dominantConsequent(c.consequents)

	var confidence float64
	switch {
	case consequent != "":
		confidence = float64(count) / float64(c.size)
	case c.outcomes > 0:
		// Pure outcome evidence: confidence is the observed success rate.
		confidence = float64(c.successes) / float64(c.outcomes)
	default:
		return nil
	}
	if confidence < e.cfg.ConfidenceThreshold {
		return nil
	}

	support := float64(c.size) / float64(total)
	successRate := 0.0
	if c.outcomes > 0 {
		successRate = float64(c.successes) / float64(c.outcomes)
	}

	typ, name := labelPattern(c.kind, c.antecedent, consequent)
	return memory.NewPattern(now, name, typ, c.antecedent, consequent, c.size, support, confidence, successRate)
}

func dominantConsequent(counts map[string]int) (string, int) {
	best, bestCount := "", 0
	for consequent, count := range counts {
		if count > bestCount || (count == bestCount && consequent < best) {
			best, bestCount = consequent, count
		}
	}
	return best, bestCount
}

func labelPattern(kind EvidenceKind, antecedent, consequent string) (memory.PatternType, string) {
	switch kind {
	case KindTransition:
		return memory.PatternTransition, fmt.Sprintf("%s leads to %s", antecedent, consequent)
	case KindFeedback:
		return memory.PatternSuccessRate, fmt.Sprintf("outcome of %s", antecedent)
	default:
		return memory.PatternSequence, fmt.Sprintf("%s then %s", antecedent, consequent)
	}
}
