package consolidation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemos/mnemos/pkg/memory"
)

func seqEvidence(antecedent, consequent string, n int) []Evidence {
	out := make([]Evidence, n)
	for i := range out {
		out[i] = Evidence{Kind: KindSequence, Antecedent: antecedent, Consequent: consequent}
	}
	return out
}

func TestExtractor_MinSampleSize(t *testing.T) {
	e := NewExtractor(ExtractorConfig{MinSampleSize: 5, ConfidenceThreshold: 0.5})
	now := time.Now()

	patterns := e.Extract(now, seqEvidence("build", "test", 4))
	assert.Empty(t, patterns, "cluster below minimum sample size must be dropped")

	patterns = e.Extract(now, seqEvidence("build", "test", 5))
	require.Len(t, patterns, 1)
	assert.Equal(t, 5, patterns[0].SampleSize)
}

func TestExtractor_ConfidenceThreshold(t *testing.T) {
	e := NewExtractor(ExtractorConfig{MinSampleSize: 2, ConfidenceThreshold: 0.6})
	now := time.Now()

	// build is followed by test 3/6 times: confidence 0.5, below threshold.
	evidence := append(seqEvidence("build", "test", 3), seqEvidence("build", "deploy", 2)...)
	evidence = append(evidence, seqEvidence("build", "lint", 1)...)
	patterns := e.Extract(now, evidence)
	assert.Empty(t, patterns)

	// build followed by test 5/6 times: confidence above threshold.
	evidence = append(seqEvidence("build", "test", 5), seqEvidence("build", "deploy", 1)...)
	patterns = e.Extract(now, evidence)
	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, memory.PatternSequence, p.Type)
	assert.Equal(t, "build", p.Condition)
	assert.Equal(t, "test", p.Prediction)
	assert.InDelta(t, 5.0/6.0, p.ConfidenceScore, 1e-9)
	assert.InDelta(t, 1.0, p.Support, 1e-9)
	assert.Equal(t, memory.PatternActive, p.Status)
}

func TestExtractor_SuccessRatePattern(t *testing.T) {
	e := NewExtractor(ExtractorConfig{MinSampleSize: 4, ConfidenceThreshold: 0.6})
	now := time.Now()

	evidence := []Evidence{
		{Kind: KindFeedback, Antecedent: "deploy", Outcome: "success"},
		{Kind: KindFeedback, Antecedent: "deploy", Outcome: "success"},
		{Kind: KindFeedback, Antecedent: "deploy", Outcome: "success"},
		{Kind: KindFeedback, Antecedent: "deploy", Outcome: "failure"},
	}
	patterns := e.Extract(now, evidence)
	require.Len(t, patterns, 1)
	p := patterns[0]
	assert.Equal(t, memory.PatternSuccessRate, p.Type)
	assert.InDelta(t, 0.75, p.ConfidenceScore, 1e-9)
	assert.InDelta(t, 0.75, p.SuccessRate, 1e-9)
}

func TestExtractor_EmptyAndKeylessEvidence(t *testing.T) {
	e := NewExtractor(DefaultExtractorConfig())
	now := time.Now()

	assert.Empty(t, e.Extract(now, nil))
	assert.Empty(t, e.Extract(now, []Evidence{{Kind: KindSequence, Consequent: "x"}}))
}

func TestExtractor_DeterministicOrder(t *testing.T) {
	e := NewExtractor(ExtractorConfig{MinSampleSize: 2, ConfidenceThreshold: 0.5})
	now := time.Now()

	evidence := append(seqEvidence("zeta", "omega", 3), seqEvidence("alpha", "beta", 3)...)
	first := e.Extract(now, evidence)
	require.Len(t, first, 2)
	assert.Equal(t, "alpha", first[0].Condition)
	for i := 0; i < 10; i++ {
		again := e.Extract(now, evidence)
		require.Len(t, again, 2)
		assert.Equal(t, first[0].Condition, again[0].Condition)
		assert.Equal(t, first[1].Condition, again[1].Condition)
	}
}
