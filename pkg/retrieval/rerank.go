package retrieval

import (
	"context"
	"sort"
)

// RerankerConfig tunes result reranking.
type RerankerConfig struct {
	// VectorWeight and RelevanceWeight blend the fused/boosted score with
	// the external relevance score. Weights that do not sum to 1 are
	// normalized.
	VectorWeight    float64
	RelevanceWeight float64

	// TopK limits how many candidates are sent to the external scorer.
	TopK int
}

// DefaultRerankerConfig returns the reranker defaults.
func DefaultRerankerConfig() RerankerConfig {
	return RerankerConfig{
		VectorWeight:    0.6,
		RelevanceWeight: 0.4,
		TopK:            20,
	}
}

// RerankImpact reports how much reranking changed the ordering, for
// offline evaluation.
type RerankImpact struct {
	// Scored is the number of candidates the external scorer handled.
	Scored int `json:"scored"`

	// Failed is the number of scorer calls that errored; those candidates
	// keep their fused score.
	Failed int `json:"failed"`

	// RankChanges maps absolute rank displacement to occurrence count.
	RankChanges map[int]int `json:"rank_changes"`

	// TopKOverlap is the fraction of the pre-rerank top K still in the
	// post-rerank top K.
	TopKOverlap float64 `json:"top_k_overlap"`
}

// Reranker recombines fused scores with an external relevance signal.
// On any scorer failure it falls back to the unmodified fused ordering
// rather than failing the request.
type Reranker struct {
	cfg    RerankerConfig
	scorer RelevanceScorer
}

// NewReranker creates a reranker. The scorer may be nil, in which case
// Rerank is a pass-through.
func NewReranker(cfg RerankerConfig, scorer RelevanceScorer) *Reranker {
	def := DefaultRerankerConfig()
	if cfg.VectorWeight <= 0 && cfg.RelevanceWeight <= 0 {
		cfg.VectorWeight = def.VectorWeight
		cfg.RelevanceWeight = def.RelevanceWeight
	}
	// Normalize weights to sum to 1.
	sum := cfg.VectorWeight + cfg.RelevanceWeight
	if sum > 0 && sum != 1 {
		cfg.VectorWeight /= sum
		cfg.RelevanceWeight /= sum
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	return &Reranker{cfg: cfg, scorer: scorer}
}

// Enabled reports whether an external scorer is configured.
func (r *Reranker) Enabled() bool { return r.scorer != nil }

// Rerank reorders candidates by blending each candidate's current score
// with the external relevance score for (query, content). contentOf
// resolves a candidate ID to its document text; candidates it cannot
// resolve keep their fused score.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []Candidate, contentOf func(id string) (string, bool)) ([]Candidate, RerankImpact) {
	impact := RerankImpact{RankChanges: make(map[int]int)}
	if r.scorer == nil || len(candidates) == 0 {
		return candidates, impact
	}

	limit := r.cfg.TopK
	if limit > len(candidates) {
		limit = len(candidates)
	}

	before := make([]string, len(candidates))
	for i, c := range candidates {
		before[i] = c.ID
	}

	reranked := make([]Candidate, len(candidates))
	copy(reranked, candidates)

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			// Degrade: keep the fused ordering for everything unscored.
			impact.Failed += limit - i
			break
		}
		content, ok := contentOf(reranked[i].ID)
		if !ok {
			continue
		}
		relevance, err := r.scorer.Score(ctx, query, content)
		if err != nil {
			impact.Failed++
			continue
		}
		impact.Scored++
		reranked[i].RelevanceScore = relevance
		reranked[i].FinalScore = r.cfg.VectorWeight*reranked[i].FinalScore + r.cfg.RelevanceWeight*relevance
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].FinalScore > reranked[j].FinalScore
	})

	r.measureImpact(&impact, before, reranked)
	return reranked, impact
}

func (r *Reranker) measureImpact(impact *RerankImpact, before []string, after []Candidate) {
	position := make(map[string]int, len(after))
	for i, c := range after {
		position[c.ID] = i
	}
	for oldRank, id := range before {
		newRank, ok := position[id]
		if !ok {
			continue
		}
		delta := newRank - oldRank
		if delta < 0 {
			delta = -delta
		}
		impact.RankChanges[delta]++
	}

	k := r.cfg.TopK
	if k > len(before) {
		k = len(before)
	}
	if k == 0 {
		impact.TopKOverlap = 1.0
		return
	}
	topAfter := make(map[string]struct{}, k)
	for i := 0; i < k && i < len(after); i++ {
		topAfter[after[i].ID] = struct{}{}
	}
	overlap := 0
	for i := 0; i < k; i++ {
		if _, ok := topAfter[before[i]]; ok {
			overlap++
		}
	}
	impact.TopKOverlap = float64(overlap) / float64(k)
}
