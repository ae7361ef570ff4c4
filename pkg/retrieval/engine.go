package retrieval

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mnemos/mnemos/pkg/memory"
)

// Candidate is an ephemeral scoring row that exists only for the duration
// of one retrieval call.
type Candidate struct {
	ID             string  `json:"id"`
	LexicalScore   float64 `json:"lexical_score,omitempty"`
	VectorScore    float64 `json:"vector_score,omitempty"`
	FusedScore     float64 `json:"fused_score"`
	PrimingBoost   float64 `json:"priming_boost"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
	FinalScore     float64 `json:"final_score"`
}

// Query is one retrieval request.
type Query struct {
	// Text drives lexical search and, via the embedding provider, vector
	// search when no vector is supplied.
	Text string

	// Vector is an optional pre-computed query embedding.
	Vector []float32

	// VectorList is an optional externally supplied ranked (id,
	// similarity) list that replaces the internal vector search.
	VectorList RankedList

	// TopK limits the result size (default 10).
	TopK int

	// Filter, when set, drops candidates for which it returns false.
	Filter func(id string) bool
}

// Degraded flags which strategies were unavailable for a request. The
// engine degrades to the next-best strategy instead of failing.
type Degraded struct {
	LexicalUnavailable bool `json:"lexical_unavailable"`
	VectorUnavailable  bool `json:"vector_unavailable"`
	RerankSkipped      bool `json:"rerank_skipped"`
}

// Any reports whether any degradation occurred.
func (d Degraded) Any() bool {
	return d.LexicalUnavailable || d.VectorUnavailable || d.RerankSkipped
}

// Result is one ranked retrieval response.
type Result struct {
	Candidates []Candidate  `json:"candidates"`
	Impact     RerankImpact `json:"impact"`
	Degraded   Degraded     `json:"degraded"`
}

// engineLogger is the minimal logger interface used by the engine.
type engineLogger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Warn(msg string, args ...any)  {}

// Engine composes lexical search, vector search, rank fusion, temporal
// priming, and optional reranking into a single ranked result. All stages
// compose as pure functions over a fixed snapshot, so scoring is
// deterministic given identical inputs.
type Engine struct {
	bm25     *BM25Index
	vector   *VectorIndex
	fuser    *Fuser
	priming  *PrimingTable
	reranker *Reranker
	embedder EmbeddingProvider
	logger   engineLogger
	tracer   trace.Tracer
}

// NewEngine wires a retrieval engine. embedder and the reranker's scorer
// may be nil; the engine degrades accordingly.
func NewEngine(bm25 *BM25Index, vector *VectorIndex, fuser *Fuser, priming *PrimingTable, reranker *Reranker, embedder EmbeddingProvider, logger engineLogger) *Engine {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Engine{
		bm25:     bm25,
		vector:   vector,
		fuser:    fuser,
		priming:  priming,
		reranker: reranker,
		embedder: embedder,
		logger:   logger,
		tracer:   otel.Tracer("mnemos/retrieval"),
	}
}

// Retrieve runs the full pipeline for one query.
func (e *Engine) Retrieve(ctx context.Context, query Query, contentOf func(id string) (string, bool)) (*Result, error) {
	if query.Text == "" && len(query.Vector) == 0 && query.VectorList.Empty() {
		return nil, memory.ErrInvalidQuery
	}

	ctx, span := e.tracer.Start(ctx, "retrieval.retrieve")
	defer span.End()

	topK := query.TopK
	if topK <= 0 {
		topK = 10
	}
	// Fetch more candidates from each retriever for better fusion.
	fetchK := topK * 3
	if fetchK < 30 {
		fetchK = 30
	}

	result := &Result{}

	lexical := e.lexicalList(query, fetchK, &result.Degraded)
	vector := e.vectorList(ctx, query, fetchK, &result.Degraded)

	if lexical.Empty() && vector.Empty() {
		span.SetAttributes(attribute.Int("candidates", 0))
		return result, nil
	}

	fused := e.fuser.Fuse(lexical, vector)
	candidates := e.buildCandidates(fused, lexical, vector, query.Filter)
	candidates = e.applyPriming(candidates)

	if e.reranker != nil && e.reranker.Enabled() && query.Text != "" {
		candidates, result.Impact = e.reranker.Rerank(ctx, query.Text, candidates, contentOf)
		if result.Impact.Failed > 0 {
			result.Degraded.RerankSkipped = true
		}
	} else if e.reranker != nil && e.reranker.Enabled() {
		result.Degraded.RerankSkipped = true
	}

	if topK < len(candidates) {
		candidates = candidates[:topK]
	}
	result.Candidates = candidates
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Bool("degraded", result.Degraded.Any()),
	)
	return result, nil
}

func (e *Engine) lexicalList(query Query, fetchK int, degraded *Degraded) RankedList {
	if query.Text == "" || e.bm25 == nil {
		if e.bm25 == nil {
			degraded.LexicalUnavailable = true
		}
		return RankedList{Source: SourceLexical}
	}
	return e.bm25.Search(query.Text, fetchK)
}

// vectorList resolves the vector ranked list: an externally supplied list
// wins, then a supplied query vector, then an embedding of the query text.
// Any provider or index failure degrades to lexical-only.
func (e *Engine) vectorList(ctx context.Context, query Query, fetchK int, degraded *Degraded) RankedList {
	if !query.VectorList.Empty() {
		list := query.VectorList
		list.Source = SourceVector
		return list
	}

	vec := query.Vector
	if len(vec) == 0 {
		if e.embedder == nil || query.Text == "" {
			degraded.VectorUnavailable = true
			return RankedList{Source: SourceVector}
		}
		embedded, err := e.embedder.Embed(ctx, query.Text)
		if err != nil {
			e.logger.Warn("embedding failed, degrading to lexical-only", "error", err)
			degraded.VectorUnavailable = true
			return RankedList{Source: SourceVector}
		}
		vec = embedded
	}

	if e.vector == nil {
		degraded.VectorUnavailable = true
		return RankedList{Source: SourceVector}
	}
	list, err := e.vector.Search(vec, fetchK)
	if err != nil {
		e.logger.Warn("vector search failed, degrading to lexical-only", "error", err)
		degraded.VectorUnavailable = true
		return RankedList{Source: SourceVector}
	}
	return list
}

func (e *Engine) buildCandidates(fused []FusedCandidate, lexical, vector RankedList, filter func(id string) bool) []Candidate {
	lexScores := nativeScores(lexical)
	vecScores := nativeScores(vector)

	out := make([]Candidate, 0, len(fused))
	for _, f := range fused {
		if filter != nil && !filter(f.ID) {
			continue
		}
		out = append(out, Candidate{
			ID:           f.ID,
			LexicalScore: lexScores[f.ID],
			VectorScore:  vecScores[f.ID],
			FusedScore:   f.Score,
			PrimingBoost: 1.0,
			FinalScore:   f.Score,
		})
	}
	return out
}

// applyPriming layers the temporal boost multiplicatively on the fused
// score and re-sorts.
func (e *Engine) applyPriming(candidates []Candidate) []Candidate {
	if e.priming == nil {
		return candidates
	}
	for i := range candidates {
		boost := e.priming.Boost(candidates[i].ID)
		candidates[i].PrimingBoost = boost
		candidates[i].FinalScore = candidates[i].FusedScore * boost
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
	return candidates
}

func nativeScores(list RankedList) map[string]float64 {
	out := make(map[string]float64, len(list.IDs))
	for i, id := range list.IDs {
		if i < len(list.Scores) {
			out[id] = list.Scores[i]
		}
	}
	return out
}
