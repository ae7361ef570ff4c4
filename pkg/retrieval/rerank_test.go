package retrieval

import (
	"context"
	"errors"
	"testing"
)

type stubScorer struct {
	scores map[string]float64
	err    error
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, query, document string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[document], nil
}

func rerankFixture() ([]Candidate, func(id string) (string, bool)) {
	candidates := []Candidate{
		{ID: "a", FusedScore: 0.9, FinalScore: 0.9},
		{ID: "b", FusedScore: 0.8, FinalScore: 0.8},
		{ID: "c", FusedScore: 0.7, FinalScore: 0.7},
	}
	docs := map[string]string{"a": "doc-a", "b": "doc-b", "c": "doc-c"}
	contentOf := func(id string) (string, bool) {
		d, ok := docs[id]
		return d, ok
	}
	return candidates, contentOf
}

func TestReranker_PromotesRelevantDoc(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"doc-a": 0.1, "doc-b": 0.2, "doc-c": 1.0}}
	r := NewReranker(RerankerConfig{VectorWeight: 0.5, RelevanceWeight: 0.5, TopK: 10}, scorer)

	candidates, contentOf := rerankFixture()
	reranked, impact := r.Rerank(context.Background(), "q", candidates, contentOf)

	if reranked[0].ID != "c" {
		t.Errorf("expected c promoted to rank 0, got %s", reranked[0].ID)
	}
	if impact.Scored != 3 {
		t.Errorf("expected 3 scored, got %d", impact.Scored)
	}
	if impact.Failed != 0 {
		t.Errorf("expected no failures, got %d", impact.Failed)
	}
	if reranked[0].RelevanceScore != 1.0 {
		t.Errorf("expected relevance score recorded, got %f", reranked[0].RelevanceScore)
	}
}

func TestReranker_FallsBackOnScorerFailure(t *testing.T) {
	scorer := &stubScorer{err: errors.New("scorer down")}
	r := NewReranker(DefaultRerankerConfig(), scorer)

	candidates, contentOf := rerankFixture()
	reranked, impact := r.Rerank(context.Background(), "q", candidates, contentOf)

	if impact.Failed != 3 {
		t.Errorf("expected 3 failures, got %d", impact.Failed)
	}
	for i, want := range []string{"a", "b", "c"} {
		if reranked[i].ID != want {
			t.Errorf("rank %d: expected fused order preserved, got %s", i, reranked[i].ID)
		}
	}
	if reranked[0].FinalScore != 0.9 {
		t.Errorf("expected fused score kept on failure, got %f", reranked[0].FinalScore)
	}
}

func TestReranker_NilScorerPassThrough(t *testing.T) {
	r := NewReranker(DefaultRerankerConfig(), nil)
	if r.Enabled() {
		t.Fatal("reranker without scorer must report disabled")
	}

	candidates, contentOf := rerankFixture()
	reranked, _ := r.Rerank(context.Background(), "q", candidates, contentOf)
	for i := range candidates {
		if reranked[i].ID != candidates[i].ID {
			t.Errorf("expected unchanged order, got %v", reranked)
		}
	}
}

func TestReranker_OnlyScoresTopK(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{}}
	r := NewReranker(RerankerConfig{VectorWeight: 0.6, RelevanceWeight: 0.4, TopK: 2}, scorer)

	candidates, contentOf := rerankFixture()
	_, impact := r.Rerank(context.Background(), "q", candidates, contentOf)
	if scorer.calls != 2 {
		t.Errorf("expected 2 scorer calls for TopK=2, got %d", scorer.calls)
	}
	if impact.Scored != 2 {
		t.Errorf("expected 2 scored, got %d", impact.Scored)
	}
}

func TestReranker_ImpactMetrics(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{"doc-a": 0.0, "doc-b": 0.0, "doc-c": 1.0}}
	r := NewReranker(RerankerConfig{VectorWeight: 0.1, RelevanceWeight: 0.9, TopK: 10}, scorer)

	candidates, contentOf := rerankFixture()
	_, impact := r.Rerank(context.Background(), "q", candidates, contentOf)

	if len(impact.RankChanges) == 0 {
		t.Error("expected rank changes recorded")
	}
	if impact.TopKOverlap <= 0 || impact.TopKOverlap > 1 {
		t.Errorf("expected overlap in (0,1], got %f", impact.TopKOverlap)
	}
}
