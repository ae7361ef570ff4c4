package retrieval

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// EmbeddingProvider turns text into a vector. Implementations wrap an
// external model; the engine degrades to lexical-only retrieval when the
// provider is absent or failing.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// RelevanceScorer scores a document's relevance to a query. Absence or
// failure disables reranking only.
type RelevanceScorer interface {
	Score(ctx context.Context, query, document string) (float64, error)
}

// limitedEmbedder wraps an EmbeddingProvider with a rate limiter and a
// per-call timeout so a slow provider cannot stall the request path.
type limitedEmbedder struct {
	inner   EmbeddingProvider
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimitedEmbedder bounds an embedding provider. rps <= 0 disables the
// limiter; timeout <= 0 defaults to five seconds.
func NewLimitedEmbedder(inner EmbeddingProvider, rps float64, burst int, timeout time.Duration) EmbeddingProvider {
	if inner == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var limiter *rate.Limiter
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &limitedEmbedder{inner: inner, limiter: limiter, timeout: timeout}
}

func (e *limitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("retrieval: embedding rate limit: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.inner.Embed(ctx, text)
}

// limitedScorer wraps a RelevanceScorer with a per-call timeout.
type limitedScorer struct {
	inner   RelevanceScorer
	timeout time.Duration
}

// NewLimitedScorer bounds a relevance scorer with a per-call timeout.
func NewLimitedScorer(inner RelevanceScorer, timeout time.Duration) RelevanceScorer {
	if inner == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &limitedScorer{inner: inner, timeout: timeout}
}

func (s *limitedScorer) Score(ctx context.Context, query, document string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.Score(ctx, query, document)
}
