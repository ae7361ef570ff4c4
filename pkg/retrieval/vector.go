package retrieval

import (
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/mnemos/mnemos/pkg/memory"
)

// VectorIndex provides approximate nearest-neighbor search over memory
// embeddings, backed by an HNSW graph with cosine similarity.
type VectorIndex struct {
	mu        sync.Mutex
	graph     *hnsw.Graph[string]
	dimension int
	vectors   map[string][]float32
}

// NewVectorIndex creates an index for vectors of the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{
		graph:     newGraph(),
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.Distance = hnsw.CosineDistance
	return g
}

// Add inserts or replaces a vector in the index.
func (v *VectorIndex) Add(id string, vector []float32) error {
	if len(vector) != v.dimension {
		return fmt.Errorf("%w: expected %d, got %d", memory.ErrDimensionMismatch, v.dimension, len(vector))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.vectors[id]; exists {
		v.removeLocked(id)
	}
	v.graph.Add(hnsw.MakeNode(id, vector))
	v.vectors[id] = vector
	return nil
}

// Delete removes a vector from the index. Unknown IDs are a no-op.
func (v *VectorIndex) Delete(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.vectors[id]; exists {
		v.removeLocked(id)
	}
}

// removeLocked drops id from both the graph and the vectors map.
// Deleting the last node leaves the hnsw graph with an empty entry
// layer that rejects further inserts, so an emptied graph is swapped
// for a fresh one.
func (v *VectorIndex) removeLocked(id string) {
	v.graph.Delete(id)
	delete(v.vectors, id)
	if len(v.vectors) == 0 {
		v.graph = newGraph()
	}
}

// Len returns the number of indexed vectors.
func (v *VectorIndex) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.vectors)
}

// Search returns the top-K nearest vectors as a ranked list with cosine
// similarity scores. An empty index yields an empty list.
func (v *VectorIndex) Search(query []float32, topK int) (RankedList, error) {
	out := RankedList{Source: SourceVector}
	if len(query) != v.dimension {
		return out, fmt.Errorf("%w: expected %d, got %d", memory.ErrDimensionMismatch, v.dimension, len(query))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.vectors) == 0 {
		return out, nil
	}
	if topK <= 0 {
		topK = 10
	}

	neighbors := v.graph.Search(query, topK)
	out.IDs = make([]string, 0, len(neighbors))
	out.Scores = make([]float64, 0, len(neighbors))
	for _, node := range neighbors {
		vec, ok := v.vectors[node.Key]
		if !ok {
			continue
		}
		out.IDs = append(out.IDs, node.Key)
		out.Scores = append(out.Scores, cosineSimilarity(query, vec))
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
