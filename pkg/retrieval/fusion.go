package retrieval

import "sort"

// Ranked-list sources.
const (
	SourceLexical = "lexical"
	SourceVector  = "vector"
)

// RankedList is one ordered candidate list entering fusion. Scores are
// optional; fusion uses ranks only.
type RankedList struct {
	// Source names the producing retriever.
	Source string

	// IDs are candidate IDs in rank order (best first).
	IDs []string

	// Scores are the per-ID native scores, parallel to IDs when present.
	Scores []float64

	// Weight scales this list's contribution. Zero means 1.0.
	Weight float64
}

// Empty reports whether the list carries no candidates.
func (l RankedList) Empty() bool { return len(l.IDs) == 0 }

// FusedCandidate is one fusion output entry.
type FusedCandidate struct {
	ID    string
	Score float64

	// Lists counts how many input lists contained the ID.
	Lists int
}

// Fuser combines ranked lists with weighted reciprocal-rank fusion:
// score(id) = sum over lists of weight/(k + rank). An id appearing in more
// lists, or higher in any list, scores higher. A single input list is a
// pure re-scoring that preserves its order.
type Fuser struct {
	k float64
}

// NewFuser creates a fuser with the given RRF constant (default 60).
func NewFuser(k float64) *Fuser {
	if k <= 0 {
		k = 60.0
	}
	return &Fuser{k: k}
}

// Fuse merges any number of ranked lists. Empty lists contribute nothing.
func (f *Fuser) Fuse(lists ...RankedList) []FusedCandidate {
	scores := make(map[string]float64)
	appearances := make(map[string]int)
	order := make([]string, 0)

	for _, list := range lists {
		weight := list.Weight
		if weight <= 0 {
			weight = 1.0
		}
		for rank, id := range list.IDs {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += weight / (f.k + float64(rank+1))
			appearances[id]++
		}
	}
	if len(scores) == 0 {
		return nil
	}

	out := make([]FusedCandidate, 0, len(scores))
	for _, id := range order {
		out = append(out, FusedCandidate{
			ID:    id,
			Score: scores[id],
			Lists: appearances[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
