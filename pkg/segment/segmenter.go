// Package segment detects event boundaries in token streams using an
// information-theoretic surprise score over an incremental local
// frequency model.
package segment

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/mnemos/mnemos/pkg/memory"
)

// SurpriseEvent annotates one detected boundary. It is derived, read-only,
// and consumed immediately by the caller; it is not persisted.
type SurpriseEvent struct {
	// Index is the token position of the boundary.
	Index int `json:"index"`

	// SurpriseScore is the raw (unnormalized) surprise at the boundary.
	SurpriseScore float64 `json:"surprise_score"`

	// NormalizedSurprise is the surprise rescaled to [0,1] over the sequence.
	NormalizedSurprise float64 `json:"normalized_surprise"`

	// CoherenceScore is the token's similarity to its immediate
	// neighborhood, in [0,1]. Low coherence supports a boundary.
	CoherenceScore float64 `json:"coherence_score"`

	// Confidence is in [0,1], derived from threshold excess and coherence.
	Confidence float64 `json:"confidence"`
}

// Config tunes the segmenter.
type Config struct {
	// EntropyThreshold is the normalized-surprise cutoff for a boundary
	// candidate, in (0,1).
	EntropyThreshold float64

	// MinEventSpacing is the minimum token distance between boundaries.
	// When several candidates fall within one spacing window, only the
	// highest-surprise candidate survives.
	MinEventSpacing int

	// WindowSize is the size of the local frequency window.
	WindowSize int

	// ReferenceWindowSize is the size of the trailing reference window
	// used for KL divergence. Zero disables the KL term.
	ReferenceWindowSize int

	// CoherenceWindow is how many preceding tokens the coherence penalty
	// compares against.
	CoherenceWindow int

	// SurpriseWeight and KLWeight blend the two information terms;
	// CoherenceWeight scales the coherence penalty.
	SurpriseWeight  float64
	KLWeight        float64
	CoherenceWeight float64
}

// DefaultConfig returns the segmenter defaults.
func DefaultConfig() Config {
	return Config{
		EntropyThreshold:    0.6,
		MinEventSpacing:     5,
		WindowSize:          100,
		ReferenceWindowSize: 500,
		CoherenceWindow:     5,
		SurpriseWeight:      0.7,
		KLWeight:            0.3,
		CoherenceWeight:     0.5,
	}
}

// Segmenter scans token sequences for event boundaries. Each call owns its
// own frequency tables; nothing is shared across calls.
type Segmenter struct {
	cfg Config
}

// New creates a Segmenter with the given configuration. Zero-value fields
// fall back to defaults.
func New(cfg Config) *Segmenter {
	def := DefaultConfig()
	if cfg.EntropyThreshold <= 0 || cfg.EntropyThreshold >= 1 {
		cfg.EntropyThreshold = def.EntropyThreshold
	}
	if cfg.MinEventSpacing <= 0 {
		cfg.MinEventSpacing = def.MinEventSpacing
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.CoherenceWindow <= 0 {
		cfg.CoherenceWindow = def.CoherenceWindow
	}
	if cfg.SurpriseWeight <= 0 {
		cfg.SurpriseWeight = def.SurpriseWeight
	}
	if cfg.KLWeight < 0 {
		cfg.KLWeight = def.KLWeight
	}
	if cfg.CoherenceWeight < 0 || cfg.CoherenceWeight > 1 {
		cfg.CoherenceWeight = def.CoherenceWeight
	}
	return &Segmenter{cfg: cfg}
}

// slidingCounts is an incremental frequency table over a fixed-size
// trailing window. Push and evict are O(1), keeping a full sequence scan
// linear instead of re-counting the window at every position.
type slidingCounts struct {
	counts map[string]int
	order  []string
	size   int
	total  int
}

func newSlidingCounts(size int) *slidingCounts {
	return &slidingCounts{
		counts: make(map[string]int, size),
		order:  make([]string, 0, size),
		size:   size,
	}
}

func (w *slidingCounts) push(token string) {
	w.counts[token]++
	w.order = append(w.order, token)
	w.total++
	if len(w.order) > w.size {
		evicted := w.order[0]
		w.order = w.order[1:]
		w.counts[evicted]--
		if w.counts[evicted] == 0 {
			delete(w.counts, evicted)
		}
		w.total--
	}
}

// prob returns the Laplace-smoothed probability of token under the window.
func (w *slidingCounts) prob(token string) float64 {
	vocab := len(w.counts) + 1
	return (float64(w.counts[token]) + 1.0) / (float64(w.total) + float64(vocab))
}

// FindEventBoundaries scans the sequence and returns boundaries where
// normalized surprise exceeds the entropy threshold, subject to the
// minimum spacing constraint. Empty or short input returns nil.
func (s *Segmenter) FindEventBoundaries(tokens []string) []SurpriseEvent {
	minLen := s.cfg.MinEventSpacing + 2
	if minLen < 4 {
		minLen = 4
	}
	if len(tokens) < minLen {
		return nil
	}

	raw := make([]float64, len(tokens))
	coherence := make([]float64, len(tokens))

	local := newSlidingCounts(s.cfg.WindowSize)
	var reference *slidingCounts
	if s.cfg.ReferenceWindowSize > s.cfg.WindowSize && s.cfg.KLWeight > 0 {
		reference = newSlidingCounts(s.cfg.ReferenceWindowSize)
	}

	for i, token := range tokens {
		score := 0.0
		if local.total > 0 {
			// Negative log-probability under the local model.
			score = s.cfg.SurpriseWeight * -math.Log2(local.prob(token))
			if reference != nil && reference.total > local.total {
				score += s.cfg.KLWeight * klDivergence(local, reference)
			}
		}
		coh := s.coherenceAt(tokens, i)
		raw[i] = score * (1.0 - s.cfg.CoherenceWeight*coh)
		coherence[i] = coh

		local.push(token)
		if reference != nil {
			reference.push(token)
		}
	}

	// Normalize against the maximum surprise the local model can express
	// (a token never seen in a full window). A fixed scale keeps uniformly
	// low-surprise sequences below threshold instead of inflating them.
	scale := s.cfg.SurpriseWeight * math.Log2(float64(s.cfg.WindowSize)+1.0)
	normalized := make([]float64, len(raw))
	for i, v := range raw {
		normalized[i] = memory.Clamp01(v / scale)
	}

	// Collect candidates above threshold, then apply non-maximum
	// suppression: accept by descending surprise, rejecting any candidate
	// within MinEventSpacing of an accepted boundary.
	var candidates []int
	for i := 1; i < len(tokens); i++ {
		if normalized[i] > s.cfg.EntropyThreshold {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(a, b int) bool {
		if normalized[candidates[a]] == normalized[candidates[b]] {
			return candidates[a] < candidates[b]
		}
		return normalized[candidates[a]] > normalized[candidates[b]]
	})

	var accepted []int
	for _, idx := range candidates {
		ok := true
		for _, kept := range accepted {
			if abs(idx-kept) < s.cfg.MinEventSpacing {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, idx)
		}
	}
	sort.Ints(accepted)

	events := make([]SurpriseEvent, 0, len(accepted))
	for _, idx := range accepted {
		events = append(events, SurpriseEvent{
			Index:              idx,
			SurpriseScore:      raw[idx],
			NormalizedSurprise: normalized[idx],
			CoherenceScore:     coherence[idx],
			Confidence:         s.confidence(normalized[idx], coherence[idx]),
		})
	}
	return events
}

// SurpriseAt computes the raw surprise of the token at pos given its
// preceding context, without boundary detection.
func (s *Segmenter) SurpriseAt(tokens []string, pos int) float64 {
	if pos <= 0 || pos >= len(tokens) {
		return 0
	}
	start := pos - s.cfg.WindowSize
	if start < 0 {
		start = 0
	}
	window := newSlidingCounts(s.cfg.WindowSize)
	for _, t := range tokens[start:pos] {
		window.push(t)
	}
	coh := s.coherenceAt(tokens, pos)
	return s.cfg.SurpriseWeight * -math.Log2(window.prob(tokens[pos])) * (1.0 - s.cfg.CoherenceWeight*coh)
}

// coherenceAt measures how similar the token at pos is to its immediate
// preceding neighborhood: exact repeats count fully, otherwise the best
// character-bigram overlap among neighbors.
func (s *Segmenter) coherenceAt(tokens []string, pos int) float64 {
	start := pos - s.cfg.CoherenceWindow
	if start < 0 {
		start = 0
	}
	if start == pos {
		return 0
	}
	best := 0.0
	for _, prev := range tokens[start:pos] {
		if prev == tokens[pos] {
			return 1.0
		}
		if sim := bigramJaccard(prev, tokens[pos]); sim > best {
			best = sim
		}
	}
	return best
}

// confidence blends the boundary's threshold excess with its incoherence.
func (s *Segmenter) confidence(normalized, coherence float64) float64 {
	span := 1.0 - s.cfg.EntropyThreshold
	excess := 0.0
	if span > 0 {
		excess = (normalized - s.cfg.EntropyThreshold) / span
	}
	return memory.Clamp01(0.7*excess + 0.3*(1.0-coherence))
}

// klDivergence computes KL(local || reference) over the local window's
// support. Cost is bounded by the local window's distinct tokens.
func klDivergence(local, reference *slidingCounts) float64 {
	kl := 0.0
	for token := range local.counts {
		p := local.prob(token)
		q := reference.prob(token)
		kl += p * math.Log2(p/q)
	}
	if kl < 0 {
		return 0
	}
	return kl
}

func bigramJaccard(a, b string) float64 {
	ba := bigrams(a)
	bb := bigrams(b)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	inter := 0
	for g := range ba {
		if _, ok := bb[g]; ok {
			inter++
		}
	}
	union := len(ba) + len(bb) - inter
	return float64(inter) / float64(union)
}

func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	out := make(map[string]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])] = struct{}{}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Tokenize splits text into lowercase tokens of letters and digits. CJK
// characters become individual tokens.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := make([]string, 0, len(text)/4)
	var current strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if unicode.Is(unicode.Han, r) {
				if current.Len() > 0 {
					tokens = append(tokens, current.String())
					current.Reset()
				}
				tokens = append(tokens, string(r))
				continue
			}
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
