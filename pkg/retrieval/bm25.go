// Package retrieval implements hybrid memory retrieval: BM25 lexical
// scoring, HNSW vector search, reciprocal-rank fusion, temporal priming
// boosts, and optional external reranking.
package retrieval

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25Index is an inverted index scored with the BM25 ranking function.
type BM25Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	// term -> set of document IDs
	invertedIndex map[string]map[string]struct{}

	// document ID -> term frequencies
	termFreqs map[string]map[string]int

	// document lengths in tokens
	docLengths map[string]int

	totalDocs int
	totalLen  int

	stopWords map[string]struct{}
}

// NewBM25Index creates an index with the given BM25 tuning parameters.
func NewBM25Index(k1, b float64) *BM25Index {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b <= 0 || b > 1 {
		b = 0.75
	}
	return &BM25Index{
		k1:            k1,
		b:             b,
		invertedIndex: make(map[string]map[string]struct{}),
		termFreqs:     make(map[string]map[string]int),
		docLengths:    make(map[string]int),
		stopWords:     defaultStopWords(),
	}
}

// Index adds or replaces a document.
func (idx *BM25Index) Index(docID, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.termFreqs[docID]; exists {
		idx.removeLocked(docID)
	}

	tokens := idx.tokenize(content)
	freqs := make(map[string]int)
	for _, token := range tokens {
		freqs[token]++
	}

	idx.termFreqs[docID] = freqs
	idx.docLengths[docID] = len(tokens)
	idx.totalDocs++
	idx.totalLen += len(tokens)

	for term := range freqs {
		if idx.invertedIndex[term] == nil {
			idx.invertedIndex[term] = make(map[string]struct{})
		}
		idx.invertedIndex[term][docID] = struct{}{}
	}
}

// Remove drops a document from the index. Removing an unknown ID is a no-op.
func (idx *BM25Index) Remove(docID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(docID)
}

func (idx *BM25Index) removeLocked(docID string) {
	freqs, exists := idx.termFreqs[docID]
	if !exists {
		return
	}
	for term := range freqs {
		if docs, ok := idx.invertedIndex[term]; ok {
			delete(docs, docID)
			if len(docs) == 0 {
				delete(idx.invertedIndex, term)
			}
		}
	}
	idx.totalLen -= idx.docLengths[docID]
	idx.totalDocs--
	delete(idx.termFreqs, docID)
	delete(idx.docLengths, docID)
}

// Search returns the top-K BM25 matches as a ranked list. An empty corpus
// or a query with no matching terms yields an empty list, not an error.
func (idx *BM25Index) Search(query string, topK int) RankedList {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := RankedList{Source: SourceLexical}
	if idx.totalDocs == 0 {
		return out
	}
	queryTokens := idx.tokenize(query)
	if len(queryTokens) == 0 {
		return out
	}
	terms := idx.expandLocked(queryTokens)

	avgDL := float64(idx.totalLen) / float64(idx.totalDocs)

	candidates := make(map[string]struct{})
	for _, term := range terms {
		for id := range idx.invertedIndex[term] {
			candidates[id] = struct{}{}
		}
	}

	type scored struct {
		id    string
		score float64
	}
	results := make([]scored, 0, len(candidates))
	for id := range candidates {
		if score := idx.scoreLocked(id, terms, avgDL); score > 0 {
			results = append(results, scored{id: id, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].id < results[j].id
		}
		return results[i].score > results[j].score
	})

	if topK <= 0 || topK > len(results) {
		topK = len(results)
	}
	out.IDs = make([]string, topK)
	out.Scores = make([]float64, topK)
	for i := 0; i < topK; i++ {
		out.IDs[i] = results[i].id
		out.Scores[i] = results[i].score
	}
	return out
}

// Len returns the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalDocs
}

// minPrefixLen is the shortest shared prefix that relates a query token
// to an index term. Shorter prefixes pull in too many unrelated terms.
const minPrefixLen = 4

// expandLocked widens query tokens to the index terms they reach: exact
// matches plus prefix relatives in either direction, so "authentication"
// also reaches documents that only say "auth". Caller holds the read
// lock.
func (idx *BM25Index) expandLocked(queryTokens []string) []string {
	seen := make(map[string]struct{}, len(queryTokens))
	terms := make([]string, 0, len(queryTokens))
	add := func(term string) {
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, token := range queryTokens {
		add(token)
		if len(token) < minPrefixLen {
			continue
		}
		for term := range idx.invertedIndex {
			if term == token || len(term) < minPrefixLen {
				continue
			}
			if strings.HasPrefix(token, term) || strings.HasPrefix(term, token) {
				add(term)
			}
		}
	}
	return terms
}

// scoreLocked computes the BM25 score of one document. Caller holds the
// read lock.
func (idx *BM25Index) scoreLocked(docID string, terms []string, avgDL float64) float64 {
	docLen := float64(idx.docLengths[docID])
	freqs := idx.termFreqs[docID]
	score := 0.0

	for _, term := range terms {
		tf := float64(freqs[term])
		if tf == 0 {
			continue
		}
		// IDF: log((N - n + 0.5) / (n + 0.5) + 1)
		n := float64(len(idx.invertedIndex[term]))
		idf := math.Log((float64(idx.totalDocs)-n+0.5)/(n+0.5) + 1.0)

		numerator := tf * (idx.k1 + 1)
		denominator := tf + idx.k1*(1-idx.b+idx.b*docLen/avgDL)
		score += idf * numerator / denominator
	}
	return score
}

// tokenize lowercases, strips punctuation, and drops stop words. CJK
// characters become individual tokens.
func (idx *BM25Index) tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := make([]string, 0, len(text)/4)
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := current.String()
		if _, isStop := idx.stopWords[token]; !isStop {
			tokens = append(tokens, token)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if unicode.Is(unicode.Han, r) {
				flush()
				tokens = append(tokens, string(r))
				continue
			}
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func defaultStopWords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "shall", "can", "to", "of", "in", "for",
		"on", "with", "at", "by", "from", "as", "into", "through", "during",
		"before", "after", "between", "out", "off", "over", "under", "then",
		"once", "and", "but", "or", "nor", "not", "so", "yet", "both",
		"either", "neither", "each", "every", "all", "any", "few", "more",
		"most", "other", "some", "such", "no", "only", "own", "same", "than",
		"too", "very", "just", "because", "if", "when", "where", "how",
		"what", "which", "who", "whom", "this", "that", "these", "those",
		"i", "me", "my", "we", "our", "you", "your", "he", "him", "his",
		"she", "her", "it", "its", "they", "them", "their",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
