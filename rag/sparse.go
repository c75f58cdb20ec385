// Package rag builds lazy, in-memory retrieval pipelines over a
// connector selection: a sparse cosine-similarity index over
// lower-cased word-token frequency vectors (adapted from the
// teacher's BM25Index), with an optional dense vector-store backend
// for larger corpora. Every retrieval is recorded to an in-memory
// history and flushed to a per-pipeline JSONL trace at run end.
package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// Item is one retrievable unit: text content, an optional image blob,
// and the token-frequency vector both are scored against.
type Item struct {
	ID        string
	Text      string
	MediaType string // non-empty for image items
	Data      []byte
	Metadata  map[string]interface{}
}

// SearchResult is one scored retrieval hit.
type SearchResult struct {
	ID       string
	Score    float64
	Text     string
	Data     []byte
	MediaType string
	Metadata map[string]interface{}
}

// SparseIndex is a thread-safe, cosine-scored sparse retrieval index
// over lower-cased word-token frequency vectors, structurally adapted
// from the teacher's BM25Index: same document/metadata/term-frequency
// bookkeeping, scoring replaced with cosine similarity per the
// pipeline's simpler frequency-vector design (no IDF weighting).
type SparseIndex struct {
	mu           sync.RWMutex
	items        map[string]Item
	termFreq     map[string]map[string]int
	preprocessor func(string) []string
}

// NewSparseIndex builds an empty index with the default
// lowercase-whitespace tokenizer.
func NewSparseIndex() *SparseIndex {
	return &SparseIndex{
		items:        make(map[string]Item),
		termFreq:     make(map[string]map[string]int),
		preprocessor: defaultTokenizer,
	}
}

func defaultTokenizer(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// SetPreprocessor overrides the default tokenizer.
func (idx *SparseIndex) SetPreprocessor(fn func(string) []string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.preprocessor = fn
}

// Add indexes an item. The tokenised text comes from item.Text for
// text items, or from Metadata["source_text"] (surrounding text or
// filename) for image items per the spec's image-vector derivation.
func (idx *SparseIndex) Add(ctx context.Context, item Item) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.items[item.ID] = item
	basis := item.Text
	if basis == "" {
		if src, ok := item.Metadata["source_text"].(string); ok {
			basis = src
		}
	}
	freq := make(map[string]int)
	for _, term := range idx.preprocessor(basis) {
		freq[term]++
	}
	idx.termFreq[item.ID] = freq
	return nil
}

// Search scores query against every indexed item by cosine similarity
// over term-frequency vectors, drops zero-similarity items, and
// returns at most topK results in descending score order.
func (idx *SparseIndex) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queryFreq := make(map[string]int)
	for _, term := range idx.preprocessor(query) {
		queryFreq[term]++
	}
	queryNorm := vectorNorm(queryFreq)

	var results []SearchResult
	for id, freq := range idx.termFreq {
		score := cosineSimilarity(queryFreq, queryNorm, freq)
		if score <= 0 {
			continue
		}
		item := idx.items[id]
		results = append(results, SearchResult{
			ID: id, Score: score, Text: item.Text, Data: item.Data,
			MediaType: item.MediaType, Metadata: item.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func vectorNorm(v map[string]int) float64 {
	var sumSquares float64
	for _, c := range v {
		sumSquares += float64(c) * float64(c)
	}
	return math.Sqrt(sumSquares)
}

func cosineSimilarity(a map[string]int, aNorm float64, b map[string]int) float64 {
	if aNorm == 0 {
		return 0
	}
	bNorm := vectorNorm(b)
	if bNorm == 0 {
		return 0
	}
	var dot float64
	// iterate the smaller map
	query, other := a, b
	if len(b) < len(a) {
		query, other = b, a
	}
	for term, count := range query {
		if oc, ok := other[term]; ok {
			dot += float64(count) * float64(oc)
		}
	}
	return dot / (aNorm * bNorm)
}
