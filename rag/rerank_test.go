package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRRFRerankerFusesRankedLists(t *testing.T) {
	dense := []SearchResult{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.5}}
	sparse := []SearchResult{{ID: "b", Score: 3.1}, {ID: "c", Score: 1.0}}

	reranker := NewRRFReranker(0)
	fused := reranker.Rerank(dense, sparse, 0.5, 0.5)

	require := map[string]int{}
	for i, r := range fused {
		require[r.ID] = i
	}
	// "b" appears in both lists so it should outrank items in only one.
	assert.Less(t, require["b"], require["a"])
	assert.Less(t, require["b"], require["c"])
}

func TestRRFRerankerDefaultsKWhenNonPositive(t *testing.T) {
	r := NewRRFReranker(-1)
	assert.Equal(t, 60.0, r.k)
}
