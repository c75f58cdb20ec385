package rag

import "sort"

// RRFReranker fuses independently-ranked sparse and dense result lists
// via Reciprocal Rank Fusion, adapted from the teacher's RRFReranker
// (rank-based, no score normalisation needed) to FMF's string-keyed
// SearchResult.
type RRFReranker struct {
	k float64
}

// NewRRFReranker builds a reranker with smoothing constant k; k <= 0
// defaults to 60, the standard value from the RRF paper.
func NewRRFReranker(k float64) *RRFReranker {
	if k <= 0 {
		k = 60
	}
	return &RRFReranker{k: k}
}

// Rerank combines dense and sparse hit lists into one ranking, summing
// weighted reciprocal-rank scores for results present in both lists.
func (r *RRFReranker) Rerank(denseResults, sparseResults []SearchResult, denseWeight, sparseWeight float64) []SearchResult {
	total := denseWeight + sparseWeight
	if total > 0 {
		denseWeight /= total
		sparseWeight /= total
	} else {
		denseWeight, sparseWeight = 0.5, 0.5
	}

	scores := make(map[string]float64)
	items := make(map[string]SearchResult)

	for rank, res := range denseResults {
		scores[res.ID] = (1.0 / (float64(rank+1) + r.k)) * denseWeight
		items[res.ID] = res
	}
	for rank, res := range sparseResults {
		rrf := (1.0 / (float64(rank+1) + r.k)) * sparseWeight
		if _, ok := scores[res.ID]; ok {
			scores[res.ID] += rrf
		} else {
			scores[res.ID] = rrf
			items[res.ID] = res
		}
	}

	out := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		item := items[id]
		item.Score = score
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
