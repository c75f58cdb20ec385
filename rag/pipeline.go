package rag

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RagResult is one retrieval's outcome: the query plus separately
// ranked text and image hits, matching spec §4.6's retrieve() shape.
type RagResult struct {
	Query      string         `json:"query"`
	TextItems  []SearchResult `json:"text_items"`
	ImageItems []SearchResult `json:"image_items"`
	At         time.Time      `json:"at"`
}

// Pipeline is one named, lazily-built retrieval pipeline: a text index
// and an image index sharing a retrieval history that is persisted to
// a per-pipeline JSONL trace at run end. A pipeline defaults to the
// sparse cosine backend; setting DenseText/DenseImages opts a pipeline
// into the dense backend, fused with the sparse results via RRF.
type Pipeline struct {
	Name string

	textIndex  *SparseIndex
	imageIndex *SparseIndex

	DenseText   DenseIndex
	DenseImages DenseIndex
	reranker    *RRFReranker

	mu      sync.Mutex
	history []RagResult
}

// NewPipeline builds an empty pipeline ready for items to be added.
func NewPipeline(name string) *Pipeline {
	return &Pipeline{
		Name:       name,
		textIndex:  NewSparseIndex(),
		imageIndex: NewSparseIndex(),
		reranker:   NewRRFReranker(0),
	}
}

// AddText indexes a text item (a chunk, row, or document excerpt) into
// the sparse index and, when configured, the dense backend.
func (p *Pipeline) AddText(ctx context.Context, item Item) error {
	if err := p.textIndex.Add(ctx, item); err != nil {
		return err
	}
	if p.DenseText != nil {
		return p.DenseText.Add(ctx, item)
	}
	return nil
}

// AddImage indexes an image item, whose token-frequency vector is
// derived from surrounding text or filename via Metadata["source_text"].
func (p *Pipeline) AddImage(ctx context.Context, item Item) error {
	if err := p.imageIndex.Add(ctx, item); err != nil {
		return err
	}
	if p.DenseImages != nil {
		return p.DenseImages.Add(ctx, item)
	}
	return nil
}

// Retrieve scores query against both indexes (fusing sparse and dense
// hits via Reciprocal Rank Fusion when a dense backend is configured),
// records the result in the pipeline's history, and returns it.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topKText, topKImages int) (RagResult, error) {
	textHits, err := p.search(ctx, p.textIndex, p.DenseText, query, topKText)
	if err != nil {
		return RagResult{}, err
	}
	imageHits, err := p.search(ctx, p.imageIndex, p.DenseImages, query, topKImages)
	if err != nil {
		return RagResult{}, err
	}
	result := RagResult{Query: query, TextItems: textHits, ImageItems: imageHits, At: time.Now().UTC()}

	p.mu.Lock()
	p.history = append(p.history, result)
	p.mu.Unlock()

	return result, nil
}

func (p *Pipeline) search(ctx context.Context, sparse *SparseIndex, dense DenseIndex, query string, topK int) ([]SearchResult, error) {
	sparseHits, err := sparse.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if dense == nil {
		return sparseHits, nil
	}
	denseHits, err := dense.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	fused := p.reranker.Rerank(denseHits, sparseHits, 0.5, 0.5)
	if topK >= 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// FlushTrace writes the pipeline's full retrieval history as
// newline-delimited JSON to <runDir>/rag/<name>.jsonl.
func (p *Pipeline) FlushTrace(runDir string) error {
	p.mu.Lock()
	history := append([]RagResult(nil), p.history...)
	p.mu.Unlock()

	dir := filepath.Join(runDir, "rag")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, p.Name+".jsonl"))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range history {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
