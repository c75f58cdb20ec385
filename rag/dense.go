package rag

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/bonehead-labs/fmf/errs"
)

// DenseIndex is the optional embedding-backed retrieval backend. A
// Pipeline consults it alongside its sparse cosine index when the
// Pipeline's DenseText or DenseImages field is set; no chain config
// key selects it. It speaks the same query/topK contract as
// SparseIndex so a Pipeline can fuse the two result lists.
type DenseIndex interface {
	Add(ctx context.Context, item Item) error
	Search(ctx context.Context, query string, topK int) ([]SearchResult, error)
}

// EmbeddingFunc computes a vector embedding for a string; chromem-go's
// own signature, kept so callers can plug any provider's embedder in
// (including the `provider` package's adapters) without this package
// importing them back.
type EmbeddingFunc = chromem.EmbeddingFunc

// ChromemIndex is a DenseIndex backed by an embedded chromem-go
// collection, adapted from the teacher's ChromemDB: one collection
// per pipeline, in-memory or persistent depending on path.
type ChromemIndex struct {
	collection *chromem.Collection
}

// NewChromemIndex opens (or creates) a named collection. path == ""
// uses an in-memory database; otherwise the database persists to path.
func NewChromemIndex(path, collectionName string, embed EmbeddingFunc) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, errs.ProcessingErrorf(err, "opening chromem db at %s", path)
		}
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, errs.ProcessingErrorf(err, "creating chromem collection %s", collectionName)
	}
	return &ChromemIndex{collection: col}, nil
}

func (c *ChromemIndex) Add(ctx context.Context, item Item) error {
	metadata := make(map[string]string, len(item.Metadata))
	for k, v := range item.Metadata {
		metadata[k] = fmt.Sprintf("%v", v)
	}
	return c.collection.AddDocument(ctx, chromem.Document{
		ID:       item.ID,
		Content:  item.Text,
		Metadata: metadata,
	})
}

func (c *ChromemIndex) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	n := topK
	if count := c.collection.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}
	hits, err := c.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, errs.ProcessingErrorf(err, "querying chromem collection")
	}
	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		meta := make(map[string]interface{}, len(h.Metadata))
		for k, v := range h.Metadata {
			meta[k] = v
		}
		results[i] = SearchResult{ID: h.ID, Score: float64(h.Similarity), Text: h.Content, Metadata: meta}
	}
	return results, nil
}

var _ DenseIndex = (*ChromemIndex)(nil)
