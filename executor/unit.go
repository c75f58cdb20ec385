// Package executor runs one chain step's units over a bounded worker
// pool: variable binding, RAG augmentation, template rendering,
// message assembly, provider invocation, and JSON enforcement,
// grounded on original_source's chain/runner.py
// (_execute_chain_steps) and the teacher's concurrentloader.go
// fan-out/fan-in shape, upgraded to errgroup.
package executor

import (
	"strings"

	fmf "github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/chain"
)

// Unit is one item the executor iterates a step over: exactly one of
// Chunk, Row, or Group is set, matching the chain's inputs.mode.
type Unit struct {
	ID       string
	Chunk    *fmf.Chunk
	Row      *fmf.TableRow
	Group    *fmf.ImageGroup
	Document fmf.Document
}

// Context builds the chain.Context a unit's expressions resolve
// against, snapshotting all for the previously completed steps.
func (u Unit) Context(all map[string][]interface{}) chain.Context {
	ctx := chain.Context{All: all, Vars: map[string]interface{}{}}
	switch {
	case u.Chunk != nil:
		ctx.Chunk = map[string]interface{}{
			"text":       u.Chunk.Text,
			"id":         u.Chunk.ID,
			"doc_id":     u.Chunk.DocID,
			"source_uri": u.Document.SourceURI,
		}
	case u.Row != nil:
		row := map[string]interface{}{
			"source_uri": u.Row.SourceURI,
			"text":       u.Row.Text,
			"row_index":  u.Row.RowIndex,
		}
		for k, v := range u.Row.Columns {
			row[k] = v
		}
		ctx.Row = row
	case u.Group != nil:
		uris := make([]string, len(u.Group.Documents))
		for i, doc := range u.Group.Documents {
			uris[i] = doc.SourceURI
		}
		ctx.Group = map[string]interface{}{
			"size":        len(u.Group.Documents),
			"source_uris": uris,
			"index":       u.Group.Index,
		}
	}
	if u.Document.ID != "" {
		ctx.Document = map[string]interface{}{
			"id":         u.Document.ID,
			"source_uri": u.Document.SourceURI,
			"metadata":   u.Document.Metadata,
		}
	}
	return ctx
}

// DefaultRAGQuery derives a retrieval query from the unit's own text
// when a step's rag.query expression is absent, mirroring
// _default_rag_query's chunk→row→group fallback order.
func (u Unit) DefaultRAGQuery() string {
	if u.Chunk != nil {
		if strings.TrimSpace(u.Chunk.Text) != "" {
			return u.Chunk.Text
		}
		return u.Document.SourceURI
	}
	if u.Row != nil {
		if strings.TrimSpace(u.Row.Text) != "" {
			return u.Row.Text
		}
		var parts []string
		for _, v := range u.Row.Columns {
			if strings.TrimSpace(v) != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	}
	if u.Group != nil {
		uris := make([]string, len(u.Group.Documents))
		for i, doc := range u.Group.Documents {
			uris[i] = doc.SourceURI
		}
		return strings.Join(uris, " ")
	}
	return ""
}

// Blobs returns the image blobs a multimodal step should attach for
// this unit: the current document's blobs, or every document's blobs
// in a group.
func (u Unit) Blobs() []fmf.Blob {
	if u.Group != nil {
		var blobs []fmf.Blob
		for _, doc := range u.Group.Documents {
			blobs = append(blobs, doc.Blobs...)
		}
		return blobs
	}
	return u.Document.Blobs
}
