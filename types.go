// Package fmf provides the core data model shared by every stage of
// the pipeline: documents and blobs produced by loaders, chunks/rows/
// image groups produced by the splitters, and the chain/run types
// consumed by the executor and artefact writer.
package fmf

import "time"

// Blob is a binary attachment owned by its parent Document. Blobs
// hold no back-pointer; serialisation always walks parent to child.
type Blob struct {
	ID        string
	MediaType string
	Data      []byte
	Metadata  map[string]interface{}
}

// Document is produced by a loader from connector bytes. Ingestion
// exclusively owns Document instances until the step executor begins;
// thereafter only the executor holds a read-only map from ID to
// Document.
type Document struct {
	ID         string
	SourceURI  string
	Text       string
	Blobs      []Blob
	Metadata   map[string]interface{}
	Provenance DocumentProvenance
}

// DocumentProvenance captures where a Document's bytes came from.
type DocumentProvenance struct {
	SourceURI   string
	RootName    string
	ContentHash string
	CreatedAt   time.Time
}

// ClearContent releases Text (and, when keepBlobs is false, Blobs) to
// free memory after chunking, per the ownership rule in the data
// model: the raw byte buffer is dropped once units are derived from
// it.
func (d *Document) ClearContent(keepBlobs bool) {
	d.Text = ""
	if !keepBlobs {
		d.Blobs = nil
	}
}

// ChunkProvenance records how a Chunk was produced.
type ChunkProvenance struct {
	Index       int    `json:"index"`
	Splitter    string `json:"splitter"`
	LengthChars int    `json:"length_chars"`
}

// Chunk is a token-bounded slice of a document's text, immutable once
// created by the chunker.
type Chunk struct {
	ID             string          `json:"id"`
	DocID          string          `json:"doc_id"`
	Text           string          `json:"text"`
	TokensEstimate int             `json:"tokens_estimate"`
	Provenance     ChunkProvenance `json:"provenance"`
}

// TableRow is one row produced by the row iterator in table_rows
// mode.
type TableRow struct {
	DocID     string            `json:"doc_id"`
	SourceURI string            `json:"source_uri"`
	RowIndex  int               `json:"row_index"`
	Columns   map[string]string `json:"columns"`
	Text      string            `json:"text"`
}

// ImageGroup is an ordered list of Documents carrying blobs,
// accumulated by the image grouper.
type ImageGroup struct {
	Index     int
	Documents []Document
}

// RunContext is created at run start and finalised by the artefact
// writer.
type RunContext struct {
	RunID       string
	RunDir      string
	StartedAt   time.Time
	Artefacts   []string
	StepTelemetry map[string][]InferenceTelemetry
}

// InferenceTelemetry captures per-invocation measurements from the
// inference runtime.
type InferenceTelemetry struct {
	Streaming       bool
	SelectedMode    string
	FallbackReason  string
	TTFBMillis      int64
	LatencyMillis   int64
	ChunkCount      int
	TokensOut       *int
	Retries         int
}
