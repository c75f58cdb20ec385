// Package artifact implements the run-end writer: docs/chunks/rows/
// outputs JSONL, per-pipeline RAG traces, declared exports, the
// run.yaml manifest, the global run index, and retention, grounded on
// original_source's processing/persist.py (write_jsonl/
// persist_artefacts/update_index/apply_retention) and sdk/client.py
// (run.yaml assembly).
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	fmf "github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/errs"
)

// serialDoc mirrors Document.to_serializable(): blob bytes are
// replaced with size_bytes + sha256 per spec.md §4.11 step 2.
type serialDoc struct {
	ID         string                 `json:"id"`
	SourceURI  string                 `json:"source_uri"`
	Text       string                 `json:"text,omitempty"`
	Blobs      []serialBlob           `json:"blobs,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Provenance fmf.DocumentProvenance `json:"provenance"`
}

type serialBlob struct {
	ID        string                 `json:"id"`
	MediaType string                 `json:"media_type"`
	SizeBytes int                    `json:"size_bytes"`
	SHA256    string                 `json:"sha256"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func toSerialDoc(d fmf.Document) serialDoc {
	blobs := make([]serialBlob, len(d.Blobs))
	for i, b := range d.Blobs {
		sum := sha256.Sum256(b.Data)
		blobs[i] = serialBlob{ID: b.ID, MediaType: b.MediaType, SizeBytes: len(b.Data), SHA256: hex.EncodeToString(sum[:]), Metadata: b.Metadata}
	}
	return serialDoc{ID: d.ID, SourceURI: d.SourceURI, Text: d.Text, Blobs: blobs, Metadata: d.Metadata, Provenance: d.Provenance}
}

// EnsureDir creates dir (and parents) if absent.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// WriteJSONL writes one JSON object per line to path, truncating any
// existing file.
func WriteJSONL(path string, records []interface{}) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return errs.ExportErrorf(err, "creating directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errs.ExportErrorf(err, "creating %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return errs.ExportErrorf(err, "writing record to %s", path)
		}
	}
	return nil
}

// WriteDocs writes docs.jsonl with blob bytes replaced by size/hash
// summaries.
func WriteDocs(runDir string, docs []fmf.Document) (string, error) {
	path := filepath.Join(runDir, "docs.jsonl")
	records := make([]interface{}, len(docs))
	for i, d := range docs {
		records[i] = toSerialDoc(d)
	}
	return path, WriteJSONL(path, records)
}

// WriteChunks writes chunks.jsonl.
func WriteChunks(runDir string, chunks []fmf.Chunk) (string, error) {
	path := filepath.Join(runDir, "chunks.jsonl")
	records := make([]interface{}, len(chunks))
	for i, c := range chunks {
		records[i] = c
	}
	return path, WriteJSONL(path, records)
}

// WriteRows writes rows.jsonl when the chain ran in a row mode.
func WriteRows(runDir string, rows []fmf.TableRow) (string, error) {
	path := filepath.Join(runDir, "rows.jsonl")
	records := make([]interface{}, len(rows))
	for i, r := range rows {
		records[i] = r
	}
	return path, WriteJSONL(path, records)
}

// OutputRecord is one line of outputs.jsonl, matching spec.md §4.11
// step 3's {run_id, step_id, record_id, output} shape.
type OutputRecord struct {
	RunID    string      `json:"run_id"`
	StepID   string      `json:"step_id"`
	RecordID string      `json:"record_id"`
	Output   interface{} `json:"output"`
}

// WriteOutputs writes outputs.jsonl for the final step's records.
func WriteOutputs(runDir string, records []OutputRecord) (string, error) {
	path := filepath.Join(runDir, "outputs.jsonl")
	out := make([]interface{}, len(records))
	for i, r := range records {
		out[i] = r
	}
	return path, WriteJSONL(path, out)
}
