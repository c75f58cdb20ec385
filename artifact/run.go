package artifact

import (
	"path/filepath"
	"time"

	fmf "github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/metrics"
	"github.com/bonehead-labs/fmf/rag"
)

// RunData bundles everything a completed run hands to the writer:
// the documents/chunks/rows it processed, the final step's output
// records, and the RAG pipelines it consulted.
type RunData struct {
	Docs         []fmf.Document
	Chunks       []fmf.Chunk
	Rows         []fmf.TableRow
	Outputs      []OutputRecord
	RagPipelines map[string]*rag.Pipeline
}

// PersistOptions carries the manifest fields Persist needs beyond
// RunData: run identity, the profile/provider name used, and the
// prompt versions resolved during the run.
type PersistOptions struct {
	RunID        string
	Profile      string
	ProviderName string
	Inputs       map[string]any
	PromptsUsed  []string
	StartedAt    time.Time
	RetainLast   int
}

// Persist writes every spec.md §4.11 artefact for one completed run:
// docs/chunks/rows/outputs jsonl, RAG traces, run.yaml, the global
// run index, and retention, in the same order persist.py's top-level
// orchestration follows.
func Persist(artefactsDir string, opts PersistOptions, data RunData, reg *metrics.Registry) (fmf.RunContext, error) {
	runDir := filepath.Join(artefactsDir, opts.RunID)
	if err := EnsureDir(runDir); err != nil {
		return fmf.RunContext{}, errs.ExportErrorf(err, "creating run directory %s", runDir)
	}

	var artefacts []string

	if len(data.Docs) > 0 {
		path, err := WriteDocs(runDir, data.Docs)
		if err != nil {
			return fmf.RunContext{}, err
		}
		artefacts = append(artefacts, path)
	}
	if len(data.Chunks) > 0 {
		path, err := WriteChunks(runDir, data.Chunks)
		if err != nil {
			return fmf.RunContext{}, err
		}
		artefacts = append(artefacts, path)
	}
	if len(data.Rows) > 0 {
		path, err := WriteRows(runDir, data.Rows)
		if err != nil {
			return fmf.RunContext{}, err
		}
		artefacts = append(artefacts, path)
	}
	if len(data.Outputs) > 0 {
		path, err := WriteOutputs(runDir, data.Outputs)
		if err != nil {
			return fmf.RunContext{}, err
		}
		artefacts = append(artefacts, path)
	}

	for _, pipeline := range data.RagPipelines {
		if err := pipeline.FlushTrace(runDir); err != nil {
			return fmf.RunContext{}, errs.ExportErrorf(err, "flushing rag trace for %s", runDir)
		}
	}

	finishedAt := time.Now()
	manifest := BuildManifest(opts.RunID, opts.Profile, opts.ProviderName, opts.Inputs, opts.PromptsUsed, opts.StartedAt, finishedAt, reg, artefacts)
	manifestPath, err := WriteManifest(runDir, manifest)
	if err != nil {
		return fmf.RunContext{}, err
	}
	artefacts = append(artefacts, manifestPath)

	if _, err := UpdateIndex(artefactsDir, IndexEntry{
		RunID:      opts.RunID,
		RunDir:     runDir,
		Profile:    opts.Profile,
		StartedAt:  opts.StartedAt,
		FinishedAt: finishedAt,
	}); err != nil {
		return fmf.RunContext{}, err
	}

	if err := ApplyRetention(artefactsDir, opts.RetainLast); err != nil {
		return fmf.RunContext{}, err
	}

	return fmf.RunContext{
		RunID:     opts.RunID,
		RunDir:    runDir,
		StartedAt: opts.StartedAt,
		Artefacts: artefacts,
	}, nil
}
