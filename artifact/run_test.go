package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	fmf "github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/metrics"
)

func TestPersistWritesArtefactsManifestAndIndex(t *testing.T) {
	artefactsDir := t.TempDir()
	reg := metrics.NewRegistry()
	reg.RecordUnit("summarise", false, false, 42, 0)

	data := RunData{
		Docs:    []fmf.Document{{ID: "d1", SourceURI: "a.txt"}},
		Chunks:  []fmf.Chunk{{ID: "c1", Text: "hi"}},
		Outputs: []OutputRecord{{RunID: "run-1", StepID: "summarise", RecordID: "c1", Output: "done"}},
	}
	opts := PersistOptions{
		RunID:        "run-1",
		Profile:      "default",
		ProviderName: "openai",
		PromptsUsed:  []string{"summarise@1"},
		StartedAt:    time.Unix(0, 0),
		RetainLast:   5,
	}

	runCtx, err := Persist(artefactsDir, opts, data, reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runCtx.RunID != "run-1" {
		t.Fatalf("unexpected run id: %s", runCtx.RunID)
	}

	runDir := filepath.Join(artefactsDir, "run-1")
	for _, name := range []string{"docs.jsonl", "chunks.jsonl", "outputs.jsonl", "run.yaml"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(artefactsDir, "index.json")); err != nil {
		t.Fatalf("expected a global run index: %v", err)
	}
}

func TestPersistAppliesRetentionAcrossRuns(t *testing.T) {
	artefactsDir := t.TempDir()
	reg := metrics.NewRegistry()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		opts := PersistOptions{RunID: id, StartedAt: time.Unix(int64(i), 0), RetainLast: 2}
		if _, err := Persist(artefactsDir, opts, RunData{}, reg); err != nil {
			t.Fatalf("unexpected error persisting %s: %v", id, err)
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := os.Stat(filepath.Join(artefactsDir, "run-1")); !os.IsNotExist(err) {
		t.Fatalf("expected run-1 to have been retired by retention, stat err: %v", err)
	}
	if _, err := os.Stat(filepath.Join(artefactsDir, "run-3")); err != nil {
		t.Fatalf("expected run-3 to survive: %v", err)
	}
}
