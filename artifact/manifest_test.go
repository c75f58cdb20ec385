package artifact

import (
	"os"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bonehead-labs/fmf/metrics"
)

func TestBuildManifestAggregatesStepMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.RecordUnit("summarise", false, false, 120, 0)
	reg.RecordUnit("summarise", true, true, 0, 1)

	m := BuildManifest("run-1", "default", "openai", nil, []string{"summarise@1"}, time.Unix(0, 0), time.Unix(10, 0), reg, []string{"docs.jsonl"})

	if m.RunID != "run-1" {
		t.Fatalf("unexpected run id: %s", m.RunID)
	}
	if m.Metrics.Units != 2 {
		t.Fatalf("expected aggregate units 2, got %d", m.Metrics.Units)
	}
	if len(m.Steps) != 1 || m.Steps[0].StepID != "summarise" {
		t.Fatalf("unexpected steps: %+v", m.Steps)
	}
	if m.Steps[0].Metrics.Errors != 1 {
		t.Fatalf("expected step errors 1, got %d", m.Steps[0].Metrics.Errors)
	}
}

func TestWriteManifestProducesValidYAML(t *testing.T) {
	dir := t.TempDir()
	reg := metrics.NewRegistry()
	m := BuildManifest("run-1", "default", "openai", nil, nil, time.Unix(0, 0), time.Unix(1, 0), reg, nil)

	path, err := WriteManifest(dir, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	var roundTripped RunManifest
	if err := yaml.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("unmarshalling manifest: %v", err)
	}
	if roundTripped.RunID != "run-1" {
		t.Fatalf("unexpected round-tripped run id: %s", roundTripped.RunID)
	}
}
