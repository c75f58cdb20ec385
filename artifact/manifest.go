package artifact

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/metrics"
)

// StepManifest is one step's entry in run.yaml's per-step telemetry
// block.
type StepManifest struct {
	StepID     string           `yaml:"step_id"`
	OutputName string           `yaml:"output_name"`
	Metrics    metrics.Snapshot `yaml:"metrics"`
}

// RunManifest is the run.yaml written at the end of a run, per
// spec.md §4.11 step 7: run identity, profile, prompts used, provider
// name, aggregated metrics, per-step telemetry, and artefact paths.
type RunManifest struct {
	RunID        string           `yaml:"run_id"`
	Profile      string           `yaml:"profile,omitempty"`
	StartedAt    time.Time        `yaml:"started_at"`
	FinishedAt   time.Time        `yaml:"finished_at"`
	Inputs       map[string]any   `yaml:"inputs,omitempty"`
	PromptsUsed  []string         `yaml:"prompts_used,omitempty"`
	ProviderName string           `yaml:"provider_name"`
	Metrics      metrics.Snapshot `yaml:"metrics"`
	Steps        []StepManifest   `yaml:"steps"`
	Artefacts    []string         `yaml:"artefacts"`
}

// WriteManifest serialises m as run.yaml under runDir.
func WriteManifest(runDir string, m RunManifest) (string, error) {
	path := filepath.Join(runDir, "run.yaml")
	if err := EnsureDir(runDir); err != nil {
		return path, errs.ExportErrorf(err, "creating run directory %s", runDir)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return path, errs.ExportErrorf(err, "marshalling run manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, errs.ExportErrorf(err, "writing %s", path)
	}
	return path, nil
}

// BuildManifest assembles a RunManifest from a run's accumulated
// state: the registry snapshot, the artefact paths written so far,
// and the prompt versions/provider name used during the run.
func BuildManifest(runID, profile, providerName string, inputs map[string]any, promptsUsed []string, startedAt, finishedAt time.Time, reg *metrics.Registry, artefacts []string) RunManifest {
	perStep, aggregate := reg.Snapshot()
	steps := make([]StepManifest, 0, len(perStep))
	for name, snap := range perStep {
		steps = append(steps, StepManifest{StepID: name, OutputName: name, Metrics: snap})
	}
	return RunManifest{
		RunID:        runID,
		Profile:      profile,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
		Inputs:       inputs,
		PromptsUsed:  promptsUsed,
		ProviderName: providerName,
		Metrics:      aggregate,
		Steps:        steps,
		Artefacts:    artefacts,
	}
}
