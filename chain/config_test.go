package chain

import "testing"

const sampleChain = `
name: analyse-docs
inputs:
  connector: docs
  select: ["*.txt"]
steps:
  - id: summarise
    prompt: "inline: summarise ${chunk.text}"
    inputs:
      text: "${chunk.text}"
    output:
      name: summary
      expects: json
      schema:
        type: object
        required: [id, analysed]
      parse_retries: 1
concurrency: 2
`

func TestParseChainConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleChain))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "analyse-docs" {
		t.Fatalf("unexpected name: %q", cfg.Name)
	}
	if len(cfg.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(cfg.Steps))
	}
	step := cfg.Steps[0]
	if step.Output.Name != "summary" {
		t.Fatalf("unexpected output name: %q", step.Output.Name)
	}
	if step.Output.Schema == nil || len(step.Output.Schema.Required) != 2 {
		t.Fatalf("expected schema with 2 required keys, got %+v", step.Output.Schema)
	}
	if cfg.Concurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.Concurrency)
	}
}

func TestParseDefaultsConcurrency(t *testing.T) {
	cfg, err := Parse([]byte(`
name: x
steps:
  - id: a
    output: out
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Fatalf("expected default concurrency %d, got %d", DefaultConcurrency, cfg.Concurrency)
	}
}

func TestParseRejectsDuplicateOutputNames(t *testing.T) {
	_, err := Parse([]byte(`
name: x
steps:
  - id: a
    output: same
  - id: b
    output: same
`))
	if err == nil {
		t.Fatalf("expected duplicate output_name to be rejected")
	}
}

func TestParseRejectsMissingName(t *testing.T) {
	_, err := Parse([]byte(`
steps:
  - id: a
    output: out
`))
	if err == nil {
		t.Fatalf("expected missing chain name to be rejected")
	}
}

func TestParseRejectsNoSteps(t *testing.T) {
	_, err := Parse([]byte(`name: x`))
	if err == nil {
		t.Fatalf("expected a chain with no steps to be rejected")
	}
}

func TestRagStepConfigInjectsPromptDefaultsTrue(t *testing.T) {
	var r RagStepConfig
	if !r.InjectsPrompt() {
		t.Fatalf("expected inject_prompt to default to true")
	}
	no := false
	r.InjectPrompt = &no
	if r.InjectsPrompt() {
		t.Fatalf("expected explicit false to be respected")
	}
}
