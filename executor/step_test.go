package executor

import (
	"context"
	"strings"
	"testing"

	fmf "github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/chain"
	"github.com/bonehead-labs/fmf/metrics"
	"github.com/bonehead-labs/fmf/provider"
	"github.com/bonehead-labs/fmf/rag"
)

func TestRunStepTextOutput(t *testing.T) {
	units := []Unit{
		{ID: "1", Chunk: &fmf.Chunk{ID: "c1", Text: "first chunk"}, Document: fmf.Document{SourceURI: "a.txt"}},
		{ID: "2", Chunk: &fmf.Chunk{ID: "c2", Text: "second chunk"}, Document: fmf.Document{SourceURI: "b.txt"}},
	}
	step := chain.Step{
		ID:     "summarise",
		Inputs: map[string]string{"text": "${chunk.text}"},
		Output: chain.StepOutput{Name: "summary"},
	}
	deps := Deps{
		Provider:       provider.NewTemplateProvider("summary: {{ input }}"),
		PromptTemplate: "Summarise: {{ text }}",
		Metrics:        metrics.NewRegistry(),
		JoinLimits:     chain.DefaultJoinLimits,
	}

	results, err := RunStep(context.Background(), step, units, nil, deps, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected unit error: %v", r.Err)
		}
		if r.Text == "" {
			t.Fatalf("expected non-empty text output")
		}
	}

	perStep, _ := deps.Metrics.Snapshot()
	if perStep["summary"].Units != 2 {
		t.Fatalf("expected metrics to record 2 units, got %d", perStep["summary"].Units)
	}
}

func TestRunStepJSONOutputEnforced(t *testing.T) {
	units := []Unit{{ID: "1", Chunk: &fmf.Chunk{ID: "c1", Text: "x"}}}
	step := chain.Step{
		ID:     "analyse",
		Inputs: map[string]string{"text": "${chunk.text}"},
		Output: chain.StepOutput{Name: "analysis", Expects: "json"},
	}
	deps := Deps{
		Provider:       provider.NewTemplateProvider(`{"id": "1", "analysed": true}`),
		PromptTemplate: "{{ text }}",
		Metrics:        metrics.NewRegistry(),
		JoinLimits:     chain.DefaultJoinLimits,
	}

	results, err := RunStep(context.Background(), step, units, nil, deps, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Sentinel != nil {
		t.Fatalf("unexpected sentinel: %+v", results[0].Sentinel)
	}
	if results[0].Value["id"] != "1" {
		t.Fatalf("unexpected value: %+v", results[0].Value)
	}
}

func TestRunStepMalformedJSONProducesSentinel(t *testing.T) {
	units := []Unit{{ID: "1", Chunk: &fmf.Chunk{ID: "c1", Text: "x"}}}
	step := chain.Step{
		ID:     "analyse",
		Inputs: map[string]string{"text": "${chunk.text}"},
		Output: chain.StepOutput{Name: "analysis", Expects: "json", ParseRetries: 0},
	}
	deps := Deps{
		Provider:       provider.NewTemplateProvider("not json at all"),
		PromptTemplate: "{{ text }}",
		Metrics:        metrics.NewRegistry(),
		JoinLimits:     chain.DefaultJoinLimits,
	}

	results, err := RunStep(context.Background(), step, units, nil, deps, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Sentinel == nil || !results[0].Sentinel.ParseError {
		t.Fatalf("expected a parse_error sentinel, got %+v", results[0])
	}

	perStep, _ := deps.Metrics.Snapshot()
	if perStep["analysis"].JSONParseFailures != 1 {
		t.Fatalf("expected 1 json parse failure recorded, got %d", perStep["analysis"].JSONParseFailures)
	}
}

func TestRunStepWithRAGInjectsContext(t *testing.T) {
	pipeline := rag.NewPipeline("docs")
	if err := pipeline.AddText(context.Background(), rag.Item{ID: "x1", Text: "fox jumps fence"}); err != nil {
		t.Fatalf("unexpected error adding item: %v", err)
	}

	units := []Unit{{ID: "1", Chunk: &fmf.Chunk{ID: "c1", Text: "fox jumps"}}}
	inject := true
	step := chain.Step{
		ID:     "augment",
		Inputs: map[string]string{"text": "${chunk.text}"},
		Output: chain.StepOutput{Name: "augmented"},
		Rag:    &chain.RagStepConfig{Pipeline: "docs", TopKText: 1, InjectPrompt: &inject},
	}
	deps := Deps{
		Provider:       provider.NewTemplateProvider("{{ input }}"),
		PromptTemplate: "Question: {{ text }}",
		RagPipelines:   map[string]*rag.Pipeline{"docs": pipeline},
		Metrics:        metrics.NewRegistry(),
		JoinLimits:     chain.DefaultJoinLimits,
	}

	results, err := RunStep(context.Background(), step, units, nil, deps, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Err != nil {
		t.Fatalf("unexpected unit error: %v", results[0].Err)
	}
	want := "Retrieved context:"
	if !strings.Contains(results[0].Text, want) {
		t.Fatalf("expected rendered output to include retrieved context, got %q", results[0].Text)
	}
}

func TestRunStepUnknownRagPipelineErrors(t *testing.T) {
	units := []Unit{{ID: "1", Chunk: &fmf.Chunk{ID: "c1", Text: "x"}}}
	step := chain.Step{
		ID:     "augment",
		Output: chain.StepOutput{Name: "out"},
		Rag:    &chain.RagStepConfig{Pipeline: "missing"},
	}
	deps := Deps{
		Provider:       provider.NewTemplateProvider("{{ input }}"),
		PromptTemplate: "x",
		RagPipelines:   map[string]*rag.Pipeline{},
		Metrics:        metrics.NewRegistry(),
		JoinLimits:     chain.DefaultJoinLimits,
	}
	_, err := RunStep(context.Background(), step, units, nil, deps, 1)
	if err == nil {
		t.Fatalf("expected an error for an unconfigured rag pipeline")
	}
}
