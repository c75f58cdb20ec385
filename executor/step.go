package executor

import (
	"context"
	"encoding/base64"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bonehead-labs/fmf/chain"
	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/infer"
	"github.com/bonehead-labs/fmf/jsonenforce"
	"github.com/bonehead-labs/fmf/metrics"
	"github.com/bonehead-labs/fmf/provider"
	"github.com/bonehead-labs/fmf/rag"
)

// Result is one unit's outcome from running a step: either Value
// (plain text, or the parsed object when JSON was enforced) or
// Sentinel on terminal JSON failure.
type Result struct {
	UnitID    string
	Text      string
	Value     map[string]interface{}
	Sentinel  *jsonenforce.Sentinel
	Telemetry infer.Telemetry
	Err       error
}

// Deps bundles the collaborators a step needs beyond its own config:
// the provider to invoke, the rendered prompt template text, the
// named RAG pipelines available to the chain, and the metrics
// registry units are recorded against.
type Deps struct {
	Provider       provider.Provider
	PromptTemplate string
	RagPipelines   map[string]*rag.Pipeline
	Metrics        *metrics.Registry
	JoinLimits     chain.JoinLimits
}

// RunStep fans units out over a worker pool bounded by concurrency,
// returning one Result per unit in the same order as units. Order is
// not a scheduling guarantee (units execute in future/completion
// order, as spec.md §4.8 requires); the return slice is indexed back
// to match its input for deterministic downstream aggregation.
func RunStep(ctx context.Context, step chain.Step, units []Unit, all map[string][]interface{}, deps Deps, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]Result, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	continueOnError := step.ContinueOnError != nil && *step.ContinueOnError

	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			res := runUnit(gctx, step, unit, all, deps)
			results[i] = res

			failed := res.Err != nil
			jsonFailed := res.Sentinel != nil
			tokensOut := res.Telemetry.TokensOut
			retries := res.Telemetry.Retries
			if deps.Metrics != nil {
				deps.Metrics.RecordUnit(step.Output.Name, failed, jsonFailed, tokensOut, retries)
			}
			if failed && !continueOnError {
				return res.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runUnit(ctx context.Context, step chain.Step, unit Unit, all map[string][]interface{}, deps Deps) Result {
	unitCtx := unit.Context(all)

	vars := make(map[string]string, len(step.Inputs))
	for name, expr := range step.Inputs {
		value, err := chain.Eval(expr, unitCtx, deps.JoinLimits)
		if err != nil {
			return Result{UnitID: unit.ID, Err: errs.ProcessingErrorf(err, "resolving input %q", name)}
		}
		vars[name] = value
	}

	var ragImageURLs []string
	var ragInjectedBlock string
	if step.Rag != nil {
		block, images, err := applyRAG(ctx, step, unit, unitCtx, vars, deps)
		if err != nil {
			return Result{UnitID: unit.ID, Err: err}
		}
		ragInjectedBlock = block
		ragImageURLs = images
	}

	body := chain.Render(deps.PromptTemplate, vars) + ragInjectedBlock

	messages := []provider.Message{{Role: provider.RoleUser, Text: body}}
	if step.Multimodal() {
		parts := []provider.Part{{Type: "text", Text: body}}
		for _, blob := range unit.Blobs() {
			parts = append(parts, provider.Part{
				Type: "image_base64", Data: base64.StdEncoding.EncodeToString(blob.Data), MediaType: blob.MediaType,
			})
		}
		for _, url := range ragImageURLs {
			parts = append(parts, provider.Part{Type: "image_url", URL: url})
		}
		messages = []provider.Message{{Role: provider.RoleUser, Parts: parts}}
	}

	mode, err := infer.NormalizeMode(step.InferMode)
	if err != nil {
		return Result{UnitID: unit.ID, Err: err}
	}

	completion, telemetry, err := infer.Invoke(ctx, deps.Provider, messages, step.Params.Temperature, step.Params.MaxTokens, mode)
	if err != nil {
		return Result{UnitID: unit.ID, Telemetry: telemetry, Err: err}
	}

	if step.Output.Expects != "json" {
		return Result{UnitID: unit.ID, Text: completion.Text, Telemetry: telemetry}
	}

	enforced := jsonenforce.Enforce(completion.Text, step.Output.ParseRetries, step.Output.Schema)
	if enforced.Sentinel != nil {
		return Result{UnitID: unit.ID, Sentinel: enforced.Sentinel, Telemetry: telemetry}
	}
	return Result{UnitID: unit.ID, Value: enforced.Value, Telemetry: telemetry}
}

// applyRAG resolves the step's query, retrieves from the named
// pipeline, binds the retrieved text under rag.text_var, and returns
// a "Retrieved context:" block (non-empty only when inject_prompt is
// set; runUnit appends it to the rendered prompt) plus
// data-URL-encoded image references for multimodal assembly.
func applyRAG(ctx context.Context, step chain.Step, unit Unit, unitCtx chain.Context, vars map[string]string, deps Deps) (string, []string, error) {
	cfg := step.Rag
	pipeline, ok := deps.RagPipelines[cfg.Pipeline]
	if !ok {
		return "", nil, errs.ConfigErrorf(nil, "rag pipeline %q is not configured", cfg.Pipeline)
	}

	query := unit.DefaultRAGQuery()
	if cfg.Query != "" {
		resolved, err := chain.Eval(cfg.Query, unitCtx, deps.JoinLimits)
		if err != nil {
			return "", nil, errs.ProcessingErrorf(err, "resolving rag query")
		}
		query = resolved
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, nil
	}

	topKText := cfg.TopKText
	if topKText == 0 {
		topKText = 3
	}
	result, err := pipeline.Retrieve(ctx, query, topKText, cfg.TopKImages)
	if err != nil {
		return "", nil, errs.ProcessingErrorf(err, "rag retrieve failed")
	}

	textVar := cfg.TextVar
	if textVar == "" {
		textVar = "rag_text"
	}
	var textBlock, injectedBlock string
	if len(result.TextItems) > 0 {
		texts := make([]string, len(result.TextItems))
		for i, item := range result.TextItems {
			texts[i] = item.Text
		}
		textBlock = strings.Join(texts, "\n\n")
		vars[textVar] = textBlock
		if cfg.InjectsPrompt() {
			injectedBlock = "\n\nRetrieved context:\n" + textBlock
		}
	}

	var imageURLs []string
	for _, item := range result.ImageItems {
		imageURLs = append(imageURLs, "data:"+item.MediaType+";base64,"+base64.StdEncoding.EncodeToString(item.Data))
	}
	imageVar := cfg.ImageVar
	if imageVar == "" {
		imageVar = "rag_images"
	}
	if len(imageURLs) > 0 {
		vars[imageVar] = strings.Join(imageURLs, "\n")
	}

	return injectedBlock, imageURLs, nil
}
