package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	fmf "github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/artifact"
	"github.com/bonehead-labs/fmf/chain"
	"github.com/bonehead-labs/fmf/chunk"
	"github.com/bonehead-labs/fmf/connector"
	"github.com/bonehead-labs/fmf/errs"
	"github.com/bonehead-labs/fmf/executor"
	"github.com/bonehead-labs/fmf/ids"
	"github.com/bonehead-labs/fmf/loader"
	"github.com/bonehead-labs/fmf/metrics"
)

// RunResult summarises one completed chain run: identity, how many
// records the final step produced, and the artefact paths written.
type RunResult struct {
	RunID            string
	RunDir           string
	RecordsProcessed int
	Artefacts        []string
	Outputs          []artifact.OutputRecord
}

// Run executes one chain end to end: collect inputs, run every step
// over the bounded worker pool, export declared sinks, persist
// artefacts, and return a summary. Mirrors original_source's
// chain/runner.py orchestration (_prepare_environment →
// _collect_inputs → _execute_chain_steps → _finalize_run).
func (e *Engine) Run(ctx context.Context, cfg chain.Config) (RunResult, error) {
	runID := time.Now().UTC().Format("20060102T150405Z")
	startedAt := time.Now().UTC()
	e.logger.Info("run started", "run_id", runID, "chain", cfg.Name)

	docs, units, rows, err := e.collectInputs(ctx, cfg)
	if err != nil {
		e.logger.Error("collecting inputs failed", "run_id", runID, "err", err)
		return RunResult{}, err
	}

	reg := metrics.NewRegistry()
	all := map[string][]interface{}{}
	var promptsUsed []string
	var lastResults []executor.Result
	var lastStepName string

	for _, step := range cfg.Steps {
		template, versionTag, err := e.resolvePrompt(step.PromptRef)
		if err != nil {
			return RunResult{}, err
		}
		promptsUsed = append(promptsUsed, versionTag)

		deps := executor.Deps{
			Provider:       e.provider,
			PromptTemplate: template,
			RagPipelines:   e.ragPipelines,
			Metrics:        reg,
			JoinLimits:     chain.JoinLimits{MaxChars: e.cfg.JoinMaxChars, MaxItems: e.cfg.JoinMaxItems},
		}

		results, err := executor.RunStep(ctx, step, units, all, deps, cfg.Concurrency)
		if err != nil && !cfg.ContinueOnError {
			return RunResult{}, errs.ProcessingErrorf(err, "step %q failed", step.ID)
		}

		all[step.Output.Name] = stepValues(results)
		lastResults = results
		lastStepName = step.Output.Name
	}

	outputs := make([]artifact.OutputRecord, len(lastResults))
	for i, r := range lastResults {
		outputs[i] = artifact.OutputRecord{RunID: runID, StepID: lastStepName, RecordID: r.UnitID, Output: stepValue(r)}
	}

	if err := e.runExports(ctx, cfg.Outputs, all); err != nil {
		return RunResult{}, err
	}

	var chunks []fmf.Chunk
	for _, u := range units {
		if u.Chunk != nil {
			chunks = append(chunks, *u.Chunk)
		}
	}

	runCtx, err := artifact.Persist(e.cfg.ArtefactsDir, artifact.PersistOptions{
		RunID:        runID,
		ProviderName: e.provider.Name(),
		PromptsUsed:  promptsUsed,
		StartedAt:    startedAt,
		RetainLast:   e.cfg.ArtefactsRetain,
	}, artifact.RunData{
		Docs:         docs,
		Chunks:       chunks,
		Rows:         rows,
		Outputs:      outputs,
		RagPipelines: e.ragPipelines,
	}, reg)
	if err != nil {
		e.logger.Error("persisting artefacts failed", "run_id", runID, "err", err)
		return RunResult{}, err
	}

	e.logger.Info("run finished", "run_id", runID, "records", len(outputs))
	return RunResult{
		RunID:            runID,
		RunDir:           runCtx.RunDir,
		RecordsProcessed: len(outputs),
		Artefacts:        runCtx.Artefacts,
		Outputs:          outputs,
	}, nil
}

func stepValue(r executor.Result) interface{} {
	switch {
	case r.Err != nil:
		return map[string]interface{}{"unit_error": true, "unit_id": r.UnitID, "error": r.Err.Error()}
	case r.Sentinel != nil:
		return r.Sentinel
	case r.Value != nil:
		return r.Value
	default:
		return r.Text
	}
}

func stepValues(results []executor.Result) []interface{} {
	values := make([]interface{}, len(results))
	for i, r := range results {
		values[i] = stepValue(r)
	}
	return values
}

// runExports writes the declared outputs[] entries that set an export
// kind, matching spec.md §4.11 step 5. sink.From names the step output
// to export, sink.Export the sink kind, and sink.As (or, when empty,
// sink.Save) the destination. Entries without an export kind
// (save-only entries) are skipped and nothing is written for them;
// destinations are used verbatim, with no ${run_id} substitution.
func (e *Engine) runExports(ctx context.Context, sinks []chain.OutputSink, all map[string][]interface{}) error {
	for _, sink := range sinks {
		if sink.Export == "" {
			continue
		}
		values, ok := all[sink.From]
		if !ok {
			return errs.ConfigErrorf(nil, "output sink references unknown step %q", sink.From)
		}
		records := make([]map[string]interface{}, len(values))
		for i, v := range values {
			if m, ok := v.(map[string]interface{}); ok {
				records[i] = m
			} else {
				records[i] = map[string]interface{}{"value": v}
			}
		}

		dest := sink.As
		if dest == "" {
			dest = sink.Save
		}
		exp, err := artifact.NewExporter(sink.Export, dest)
		if err != nil {
			return err
		}
		if _, err := exp.Export(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// resolvePrompt resolves a step's prompt reference: "inline: ..." is
// used verbatim and recorded as such, otherwise it is looked up in the
// registry as "id#version", per spec.md §4.5.
func (e *Engine) resolvePrompt(ref string) (template, versionTag string, err error) {
	if strings.HasPrefix(ref, "inline:") {
		text := strings.TrimSpace(strings.TrimPrefix(ref, "inline:"))
		return text, "inline:" + contentTag(text), nil
	}
	v, err := e.registry.Get(ref)
	if err != nil {
		return "", "", err
	}
	return v.Template, fmt.Sprintf("%s#%s", v.ID, v.Version), nil
}

func contentTag(text string) string {
	if len(text) <= 12 {
		return text
	}
	return text[:12]
}

// collectInputs resolves a chain's inputs block into the documents it
// read (for docs.jsonl) and the units the executor iterates over,
// mirroring runner.py's _collect_inputs four-way mode dispatch.
func (e *Engine) collectInputs(ctx context.Context, cfg chain.Config) ([]fmf.Document, []executor.Unit, []fmf.TableRow, error) {
	if cfg.Inputs.Mode == chain.ModeDataframe {
		rows := make([]fmf.TableRow, len(cfg.Inputs.Rows))
		units := make([]executor.Unit, len(cfg.Inputs.Rows))
		for i, raw := range cfg.Inputs.Rows {
			rows[i] = dataframeRow(cfg.Name, i, raw)
			units[i] = executor.Unit{ID: fmt.Sprintf("row-%d", i), Row: &rows[i]}
		}
		return nil, units, rows, nil
	}

	conn, ok := e.connectors[cfg.Inputs.Connector]
	if !ok {
		return nil, nil, nil, errs.ConfigErrorf(nil, "connector %q is not configured", cfg.Inputs.Connector)
	}
	refs, err := conn.List(ctx, cfg.Inputs.Select)
	if err != nil {
		return nil, nil, nil, errs.ConnectorErrorf(err, "listing connector %q", cfg.Inputs.Connector)
	}

	if cfg.Inputs.Mode == chain.ModeTableRows {
		return e.collectTableRows(ctx, conn, refs, cfg)
	}

	docs := make([]fmf.Document, 0, len(refs))
	for _, ref := range refs {
		doc, err := e.loadDocument(ctx, conn, ref)
		if err != nil {
			return nil, nil, nil, err
		}
		docs = append(docs, doc)
	}

	switch cfg.Inputs.Mode {
	case chain.ModeImagesGroup:
		groups := chunk.GroupImages(docs, cfg.Inputs.Images.GroupSize)
		units := make([]executor.Unit, len(groups))
		for i := range groups {
			var doc fmf.Document
			if len(groups[i].Documents) > 0 {
				doc = groups[i].Documents[0]
			}
			units[i] = executor.Unit{ID: fmt.Sprintf("group-%d", groups[i].Index), Group: &groups[i], Document: doc}
		}
		return docs, units, nil, nil
	default:
		var units []executor.Unit
		for _, doc := range docs {
			docChunks := chunk.Chunk(doc.ID, doc.Text, chunk.DefaultOptions())
			for i := range docChunks {
				units = append(units, executor.Unit{ID: docChunks[i].ID, Chunk: &docChunks[i], Document: doc})
			}
		}
		return docs, units, nil, nil
	}
}

// loadDocument opens ref via conn and normalises its bytes through the
// loader package.
func (e *Engine) loadDocument(ctx context.Context, conn connector.Connector, ref connector.ResourceRef) (fmf.Document, error) {
	rc, err := conn.Open(ctx, ref)
	if err != nil {
		return fmf.Document{}, errs.ConnectorErrorf(err, "opening %s", ref.URI)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmf.Document{}, errs.ConnectorErrorf(err, "reading %s", ref.URI)
	}

	info, err := conn.Info(ctx, ref)
	if err != nil {
		return fmf.Document{}, errs.ConnectorErrorf(err, "info for %s", ref.URI)
	}

	return loader.Load(ref.URI, ref.Name, data, info.ModifiedAt, loader.DefaultConfig(), nil)
}

// collectTableRows loads every ref's raw bytes and iterates them into
// TableRow values via chunk.IterRows, bypassing loader.Load since row
// iteration needs the original tabular bytes rather than flattened
// document text.
func (e *Engine) collectTableRows(ctx context.Context, conn connector.Connector, refs []connector.ResourceRef, cfg chain.Config) ([]fmf.Document, []executor.Unit, []fmf.TableRow, error) {
	opts := chunk.RowOptions{PassThrough: cfg.Inputs.Table.PassThrough}
	if col, ok := cfg.Inputs.Table.TextColumn.(string); ok && col != "" {
		opts.TextColumns = []string{col}
	}

	var allRows []fmf.TableRow
	var units []executor.Unit
	for _, ref := range refs {
		rc, err := conn.Open(ctx, ref)
		if err != nil {
			return nil, nil, nil, errs.ConnectorErrorf(err, "opening %s", ref.URI)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, nil, errs.ConnectorErrorf(err, "reading %s", ref.URI)
		}

		docID := ref.URI
		rows, err := chunk.IterRows(docID, ref.URI, ref.Name, data, opts)
		if err != nil {
			return nil, nil, nil, err
		}
		allRows = append(allRows, rows...)
	}
	units = make([]executor.Unit, len(allRows))
	for i := range allRows {
		units[i] = executor.Unit{ID: fmt.Sprintf("%s-row-%d", allRows[i].DocID, allRows[i].RowIndex), Row: &allRows[i]}
	}
	return nil, units, allRows, nil
}

// dataframeRow flattens one inline dataframe_rows entry into a
// TableRow, stringifying column values for the expression language.
// The row gets the pseudo source URI dataframe://<chain>/<index> and a
// doc id hashed from that URI plus the JSON-serialised row.
func dataframeRow(chainName string, index int, raw map[string]any) fmf.TableRow {
	cols := make(map[string]string, len(raw))
	for k, v := range raw {
		cols[k] = fmt.Sprintf("%v", v)
	}
	uri := fmt.Sprintf("dataframe://%s/%d", chainName, index)
	payload, err := json.Marshal(raw)
	if err != nil {
		payload = []byte(fmt.Sprint(raw))
	}
	docID := ids.DocumentID(ids.DocumentIDParams{SourceURI: uri, Payload: payload, ContentLength: len(payload)})
	return fmf.TableRow{DocID: docID, SourceURI: uri, RowIndex: index, Columns: cols}
}
