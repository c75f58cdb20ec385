package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bonehead-labs/fmf/chain"
	"github.com/bonehead-labs/fmf/connector"
	"github.com/bonehead-labs/fmf/prompt"
)

// stubConnector serves a fixed set of in-memory documents, avoiding a
// dependency on the real filesystem connector for unit tests.
type stubConnector struct {
	name  string
	files map[string]string
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) List(ctx context.Context, selectors []string) ([]connector.ResourceRef, error) {
	refs := make([]connector.ResourceRef, 0, len(s.files))
	for name := range s.files {
		refs = append(refs, connector.ResourceRef{ID: name, URI: "stub://" + name, Name: name})
	}
	return refs, nil
}

func (s *stubConnector) Open(ctx context.Context, ref connector.ResourceRef) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.files[ref.Name])), nil
}

func (s *stubConnector) Info(ctx context.Context, ref connector.ResourceRef) (connector.ResourceInfo, error) {
	return connector.ResourceInfo{SourceURI: ref.URI}, nil
}

func writePromptFile(t *testing.T, dir, name, template string) {
	t.Helper()
	body := "id: " + name + "\nversion: v1\ntemplate: \"" + template + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644))
}

func TestRunChunksModeProducesOutputsAndArtefacts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	promptDir := filepath.Join(dir, "prompts")
	require.NoError(t, os.MkdirAll(promptDir, 0o755))
	writePromptFile(t, promptDir, "summarise", "Echo: {{ input }}")
	reg := prompt.NewRegistry(promptDir, "index.yaml")
	if _, err := reg.Register("summarise.yaml#v1"); err != nil {
		t.Fatalf("registering prompt: %v", err)
	}

	conn := &stubConnector{name: "docs", files: map[string]string{"a.txt": "hello world. another sentence."}}
	e, err := New(WithConfigPath(cfgPath), WithPromptRegistry(reg), WithConnector("docs", conn))
	require.NoError(t, err)

	cfg := chain.Config{
		Name:        "test-chain",
		Concurrency: 2,
		Inputs:      chain.Inputs{Connector: "docs"},
		Steps: []chain.Step{
			{ID: "s1", PromptRef: "summarise#v1", Output: chain.StepOutput{Name: "summary"}},
		},
	}

	result, err := e.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, result.RecordsProcessed)
	require.NotEmpty(t, result.RunDir)

	if _, err := os.Stat(filepath.Join(result.RunDir, "run.yaml")); err != nil {
		t.Fatalf("expected run.yaml to be written: %v", err)
	}
}

func TestRunDataframeModeSkipsConnector(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	e, err := New(WithConfigPath(cfgPath))
	require.NoError(t, err)

	cfg := chain.Config{
		Name:        "rows-chain",
		Concurrency: 1,
		Inputs: chain.Inputs{
			Mode: chain.ModeDataframe,
			Rows: []map[string]any{{"text": "row one"}, {"text": "row two"}},
		},
		Steps: []chain.Step{
			{ID: "s1", PromptRef: "inline: Echo: {{ input }}", Output: chain.StepOutput{Name: "echoed"}},
		},
	}

	result, err := e.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 2, result.RecordsProcessed)
}

func TestResolvePromptHandlesInlinePrefix(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	e, err := New(WithConfigPath(cfgPath))
	require.NoError(t, err)

	template, tag, err := e.resolvePrompt("inline: Be terse.")
	require.NoError(t, err)
	require.Equal(t, "Be terse.", template)
	require.True(t, strings.HasPrefix(tag, "inline:"))
}
