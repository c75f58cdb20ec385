package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbed produces a deterministic bag-of-words vector so dense
// search can be exercised without a real embedding provider.
func fakeEmbed(ctx context.Context, text string) ([]float32, error) {
	dims := []string{"fox", "jumps", "fence", "sky"}
	vec := make([]float32, len(dims))
	for i, term := range dims {
		for _, word := range splitWords(text) {
			if word == term {
				vec[i]++
			}
		}
	}
	return vec, nil
}

func splitWords(text string) []string {
	return defaultTokenizer(text)
}

func TestPipelineSparseOnlyRetrieve(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline("docs")
	require.NoError(t, p.AddText(ctx, Item{ID: "d1", Text: "the fox jumps over the fence"}))
	require.NoError(t, p.AddText(ctx, Item{ID: "d2", Text: "a calm blue sky"}))

	result, err := p.Retrieve(ctx, "fox fence", 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.TextItems)
	assert.Equal(t, "d1", result.TextItems[0].ID)
}

func TestPipelineDenseFusionPrefersBothSignals(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline("docs-dense")
	dense, err := NewChromemIndex("", "docs-dense", fakeEmbed)
	require.NoError(t, err)
	p.DenseText = dense

	require.NoError(t, p.AddText(ctx, Item{ID: "d1", Text: "the fox jumps over the fence"}))
	require.NoError(t, p.AddText(ctx, Item{ID: "d2", Text: "a calm blue sky"}))

	result, err := p.Retrieve(ctx, "fox jumps", 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.TextItems)
	assert.Equal(t, "d1", result.TextItems[0].ID)
}

func TestPipelineFlushTraceWritesJSONL(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline("trace-me")
	require.NoError(t, p.AddText(ctx, Item{ID: "d1", Text: "hello world"}))
	_, err := p.Retrieve(ctx, "hello", 1, 0)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, p.FlushTrace(dir))

	data, err := os.ReadFile(filepath.Join(dir, "rag", "trace-me.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"query":"hello"`)
}
