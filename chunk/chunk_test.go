package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkBySentenceRespectsMaxTokens(t *testing.T) {
	text := "One two three. Four five six. Seven eight nine. Ten eleven twelve."
	opts := Options{MaxTokens: 6, Overlap: 0, Splitter: BySentence, Counter: WordTokenCounter{}}
	chunks := Chunk("doc1", text, opts)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokensEstimate, 9) // one extra sentence can push slightly over
	}
}

func TestChunkOverlapCarriesTailWords(t *testing.T) {
	text := "alpha beta gamma. delta epsilon zeta. eta theta iota."
	opts := Options{MaxTokens: 3, Overlap: 2, Splitter: BySentence, Counter: WordTokenCounter{}}
	chunks := Chunk("doc1", text, opts)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "gamma") || strings.Contains(chunks[1].Text, "gamma"))
}

func TestChunkNoneProducesSingleChunk(t *testing.T) {
	chunks := Chunk("doc1", "whatever text here", Options{MaxTokens: 800, Splitter: None, Counter: WordTokenCounter{}})
	require.Len(t, chunks, 1)
	assert.Equal(t, "whatever text here", chunks[0].Text)
}

func TestChunkIDsAreStableAndIndexed(t *testing.T) {
	text := "a. b. c."
	chunks := Chunk("doc1", text, Options{MaxTokens: 1, Overlap: 0, Splitter: BySentence, Counter: WordTokenCounter{}})
	for i, c := range chunks {
		assert.Equal(t, i, c.Provenance.Index)
		assert.Equal(t, "doc1", c.DocID)
	}
}

func TestWordTokenCounterMinimumOne(t *testing.T) {
	assert.Equal(t, 1, WordTokenCounter{}.Count(""))
	assert.Equal(t, 3, WordTokenCounter{}.Count("one two three"))
}
