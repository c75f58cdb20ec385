package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTextNormalisesWhitespace(t *testing.T) {
	doc, err := Load("file:///a.txt", "a.txt", []byte("hello   \n\n  world"), time.Now(), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", doc.Text)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "a.txt", doc.Provenance.RootName)
}

func TestLoadCSVRendersMarkdownTable(t *testing.T) {
	doc, err := Load("file:///t.csv", "t.csv", []byte("a,b\n1,2\n"), time.Now(), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "| a | b |")
	assert.Contains(t, doc.Text, "| 1 | 2 |")
}

func TestLoadCSVPlainWhenTablesDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TablesToMarkdown = false
	doc, err := Load("file:///t.csv", "t.csv", []byte("a,b\n1,2\n"), time.Now(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "a,b 1,2", doc.Text)
}

func TestLoadImageWithoutOCRProducesBlobOnly(t *testing.T) {
	doc, err := Load("file:///img.png", "img.png", []byte{0x89, 0x50, 0x4e, 0x47}, time.Now(), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
	require.Len(t, doc.Blobs, 1)
	assert.Equal(t, "image/png", doc.Blobs[0].MediaType)
	assert.NotEmpty(t, doc.Blobs[0].ID)
}

func TestLoadImageWithOCREnabledButNoEngineErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCREnabled = true
	_, err := Load("file:///img.png", "img.png", []byte{0x89, 0x50, 0x4e, 0x47}, time.Now(), cfg, nil)
	assert.Error(t, err)
}

type stubOCR struct{ text string }

func (s stubOCR) Extract(data []byte, lang string) (string, error) { return s.text, nil }

func TestLoadImageWithOCREngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCREnabled = true
	doc, err := Load("file:///img.png", "img.png", []byte{0x89, 0x50, 0x4e, 0x47}, time.Now(), cfg, stubOCR{text: "scanned text"})
	require.NoError(t, err)
	assert.Equal(t, "scanned text", doc.Text)
}

func TestLoadBinaryUnknownExtensionIsOpaqueBlob(t *testing.T) {
	doc, err := Load("file:///a.bin", "a.bin", []byte{1, 2, 3}, time.Now(), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Text)
	require.Len(t, doc.Blobs, 1)
	assert.Equal(t, "application/octet-stream", doc.Blobs[0].MediaType)
}

func TestLoadDeterministicIDAcrossRuns(t *testing.T) {
	modified := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := Load("file:///a.txt", "a.txt", []byte("same content"), modified, DefaultConfig(), nil)
	require.NoError(t, err)
	b, err := Load("file:///a.txt", "a.txt", []byte("same content"), modified, DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}
