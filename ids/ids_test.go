package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentIDDeterministic(t *testing.T) {
	modified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	params := DocumentIDParams{
		SourceURI:     "s3://bucket/key.txt",
		Payload:       []byte("hello world"),
		ModifiedAt:    modified,
		ContentType:   "text/plain",
		ContentLength: 11,
	}

	id1 := DocumentID(params)
	id2 := DocumentID(params)
	assert.Equal(t, id1, id2)
	assert.Regexp(t, `^doc_[0-9a-f]+$`, id1)
}

func TestDocumentIDChangesWithProvenance(t *testing.T) {
	base := DocumentIDParams{SourceURI: "file://a.txt", Payload: []byte("x"), ContentLength: -1}
	id1 := DocumentID(base)

	withMime := base
	withMime.ContentType = "text/markdown"
	id2 := DocumentID(withMime)

	assert.NotEqual(t, id1, id2)
}

func TestNormalizeTextCanonicalisesNewlines(t *testing.T) {
	crlf := NormalizeText("a\r\nb\rc\n")
	lf := NormalizeText("a\nb\nc\n")
	assert.Equal(t, lf, crlf)
}

func TestNormalizeTextStripsBOM(t *testing.T) {
	withBOM := NormalizeText("﻿hello")
	assert.Equal(t, []byte("hello"), withBOM)
}

func TestChunkIDStableAcrossRechunking(t *testing.T) {
	docID := "doc_abc123"
	id1 := ChunkID(docID, 0, "first chunk text")
	id2 := ChunkID(docID, 0, "first chunk text")
	require.Equal(t, id1, id2)
	assert.Contains(t, id1, docID+"_ch_")
}

func TestChunkIDDiffersByIndex(t *testing.T) {
	docID := "doc_abc123"
	id1 := ChunkID(docID, 0, "same text")
	id2 := ChunkID(docID, 1, "same text")
	assert.NotEqual(t, id1, id2)
}

func TestBlobIDDeterministic(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47}
	id1 := BlobID("doc_1", "image/png", payload)
	id2 := BlobID("doc_1", "image/png", payload)
	assert.Equal(t, id1, id2)
	assert.Regexp(t, `^blob_[0-9a-f]{12}$`, id1)
}

func TestHashBytesAlgoSelection(t *testing.T) {
	blake := HashBytes([]byte("payload"), "ns", AlgoBlake2b)
	xxh := HashBytes([]byte("payload"), "ns", AlgoXXHash)
	assert.NotEqual(t, blake, xxh)
}

func TestUTCNowRunIDFormat(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "20260729T120000Z", UTCNowRunID(ts))
}
