// Package ids computes deterministic, content-addressed identifiers
// for documents, chunks and blobs. Identical inputs always yield
// identical IDs across runs and machines.
package ids

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// Algo selects the non-cryptographic content hash used throughout the
// ids package.
type Algo string

const (
	AlgoBlake2b Algo = "blake2b"
	AlgoXXHash  Algo = "xxh64"
)

// AlgoFromEnv resolves the hash algorithm from FMF_HASH_ALGO, defaulting
// to blake2b.
func AlgoFromEnv() Algo {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("FMF_HASH_ALGO")))
	if Algo(v) == AlgoXXHash {
		return AlgoXXHash
	}
	return AlgoBlake2b
}

// NormalizeText canonicalises text for hashing: strips a leading UTF-8
// BOM, normalises Unicode to NFC, and converts CRLF/CR line endings to
// LF, returning UTF-8 bytes.
func NormalizeText(text string) []byte {
	text = strings.TrimPrefix(text, "﻿")
	normalised := norm.NFC.String(text)
	normalised = strings.ReplaceAll(normalised, "\r\n", "\n")
	normalised = strings.ReplaceAll(normalised, "\r", "\n")
	return []byte(normalised)
}

// HashBytes hashes payload under the given namespace using algo (or the
// environment default when algo is empty). The namespace is hashed
// first so that identical payloads under different entity kinds never
// collide.
func HashBytes(data []byte, namespace string, algo Algo) string {
	if algo == "" {
		algo = AlgoFromEnv()
	}
	if algo == AlgoXXHash {
		h := xxhash.New()
		if namespace != "" {
			_, _ = h.Write([]byte(namespace))
		}
		_, _ = h.Write(data)
		return hex.EncodeToString(h.Sum(nil))
	}
	h, err := blake2b.New(16, nil)
	if err != nil {
		// blake2b.New only fails for bad key/size combinations, which
		// never happens with a nil key and a fixed valid size.
		panic(err)
	}
	if namespace != "" {
		_, _ = h.Write([]byte(namespace))
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentIDParams carries the fields that participate in a
// document's identity namespace.
type DocumentIDParams struct {
	SourceURI     string
	Payload       []byte
	ModifiedAt    time.Time // zero value means "not provided"
	ContentType   string
	ContentLength int // -1 means "not provided"
}

// DocumentID computes "doc_" + hash(namespace, payload) per the
// document identity invariant: the namespace folds in source URI,
// normalised UTC modified time, content type and content length, in
// that order, so that any material change to provenance changes the
// ID while identical (source, payload) pairs across runs agree.
func DocumentID(p DocumentIDParams) string {
	namespace := p.SourceURI
	if !p.ModifiedAt.IsZero() {
		namespace = fmt.Sprintf("%s|%s", namespace, p.ModifiedAt.UTC().Format(time.RFC3339Nano))
	}
	if p.ContentType != "" {
		namespace = fmt.Sprintf("%s|mime=%s", namespace, p.ContentType)
	}
	if p.ContentLength >= 0 {
		namespace = fmt.Sprintf("%s|len=%s", namespace, strconv.Itoa(p.ContentLength))
	}
	digest := HashBytes(p.Payload, namespace, "")
	return "doc_" + digest
}

// ChunkID computes "{docID}_ch_" + hash(...)[:12] per the chunk
// identity invariant. Stable across re-chunking runs with identical
// splitter settings because index and payload length are folded into
// the namespace.
func ChunkID(docID string, index int, payload string) string {
	namespace := fmt.Sprintf("%s|%d|len=%d", docID, index, len(payload))
	digest := HashBytes([]byte(payload), namespace, "")
	return fmt.Sprintf("%s_ch_%s", docID, shortDigest(digest))
}

// BlobID computes "blob_" + hash(...)[:12] per the blob identity
// invariant.
func BlobID(docID, mediaType string, payload []byte) string {
	namespace := fmt.Sprintf("%s|%s|len=%d", docID, mediaType, len(payload))
	digest := HashBytes(payload, namespace, "")
	return "blob_" + shortDigest(digest)
}

func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}

// UTCNowRunID returns the current UTC time formatted as a run
// identifier: YYYYMMDDTHHMMSSZ.
func UTCNowRunID(now time.Time) string {
	return now.UTC().Format("20060102T150405Z")
}
