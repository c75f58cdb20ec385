// Package chunk splits a Document's text into token-bounded Chunks
// (by_sentence/by_paragraph/none splitters with overlap), iterates
// tabular rows into TableRow values, and groups image-bearing
// Documents into fixed-size ImageGroups.
package chunk

import (
	"regexp"
	"strings"

	"github.com/bonehead-labs/fmf"
	"github.com/bonehead-labs/fmf/ids"
)

// Splitter selects how a document's text is divided into units before
// greedy packing.
type Splitter string

const (
	BySentence Splitter = "by_sentence"
	ByParagraph Splitter = "by_paragraph"
	None        Splitter = "none"
)

// Options configures chunking. Defaults mirror the original pipeline:
// 800-token chunks, 150-token overlap, sentence splitting.
type Options struct {
	MaxTokens int
	Overlap   int
	Splitter  Splitter
	Counter   TokenCounter
}

// DefaultOptions returns the original pipeline's defaults.
func DefaultOptions() Options {
	return Options{MaxTokens: 800, Overlap: 150, Splitter: BySentence, Counter: WordTokenCounter{}}
}

// TokenCounter estimates how many tokens a string occupies. Swappable
// so a chain can opt into exact tiktoken counts instead of the default
// word-run estimator.
type TokenCounter interface {
	Count(text string) int
}

// WordTokenCounter approximates token count as the number of
// word-like runs, matching the original estimate_tokens().
type WordTokenCounter struct{}

var wordRE = regexp.MustCompile(`\w+`)

func (WordTokenCounter) Count(text string) int {
	n := len(wordRE.FindAllString(text, -1))
	if n < 1 {
		return 1
	}
	return n
}

var sentenceBoundaryRE = regexp.MustCompile(`(?:[.!?])\s+`)
var paragraphBoundaryRE = regexp.MustCompile(`\n\n+`)
var wordTokenRE = regexp.MustCompile(`\S+`)

func splitSentences(text string) []string {
	return splitNonEmpty(sentenceBoundaryRE.Split(strings.TrimSpace(text), -1))
}

func splitParagraphs(text string) []string {
	return splitNonEmpty(paragraphBoundaryRE.Split(strings.TrimSpace(text), -1))
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func units(text string, splitter Splitter) []string {
	switch splitter {
	case ByParagraph:
		return splitParagraphs(text)
	case None:
		return []string{text}
	default:
		return splitSentences(text)
	}
}

// Chunk greedily packs docText's units into token-bounded chunks, each
// carrying a tail-word overlap from its predecessor. It is a direct
// port of the original chunk_text() algorithm onto the fmf.Chunk type.
func Chunk(docID, docText string, opts Options) []fmf.Chunk {
	if opts.Counter == nil {
		opts.Counter = WordTokenCounter{}
	}
	if opts.Splitter == "" {
		opts.Splitter = BySentence
	}

	us := units(docText, opts.Splitter)

	var chunks []fmf.Chunk
	var curParts []string
	curTokens := 0
	cid := 0

	flush := func() {
		if len(curParts) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(curParts, " "))
		chunks = append(chunks, fmf.Chunk{
			ID:             ids.ChunkID(docID, cid, text),
			DocID:          docID,
			Text:           text,
			TokensEstimate: opts.Counter.Count(text),
			Provenance: fmf.ChunkProvenance{
				Index:       cid,
				Splitter:    string(opts.Splitter),
				LengthChars: len(text),
			},
		})
		cid++
	}

	for _, u := range us {
		uTokens := opts.Counter.Count(u)
		if curTokens+uTokens > opts.MaxTokens && len(curParts) > 0 {
			flush()
			if opts.Overlap > 0 && len(chunks) > 0 {
				prevWords := wordTokenRE.FindAllString(chunks[len(chunks)-1].Text, -1)
				carry := carryTail(prevWords, opts.Overlap)
				if carry != "" {
					curParts = []string{carry}
					curTokens = opts.Counter.Count(carry)
				} else {
					curParts = nil
					curTokens = 0
				}
			} else {
				curParts = nil
				curTokens = 0
			}
		}
		curParts = append(curParts, u)
		curTokens += uTokens
	}
	flush()

	return chunks
}

func carryTail(words []string, overlap int) string {
	if len(words) == 0 {
		return ""
	}
	start := len(words) - overlap
	if start < 0 {
		start = 0
	}
	return strings.Join(words[start:], " ")
}
