// Package chunker splits cleaned segments into token-bounded overlapping
// windows sized against the same tokenizer family the embedding model uses.
package chunker

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

// Tokenizer is the minimal sub-word tokenizer surface the chunker needs.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// NewTokenizer resolves the encoding for the embedding model, falling back
// to cl100k_base and then p50k_base when the model is unknown.
func NewTokenizer(embedModel string) (Tokenizer, error) {
	if embedModel != "" {
		if enc, err := tiktoken.EncodingForModel(embedModel); err == nil {
			return &tiktokenTokenizer{enc: enc}, nil
		}
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return &tiktokenTokenizer{enc: enc}, nil
	}
	enc, err := tiktoken.GetEncoding("p50k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer encoding: %w", err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

type Chunker struct {
	tok     Tokenizer
	size    int
	overlap int
}

// New clamps size to at least 1 token and overlap to [0, size-1] so windows
// always advance.
func New(tok Tokenizer, size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > size-1 {
		overlap = size - 1
	}
	return &Chunker{tok: tok, size: size, overlap: overlap}
}

// Chunk windows each segment's token sequence. Every window emits one chunk
// with the decoded, trimmed text and its token offsets; the chunk index is a
// single counter across all segments of the document.
func (c *Chunker) Chunk(segments []types.Segment) []types.Chunk {
	var chunks []types.Chunk
	index := 0

	for _, seg := range segments {
		tokens := c.tok.Encode(seg.Text)
		start := 0
		for start < len(tokens) {
			end := start + c.size
			if end > len(tokens) {
				end = len(tokens)
			}
			text := strings.TrimSpace(c.tok.Decode(tokens[start:end]))

			var page *int
			if seg.Page != nil {
				p := *seg.Page
				page = &p
			}
			chunks = append(chunks, types.Chunk{
				Index:      index,
				Text:       text,
				Page:       page,
				StartToken: start,
				EndToken:   end,
			})
			index++

			if end >= len(tokens) {
				break
			}
			start = end - c.overlap
			if start < 0 {
				start = 0
			}
		}
	}
	return chunks
}
