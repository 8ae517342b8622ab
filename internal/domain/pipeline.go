package domain

// Segment is one extracted unit of document text, typically a page.
// Page is nil for formats without page boundaries.
type Segment struct {
	Text string
	Page *int
}

// Chunk is a token-bounded window over a segment, produced by the chunker
// before anything is persisted. Index is global across all segments of a
// document and matches the order chunks were produced in.
type Chunk struct {
	Index      int
	Text       string
	Page       *int
	StartToken int
	EndToken   int
}

// ChunkMeta is the metadata payload stored alongside each chunk, both in the
// relational row and in the vector payload.
type ChunkMeta struct {
	ChunkIndex  int    `json:"chunk_index"`
	Page        *int   `json:"page,omitempty"`
	StartToken  int    `json:"start_token"`
	EndToken    int    `json:"end_token"`
	TextSnippet string `json:"text_snippet"`
}

const snippetLimit = 500

// MetaFor builds the stored metadata for a chunk. The snippet keeps the
// leading runes of the chunk text capped at a fixed length.
func MetaFor(c Chunk) ChunkMeta {
	snippet := c.Text
	if r := []rune(snippet); len(r) > snippetLimit {
		snippet = string(r[:snippetLimit])
	}
	return ChunkMeta{
		ChunkIndex:  c.Index,
		Page:        c.Page,
		StartToken:  c.StartToken,
		EndToken:    c.EndToken,
		TextSnippet: snippet,
	}
}
