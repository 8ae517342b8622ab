package domain

import "errors"

var (
	// ErrUnsupportedFormat rejects uploads whose extension and sniffed
	// content type match none of the supported document formats.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoTextExtracted means extraction ran every applicable strategy,
	// including OCR when available, and still produced no usable text.
	ErrNoTextExtracted = errors.New("no text could be extracted from document")

	// ErrEmbeddingUnavailable means the embedding backend is not configured
	// or rejected the request before any vectors were produced.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrMismatchedChunkEmbeddingCount guards the pairing of chunk rows with
	// their vectors before anything is written.
	ErrMismatchedChunkEmbeddingCount = errors.New("embedding count does not match chunk count")

	// ErrNoEmbeddings means chunking succeeded but the embedding step
	// returned an empty result set.
	ErrNoEmbeddings = errors.New("no embeddings produced")

	// ErrConversationNotFound rejects queries scoped to a conversation id
	// that does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
)
