package retrieval

import (
	"encoding/json"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

// Hit is one similarity-search result with its payload decoded into the
// fields the ranker and prompt builder read.
type Hit struct {
	ChunkID       string
	DocumentID    string
	DocumentTitle string
	OwnerID       *string
	Text          string
	Score         *float64

	// Meta is nil when the payload carries no decodable chunk metadata.
	// Such hits pass through range de-duplication untouched.
	Meta *types.ChunkMeta
}

// AnswerSource is the externally visible projection of a retained hit: it
// goes out in query responses and into the query log. Text rides along so
// the prompt builder and later debugging see what the model saw.
type AnswerSource struct {
	DocumentID    string           `json:"document_id"`
	ChunkID       string           `json:"chunk_id"`
	DocumentTitle string           `json:"document_title"`
	Score         *float64         `json:"score,omitempty"`
	Text          string           `json:"text,omitempty"`
	Meta          *types.ChunkMeta `json:"meta,omitempty"`
}

func hitsFromPoints(points []qdrant.ScoredPoint) []Hit {
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, hitFromPoint(p))
	}
	return hits
}

func hitFromPoint(p qdrant.ScoredPoint) Hit {
	h := Hit{Score: p.Score}
	h.ChunkID, _ = p.Payload["chunk_id"].(string)
	if h.ChunkID == "" {
		h.ChunkID = p.ID
	}
	h.DocumentID, _ = p.Payload["document_id"].(string)
	h.DocumentTitle, _ = p.Payload["document_title"].(string)
	if owner, ok := p.Payload["owner_id"].(string); ok && owner != "" {
		h.OwnerID = &owner
	}
	h.Text, _ = p.Payload["text"].(string)
	h.Meta = metaFromPayload(p.Payload["meta"])
	return h
}

// metaFromPayload re-decodes the payload's meta object into ChunkMeta.
// Anything that is not a decodable object yields nil.
func metaFromPayload(v any) *types.ChunkMeta {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var meta types.ChunkMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return &meta
}

func sourceFromHit(h Hit) AnswerSource {
	return AnswerSource{
		DocumentID:    h.DocumentID,
		ChunkID:       h.ChunkID,
		DocumentTitle: h.DocumentTitle,
		Score:         h.Score,
		Text:          h.Text,
		Meta:          h.Meta,
	}
}
