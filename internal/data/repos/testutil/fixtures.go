package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, ownerID *string) *types.Document {
	tb.Helper()
	d := &types.Document{
		ID:         uuid.New(),
		Title:      title,
		OwnerID:    ownerID,
		StorageKey: uuid.NewString() + "/" + title,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, documentID uuid.UUID, index int) *types.DocumentChunk {
	tb.Helper()
	meta := types.MetaFor(types.Chunk{
		Index:      index,
		Text:       "chunk",
		StartToken: index * 100,
		EndToken:   index*100 + 100,
	})
	raw, err := json.Marshal(meta)
	if err != nil {
		tb.Fatalf("encode chunk meta: %v", err)
	}
	c := &types.DocumentChunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		Text:       "chunk",
		Meta:       datatypes.JSON(raw),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chunk: %v", err)
	}
	return c
}

func SeedConversation(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID *string) *types.Conversation {
	tb.Helper()
	c := &types.Conversation{
		ID:      uuid.New(),
		OwnerID: ownerID,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversation: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, role, content string) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}

func SeedIngestionJob(tb testing.TB, ctx context.Context, tx *gorm.DB, documentID uuid.UUID, status string) *types.IngestionJob {
	tb.Helper()
	j := &types.IngestionJob{
		ID:         uuid.New(),
		DocumentID: documentID,
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed ingestion job: %v", err)
	}
	return j
}

func SeedAnalysisJob(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID *string, documentIDs []uuid.UUID, status string) *types.AnalysisJob {
	tb.Helper()
	ids, err := encodeUUIDs(documentIDs)
	if err != nil {
		tb.Fatalf("encode document ids: %v", err)
	}
	j := &types.AnalysisJob{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		DocumentIDs: ids,
		Status:      status,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed analysis job: %v", err)
	}
	return j
}

func encodeUUIDs(ids []uuid.UUID) (datatypes.JSON, error) {
	out := []string{}
	for _, id := range ids {
		out = append(out, id.String())
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
