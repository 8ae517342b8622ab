package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/testutil"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
)

func TestConversationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewConversationRepo(db, testutil.Logger(t))

	owner := "owner-" + uuid.NewString()
	now := time.Now().UTC()

	stale := &types.Conversation{
		ID:        uuid.New(),
		OwnerID:   &owner,
		CreatedAt: now.Add(-2 * time.Hour),
		UpdatedAt: now.Add(-2 * time.Hour),
	}
	active := &types.Conversation{
		ID:        uuid.New(),
		OwnerID:   &owner,
		CreatedAt: now.Add(-1 * time.Hour),
		UpdatedAt: now.Add(-30 * time.Minute),
	}
	if _, err := repo.Create(ctx, tx, stale); err != nil {
		t.Fatalf("Create stale: %v", err)
	}
	if _, err := repo.Create(ctx, tx, active); err != nil {
		t.Fatalf("Create active: %v", err)
	}

	got, err := repo.GetByID(ctx, tx, stale.ID)
	if err != nil || got == nil || got.ID != stale.ID {
		t.Fatalf("GetByID: %+v, %v", got, err)
	}
	if got, err := repo.GetByID(ctx, tx, uuid.New()); err != nil || got != nil {
		t.Fatalf("GetByID missing: expected nil, nil; got %+v, %v", got, err)
	}

	// Most recently touched first.
	listed, err := repo.List(ctx, tx, &owner, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != active.ID {
		t.Fatalf("List: expected active first, got %+v", listed)
	}

	title := "What is the refund policy?"
	if err := repo.UpdateFields(ctx, tx, stale.ID, map[string]interface{}{"title": title}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	titled, err := repo.GetByID(ctx, tx, stale.ID)
	if err != nil || titled == nil || titled.Title == nil || *titled.Title != title {
		t.Fatalf("UpdateFields readback: %+v, %v", titled, err)
	}

	if err := repo.Delete(ctx, tx, active.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := repo.GetByID(ctx, tx, active.ID); err != nil || got != nil {
		t.Fatalf("Delete readback: expected nil, got %+v, %v", got, err)
	}
}
