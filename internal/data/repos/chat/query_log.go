package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type QueryLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error)
	List(ctx context.Context, tx *gorm.DB, ownerID *string, limit, offset int) ([]*types.QueryLog, error)
	DetachConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error
}

type queryLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryLogRepo(db *gorm.DB, baseLog *logger.Logger) QueryLogRepo {
	return &queryLogRepo{db: db, log: baseLog.With("repo", "QueryLogRepo")}
}

func (r *queryLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *queryLogRepo) List(ctx context.Context, tx *gorm.DB, ownerID *string, limit, offset int) ([]*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.QueryLog{})
	if ownerID != nil && *ownerID != "" {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*types.QueryLog
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DetachConversation nulls out conversation_id so query history outlives a
// deleted conversation.
func (r *queryLogRepo) DetachConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if conversationID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.QueryLog{}).
		Where("conversation_id = ?", conversationID).
		Update("conversation_id", nil).Error
}
