package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msgs []*types.Message) ([]*types.Message, error)
	ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit, offset int) ([]*types.Message, error)
	DeleteByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, msgs []*types.Message) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(msgs) == 0 {
		return []*types.Message{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit, offset int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Message
	if conversationID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) DeleteByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if conversationID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&types.Message{}).Error
}
