package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type IngestionJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.IngestionJob) (*types.IngestionJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IngestionJob, error)
	GetLatestByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.IngestionJob, error)
	List(ctx context.Context, tx *gorm.DB, ownerID *string, limit, offset int) ([]*types.IngestionJob, error)
	ClaimNextPending(ctx context.Context, tx *gorm.DB) (*types.IngestionJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	DeleteByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error
}

type ingestionJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestionJobRepo(db *gorm.DB, baseLog *logger.Logger) IngestionJobRepo {
	return &ingestionJobRepo{db: db, log: baseLog.With("repo", "IngestionJobRepo")}
}

func (r *ingestionJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.IngestionJob) (*types.IngestionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *ingestionJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.IngestionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.IngestionJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *ingestionJobRepo) GetLatestByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.IngestionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil, nil
	}
	var job types.IngestionJob
	err := transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *ingestionJobRepo) List(ctx context.Context, tx *gorm.DB, ownerID *string, limit, offset int) ([]*types.IngestionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.IngestionJob{})
	if ownerID != nil && *ownerID != "" {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*types.IngestionJob
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextPending flips the oldest pending job to running so only one worker
// picks it up. Returns nil when nothing is claimable.
func (r *ingestionJobRepo) ClaimNextPending(ctx context.Context, tx *gorm.DB) (*types.IngestionJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	var claimed *types.IngestionJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.IngestionJob
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", types.JobStatusPending).
			Order("created_at ASC").
			First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.IngestionJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":     types.JobStatusRunning,
				"started_at": now,
				"error":      nil,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.StartedAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *ingestionJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(ctx).
		Model(&types.IngestionJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ingestionJobRepo) DeleteByDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if documentID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&types.IngestionJob{}).Error
}
