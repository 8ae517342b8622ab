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

type AnalysisJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.AnalysisJob) (*types.AnalysisJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AnalysisJob, error)
	List(ctx context.Context, tx *gorm.DB, ownerID *string, limit, offset int) ([]*types.AnalysisJob, error)
	ClaimNextPending(ctx context.Context, tx *gorm.DB) (*types.AnalysisJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type analysisJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisJobRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisJobRepo {
	return &analysisJobRepo{db: db, log: baseLog.With("repo", "AnalysisJobRepo")}
}

func (r *analysisJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.AnalysisJob) (*types.AnalysisJob, error) {
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

func (r *analysisJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AnalysisJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.AnalysisJob
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

func (r *analysisJobRepo) List(ctx context.Context, tx *gorm.DB, ownerID *string, limit, offset int) ([]*types.AnalysisJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.AnalysisJob{})
	if ownerID != nil && *ownerID != "" {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*types.AnalysisJob
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *analysisJobRepo) ClaimNextPending(ctx context.Context, tx *gorm.DB) (*types.AnalysisJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	var claimed *types.AnalysisJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.AnalysisJob
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
		uErr := txx.Model(&types.AnalysisJob{}).
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

func (r *analysisJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.AnalysisJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}
