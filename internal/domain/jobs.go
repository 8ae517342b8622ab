package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// IngestionJob tracks one ingestion run. The row carries the upload
// descriptors (title, owner, file name) so a background worker can claim a
// pending job and run it from the stored original alone.
type IngestionJob struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index" json:"document_id"`
	Document   *Document `gorm:"constraint:OnDelete:CASCADE;foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	Title       string  `gorm:"size:255;not null;default:''" json:"title"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	OwnerID     *string `gorm:"size:64" json:"owner_id,omitempty"`
	FileName    string  `gorm:"size:255;not null;default:''" json:"file_name"`

	Status     string  `gorm:"size:16;not null;default:pending" json:"status"`
	Error      *string `gorm:"type:text" json:"error,omitempty"`
	ChunkCount *int    `json:"chunk_count,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (IngestionJob) TableName() string { return "ingestion_jobs" }

type AnalysisJob struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID *string   `gorm:"size:64;index" json:"owner_id,omitempty"`

	TaskType        string         `gorm:"size:32;not null;default:summary" json:"task_type"`
	DocumentIDs     datatypes.JSON `gorm:"type:jsonb;not null" json:"document_ids"`
	Question        *string        `gorm:"type:text" json:"question,omitempty"`
	MaxChunksPerDoc int            `gorm:"not null;default:30" json:"max_chunks_per_doc"`

	Status string         `gorm:"size:16;not null;default:pending" json:"status"`
	Error  *string        `gorm:"type:text" json:"error,omitempty"`
	Result datatypes.JSON `gorm:"type:jsonb" json:"result,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (AnalysisJob) TableName() string { return "analysis_jobs" }
