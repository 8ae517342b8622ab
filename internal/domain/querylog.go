package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type QueryLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID *uuid.UUID `gorm:"type:uuid;index" json:"conversation_id,omitempty"`
	OwnerID        *string    `gorm:"size:64;index" json:"owner_id,omitempty"`

	Question string         `gorm:"type:text;not null" json:"question"`
	Answer   string         `gorm:"type:text;not null" json:"answer"`
	Sources  datatypes.JSON `gorm:"type:jsonb" json:"sources"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (QueryLog) TableName() string { return "query_logs" }
