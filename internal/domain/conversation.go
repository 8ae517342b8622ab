package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerID *string   `gorm:"size:64;index" json:"owner_id,omitempty"`
	Title   *string   `gorm:"size:255" json:"title,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation   *Conversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`

	Role    string `gorm:"size:16;not null" json:"role"`
	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
