package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultDeletedPlaceholder = "This message has been deleted"

// Message is immutable apart from a one-way soft delete.
type Message struct {
	ID             string                      `gorm:"size:36;primary_key" json:"id"`
	ConversationID string                      `gorm:"size:36;not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string                      `gorm:"size:64;not null" json:"sender_id"`
	RecipientID    string                      `gorm:"size:64;not null" json:"recipient_id"`
	Content        string                      `gorm:"type:text;not null" json:"content"`
	Attachments    datatypes.JSONSlice[string] `json:"attachments"`
	IsDeleted      bool                        `gorm:"not null;default:false" json:"is_deleted"`

	Sender *User `gorm:"foreignkey:SenderID" json:"sender,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Attachments == nil {
		m.Attachments = datatypes.JSONSlice[string]{}
	}
	return nil
}
