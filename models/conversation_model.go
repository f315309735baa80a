package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationStatus string

const (
	StatusActive   ConversationStatus = "active"
	StatusArchived ConversationStatus = "archived"
)

func (s ConversationStatus) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Conversation is keyed by its unordered participant pair, stored in canonical
// order (ParticipantAID < ParticipantBID) behind a unique index.
//
// Status is one field shared by both participants: archiving hides the
// conversation from the active list of both sides.
type Conversation struct {
	ID                string             `gorm:"size:36;primary_key" json:"id"`
	ParticipantAID    string             `gorm:"size:64;not null;uniqueIndex:idx_conversation_pair" json:"-"`
	ParticipantBID    string             `gorm:"size:64;not null;uniqueIndex:idx_conversation_pair" json:"-"`
	LastMessage       string             `gorm:"type:text" json:"last_message"`
	LastMessageAt     *time.Time         `gorm:"index" json:"last_message_at"`
	Status            ConversationStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	RelatedPropertyID *string            `gorm:"size:64" json:"related_property,omitempty"`
	RelatedEventID    *string            `gorm:"size:64" json:"related_event,omitempty"`

	Participants []ConversationParticipant `gorm:"foreignkey:ConversationID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationParticipant holds one side of a conversation and that side's
// unread counter.
type ConversationParticipant struct {
	ConversationID string `gorm:"size:36;primary_key"`
	UserID         string `gorm:"size:64;primary_key;index"`
	UnreadCount    int    `gorm:"not null;default:0"`

	User User `gorm:"foreignkey:UserID"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CanonicalPair orders two participant ids so that {a, b} and {b, a} map to
// the same key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func (c *Conversation) ParticipantIDs() []string {
	return []string{c.ParticipantAID, c.ParticipantBID}
}

func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.ParticipantAID == userID || c.ParticipantBID == userID)
}

// OtherParticipantID returns the member of the pair that is not userID.
func (c *Conversation) OtherParticipantID(userID string) string {
	if c.ParticipantAID == userID {
		return c.ParticipantBID
	}
	return c.ParticipantAID
}

func (c *Conversation) HasRelatedItem() bool {
	return c.RelatedPropertyID != nil || c.RelatedEventID != nil
}

// UnreadCounts maps each loaded participant to its unread counter. Both ids are
// always present, defaulting to zero when participant rows were not loaded.
func (c *Conversation) UnreadCounts() map[string]int {
	counts := map[string]int{c.ParticipantAID: 0, c.ParticipantBID: 0}
	for _, p := range c.Participants {
		counts[p.UserID] = p.UnreadCount
	}
	return counts
}

func (c *Conversation) Participant(userID string) *ConversationParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}
