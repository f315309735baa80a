package events

import (
	"context"
	"time"
)

type Type string

const (
	ConversationCreated  Type = "conversation.created"
	ConversationRead     Type = "conversation.read"
	ConversationArchived Type = "conversation.archived"
	MessageSent          Type = "message.sent"
	MessageDeleted       Type = "message.deleted"
)

// Event describes a committed change to a conversation. Consumers such as
// notification mailers subscribe to these; the messaging core never waits on them.
type Event struct {
	Type           Type      `json:"type"`
	ConversationID string    `json:"conversation_id"`
	ActorID        string    `json:"actor_id"`
	RecipientID    string    `json:"recipient_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}
