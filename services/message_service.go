package services

import (
	"context"
	"errors"

	"github.com/anjiri1684/agency_messaging/events"
	"github.com/anjiri1684/agency_messaging/metrics"
	"github.com/anjiri1684/agency_messaging/models"
	"gorm.io/datatypes"
)

type MessageService struct {
	Deps
	conversations *ConversationService
}

func NewMessageService(conversations *ConversationService) *MessageService {
	return &MessageService{Deps: conversations.Deps, conversations: conversations}
}

// Send appends a message from sender to recipient, creating their
// conversation on first contact.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID, content string, attachments []string) (*models.Message, error) {
	text, err := normalizeContent(content, s.Options.MaxContentLength)
	if err != nil {
		return nil, err
	}
	if err := validateParticipants(senderID, recipientID); err != nil {
		return nil, err
	}

	conv, _, err := s.conversations.findOrCreate(ctx, senderID, recipientID, nil, nil)
	if err != nil {
		return nil, err
	}
	return s.conversations.appendMessage(ctx, conv, senderID, recipientID, text, attachments)
}

// List returns the pair's messages oldest first. page <= 0 returns the whole
// history. It has no side effects and is safe to poll.
func (s *MessageService) List(ctx context.Context, participantA, participantB string, page, pageSize int) ([]models.Message, error) {
	if err := validateParticipants(participantA, participantB); err != nil {
		return nil, err
	}

	a, b := models.CanonicalPair(participantA, participantB)
	conv, err := s.conversations.findByPair(ctx, a, b)
	if errors.Is(err, models.ErrNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	query := s.DB.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conv.ID).
		Order("created_at asc")
	if page > 0 {
		offset, limit := pageBounds(page, pageSize, s.Options.MessagePageSize, s.Options.MaxPageSize)
		query = query.Offset(offset).Limit(limit)
	}

	messages := []models.Message{}
	if err := query.Find(&messages).Error; err != nil {
		return nil, storageError("list messages", err)
	}
	return messages, nil
}

// Delete soft-deletes a message. Only its sender or an administrator may do
// so; deleting an already deleted message returns it unchanged. The
// conversation's last message snippet is left as it was.
func (s *MessageService) Delete(ctx context.Context, messageID string, requester models.Identity) (*models.Message, error) {
	var msg models.Message
	if err := s.DB.WithContext(ctx).Preload("Sender").First(&msg, "id = ?", messageID).Error; err != nil {
		return nil, storageError("load message", err)
	}
	if msg.SenderID != requester.ID && !requester.IsPrivileged() {
		return nil, models.ErrForbidden
	}
	if msg.IsDeleted {
		return &msg, nil
	}

	res := s.DB.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND is_deleted = ?", msg.ID, false).
		Updates(map[string]interface{}{
			"is_deleted":  true,
			"content":     s.Options.DeletedPlaceholder,
			"attachments": datatypes.JSONSlice[string]{},
		})
	if res.Error != nil {
		return nil, storageError("delete message", res.Error)
	}

	msg.IsDeleted = true
	msg.Content = s.Options.DeletedPlaceholder
	msg.Attachments = datatypes.JSONSlice[string]{}

	if res.RowsAffected > 0 {
		metrics.MessagesDeleted.Inc()
		s.publish(ctx, events.Event{
			Type:           events.MessageDeleted,
			ConversationID: msg.ConversationID,
			ActorID:        requester.ID,
			MessageID:      msg.ID,
			OccurredAt:     s.Now(),
		})
	}
	return &msg, nil
}
