package services

import (
	"context"
	"errors"
	"strings"

	"github.com/anjiri1684/agency_messaging/events"
	"github.com/anjiri1684/agency_messaging/metrics"
	"github.com/anjiri1684/agency_messaging/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationService struct {
	Deps
}

func NewConversationService(deps Deps) *ConversationService {
	return &ConversationService{Deps: deps.withDefaults()}
}

type CreateConversationInput struct {
	InitiatorID       string
	RecipientID       string
	InitialMessage    string
	RelatedPropertyID *string
	RelatedEventID    *string
}

// ConversationView is a conversation as seen by one of its participants.
type ConversationView struct {
	models.Conversation
	ParticipantIDs   []string       `json:"participants"`
	UnreadCounts     map[string]int `json:"unread_counts"`
	OtherParticipant models.User    `json:"other_participant"`
	UnreadCount      int            `json:"unread_count"`
	HasRelatedItem   bool           `json:"has_related_item"`
}

func NewConversationView(conv *models.Conversation, viewerID string) ConversationView {
	otherID := conv.OtherParticipantID(viewerID)
	other := models.User{ID: otherID, Role: models.RoleVisitor}
	if p := conv.Participant(otherID); p != nil && p.User.ID != "" {
		other = p.User
	}
	counts := conv.UnreadCounts()
	return ConversationView{
		Conversation:     *conv,
		ParticipantIDs:   conv.ParticipantIDs(),
		UnreadCounts:     counts,
		OtherParticipant: other,
		UnreadCount:      counts[viewerID],
		HasRelatedItem:   conv.HasRelatedItem(),
	}
}

type ListConversationsInput struct {
	UserID   string
	Page     int
	PageSize int
	Status   models.ConversationStatus
}

type ConversationPage struct {
	Conversations      []ConversationView `json:"conversations"`
	TotalConversations int64              `json:"total_conversations"`
	TotalUnread        int64              `json:"total_unread"`
	Page               int                `json:"page"`
	PageSize           int                `json:"page_size"`
}

type Stats struct {
	ActiveConversations int64 `json:"active_conversations"`
	OutstandingUnread   int64 `json:"outstanding_unread"`
}

// CreateOrGet returns the conversation for the unordered pair, creating it on
// first contact. The initial message is only appended when the conversation
// is new; an existing conversation is returned untouched.
func (s *ConversationService) CreateOrGet(ctx context.Context, in CreateConversationInput) (*models.Conversation, error) {
	if err := validateParticipants(in.InitiatorID, in.RecipientID); err != nil {
		return nil, err
	}

	var initial string
	if strings.TrimSpace(in.InitialMessage) != "" {
		text, err := normalizeContent(in.InitialMessage, s.Options.MaxContentLength)
		if err != nil {
			return nil, err
		}
		initial = text
	}

	conv, created, err := s.findOrCreate(ctx, in.InitiatorID, in.RecipientID, in.RelatedPropertyID, in.RelatedEventID)
	if err != nil {
		return nil, err
	}
	if !created || initial == "" {
		return conv, nil
	}

	if _, err := s.appendMessage(ctx, conv, in.InitiatorID, in.RecipientID, initial, nil); err != nil {
		return nil, err
	}
	return s.load(ctx, conv.ID)
}

func (s *ConversationService) findOrCreate(ctx context.Context, initiatorID, recipientID string, propertyID, eventID *string) (*models.Conversation, bool, error) {
	a, b := models.CanonicalPair(initiatorID, recipientID)

	conv, err := s.findByPair(ctx, a, b)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	now := s.Now()
	created := false
	candidate := models.Conversation{
		ParticipantAID:    a,
		ParticipantBID:    b,
		Status:            models.StatusActive,
		RelatedPropertyID: propertyID,
		RelatedEventID:    eventID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&candidate)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another request created the pair first.
			return nil
		}
		created = true
		participants := []models.ConversationParticipant{
			{ConversationID: candidate.ID, UserID: a},
			{ConversationID: candidate.ID, UserID: b},
		}
		return tx.Omit(clause.Associations).Create(&participants).Error
	})
	if err != nil {
		return nil, false, storageError("create conversation", err)
	}

	if created {
		metrics.ConversationsCreated.Inc()
		s.publish(ctx, events.Event{
			Type:           events.ConversationCreated,
			ConversationID: candidate.ID,
			ActorID:        initiatorID,
			RecipientID:    recipientID,
			OccurredAt:     now,
		})
	}

	conv, err = s.findByPair(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

func (s *ConversationService) findByPair(ctx context.Context, a, b string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Preload("Participants.User").
		Where("participant_a_id = ? AND participant_b_id = ?", a, b).
		First(&conv).Error
	if err != nil {
		return nil, storageError("find conversation", err)
	}
	return &conv, nil
}

func (s *ConversationService) load(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.WithContext(ctx).
		Preload("Participants.User").
		First(&conv, "id = ?", conversationID).Error
	if err != nil {
		return nil, storageError("load conversation", err)
	}
	return &conv, nil
}

// loadForMember loads a conversation and checks userID belongs to it.
func (s *ConversationService) loadForMember(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, models.ErrNotAParticipant
	}
	return conv, nil
}

// appendMessage stores a message and applies its effects on the conversation
// in one transaction: the snippet and timestamp move forward only, and the
// recipient's counter is bumped with an atomic increment.
func (s *ConversationService) appendMessage(ctx context.Context, conv *models.Conversation, senderID, recipientID, content string, attachments []string) (*models.Message, error) {
	now := s.Now()
	if attachments == nil {
		attachments = []string{}
	}
	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        content,
		Attachments:    attachments,
		CreatedAt:      now,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return err
		}
		err := tx.Model(&models.Conversation{}).
			Where("id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", conv.ID, now).
			Updates(map[string]interface{}{
				"last_message":    content,
				"last_message_at": now,
				"updated_at":      now,
			}).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.ConversationParticipant{}).
			Where("conversation_id = ? AND user_id = ?", conv.ID, recipientID).
			UpdateColumn("unread_count", gorm.Expr("unread_count + ?", 1)).Error
	})
	if err != nil {
		return nil, storageError("append message", err)
	}

	var sender models.User
	res := s.DB.WithContext(ctx).Limit(1).Find(&sender, "id = ?", senderID)
	if res.Error != nil {
		return nil, storageError("load sender", res.Error)
	}
	if res.RowsAffected == 0 {
		sender = models.User{ID: senderID, Role: models.RoleVisitor}
	}
	msg.Sender = &sender

	metrics.MessagesSent.Inc()
	s.publish(ctx, events.Event{
		Type:           events.MessageSent,
		ConversationID: conv.ID,
		ActorID:        senderID,
		RecipientID:    recipientID,
		MessageID:      msg.ID,
		OccurredAt:     now,
	})
	return &msg, nil
}

// Get returns a conversation the caller participates in.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	return s.loadForMember(ctx, conversationID, userID)
}

// List pages through the caller's conversations with the given status, most
// recently active first. TotalUnread always covers active conversations only.
func (s *ConversationService) List(ctx context.Context, in ListConversationsInput) (*ConversationPage, error) {
	status := in.Status
	if status == "" {
		status = models.StatusActive
	}
	if !status.Valid() {
		return nil, models.ErrInvalidStatus
	}

	member := func(db *gorm.DB) *gorm.DB {
		return db.Where("(participant_a_id = ? OR participant_b_id = ?) AND status = ?", in.UserID, in.UserID, status)
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Conversation{}).Scopes(member).Count(&total).Error; err != nil {
		return nil, storageError("count conversations", err)
	}

	offset, limit := pageBounds(in.Page, in.PageSize, s.Options.DefaultPageSize, s.Options.MaxPageSize)
	var conversations []models.Conversation
	err := s.DB.WithContext(ctx).
		Scopes(member).
		Preload("Participants.User").
		Order("last_message_at IS NULL, last_message_at DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, storageError("list conversations", err)
	}

	unread, err := s.UnreadCount(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(conversations))
	for i := range conversations {
		views = append(views, NewConversationView(&conversations[i], in.UserID))
	}
	return &ConversationPage{
		Conversations:      views,
		TotalConversations: total,
		TotalUnread:        unread,
		Page:               offset/limit + 1,
		PageSize:           limit,
	}, nil
}

// UnreadCount sums the user's counters over active conversations.
func (s *ConversationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.DB.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Joins("JOIN conversations ON conversations.id = conversation_participants.conversation_id").
		Where("conversation_participants.user_id = ? AND conversations.status = ?", userID, models.StatusActive).
		Select("COALESCE(SUM(conversation_participants.unread_count), 0)").
		Row().Scan(&total)
	if err != nil {
		return 0, storageError("count unread", err)
	}
	return total, nil
}

// MarkAsRead zeroes the caller's unread counter. Calling it again is a no-op.
func (s *ConversationService) MarkAsRead(ctx context.Context, conversationID, userID string) error {
	if _, err := s.loadForMember(ctx, conversationID, userID); err != nil {
		return err
	}

	res := s.DB.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND unread_count <> 0", conversationID, userID).
		UpdateColumn("unread_count", 0)
	if res.Error != nil {
		return storageError("mark conversation read", res.Error)
	}
	if res.RowsAffected > 0 {
		s.publish(ctx, events.Event{
			Type:           events.ConversationRead,
			ConversationID: conversationID,
			ActorID:        userID,
			OccurredAt:     s.Now(),
		})
	}
	return nil
}

// Archive moves the conversation to archived for both participants.
func (s *ConversationService) Archive(ctx context.Context, conversationID, userID string) error {
	if _, err := s.loadForMember(ctx, conversationID, userID); err != nil {
		return err
	}

	now := s.Now()
	res := s.DB.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ? AND status <> ?", conversationID, models.StatusArchived).
		Updates(map[string]interface{}{"status": models.StatusArchived, "updated_at": now})
	if res.Error != nil {
		return storageError("archive conversation", res.Error)
	}
	if res.RowsAffected > 0 {
		s.publish(ctx, events.Event{
			Type:           events.ConversationArchived,
			ConversationID: conversationID,
			ActorID:        userID,
			OccurredAt:     now,
		})
	}
	return nil
}

// Stats feeds the operational gauges.
func (s *ConversationService) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.DB.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("status = ?", models.StatusActive).
		Count(&stats.ActiveConversations).Error
	if err != nil {
		return stats, storageError("count active conversations", err)
	}
	err = s.DB.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Joins("JOIN conversations ON conversations.id = conversation_participants.conversation_id").
		Where("conversations.status = ?", models.StatusActive).
		Select("COALESCE(SUM(conversation_participants.unread_count), 0)").
		Row().Scan(&stats.OutstandingUnread)
	if err != nil {
		return stats, storageError("sum unread", err)
	}
	return stats, nil
}
