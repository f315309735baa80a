package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/anjiri1684/agency_messaging/middleware"
	"github.com/anjiri1684/agency_messaging/models"
	"github.com/anjiri1684/agency_messaging/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

type MessagingHandler struct {
	conversations *services.ConversationService
	messages      *services.MessageService
}

func NewMessagingHandler(conversations *services.ConversationService, messages *services.MessageService) *MessagingHandler {
	return &MessagingHandler{conversations: conversations, messages: messages}
}

type CreateConversationRequest struct {
	RecipientID     string  `json:"recipient_id" validate:"required,max=64"`
	InitialMessage  string  `json:"initial_message,omitempty"`
	RelatedProperty *string `json:"related_property,omitempty" validate:"omitempty,max=64"`
	RelatedEvent    *string `json:"related_event,omitempty" validate:"omitempty,max=64"`
}

type SendMessageRequest struct {
	RecipientUserID string   `json:"recipient_user_id" validate:"required,max=64"`
	Content         string   `json:"content"`
	Attachments     []string `json:"attachments,omitempty" validate:"omitempty,max=10,dive,required,max=2048"`
}

func (h *MessagingHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	var req CreateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	conv, err := h.conversations.CreateOrGet(c.UserContext(), services.CreateConversationInput{
		InitiatorID:       me.ID,
		RecipientID:       req.RecipientID,
		InitialMessage:    req.InitialMessage,
		RelatedPropertyID: req.RelatedProperty,
		RelatedEventID:    req.RelatedEvent,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services.NewConversationView(conv, me.ID))
}

func (h *MessagingHandler) GetUserConversations(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "0"))

	result, err := h.conversations.List(c.UserContext(), services.ListConversationsInput{
		UserID:   me.ID,
		Page:     page,
		PageSize: pageSize,
		Status:   models.ConversationStatus(c.Query("status", string(models.StatusActive))),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *MessagingHandler) GetConversation(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	conv, err := h.conversations.Get(c.UserContext(), c.Params("conversationId"), me.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(services.NewConversationView(conv, me.ID))
}

func (h *MessagingHandler) ArchiveConversation(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	if err := h.conversations.Archive(c.UserContext(), c.Params("conversationId"), me.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Conversation archived"})
}

func (h *MessagingHandler) MarkConversationRead(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	if err := h.conversations.MarkAsRead(c.UserContext(), c.Params("conversationId"), me.ID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Conversation marked as read"})
}

func (h *MessagingHandler) GetUnreadCount(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	count, err := h.conversations.UnreadCount(c.UserContext(), me.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

func (h *MessagingHandler) SendMessage(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	msg, err := h.messages.Send(c.UserContext(), me.ID, req.RecipientUserID, req.Content, req.Attachments)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *MessagingHandler) GetMessages(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	page, _ := strconv.Atoi(c.Query("page", "0"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "0"))

	messages, err := h.messages.List(c.UserContext(), me.ID, c.Params("otherUserId"), page, pageSize)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

func (h *MessagingHandler) DeleteMessage(c *fiber.Ctx) error {
	me := middleware.CurrentIdentity(c)

	msg, err := h.messages.Delete(c.UserContext(), c.Params("messageId"), me)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted", "data": msg})
}

func (h *MessagingHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.conversations.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// respondError maps the messaging error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidParticipants),
		errors.Is(err, models.ErrInvalidContent),
		errors.Is(err, models.ErrInvalidStatus):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotAParticipant), errors.Is(err, models.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrTransientIO):
		log.Printf("🔥 %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Service temporarily unavailable, please try again",
			"code":  models.ErrorCode(err),
		})
	default:
		return err
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error(), "code": models.ErrorCode(err)})
}
