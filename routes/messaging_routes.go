package routes

import (
	"github.com/anjiri1684/agency_messaging/handlers"
	"github.com/anjiri1684/agency_messaging/middleware"
	"github.com/gofiber/fiber/v2"
)

// MessagingRoutes mounts the conversation API. guards run before every route
// and must leave the caller identity in the context.
func MessagingRoutes(app *fiber.App, h *handlers.MessagingHandler, guards ...fiber.Handler) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", guards...)
	conversations.Get("", h.GetUserConversations)
	conversations.Post("", h.CreateOrGetConversation)
	conversations.Get("/unread-count", h.GetUnreadCount)
	conversations.Get("/:conversationId", h.GetConversation)
	conversations.Put("/:conversationId/archive", h.ArchiveConversation)
	conversations.Put("/:conversationId/read", h.MarkConversationRead)

	messages := api.Group("/messages", guards...)
	messages.Post("", h.SendMessage)
	messages.Get("/:otherUserId", h.GetMessages)
	messages.Delete("/:messageId", h.DeleteMessage)

	adminGuards := make([]fiber.Handler, 0, len(guards)+1)
	adminGuards = append(adminGuards, guards...)
	adminGuards = append(adminGuards, middleware.AdminRequired())
	admin := api.Group("/admin/messaging", adminGuards...)
	admin.Get("/stats", h.GetStats)
}
