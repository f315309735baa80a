package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/anjiri1684/agency_messaging/configs"
	"github.com/anjiri1684/agency_messaging/database/dbtest"
	"github.com/anjiri1684/agency_messaging/handlers"
	"github.com/anjiri1684/agency_messaging/middleware"
	"github.com/anjiri1684/agency_messaging/models"
	"github.com/anjiri1684/agency_messaging/routes"
	"github.com/anjiri1684/agency_messaging/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "handler-secret"

type api struct {
	t   *testing.T
	app *fiber.App
}

func newAPI(t *testing.T) *api {
	db := dbtest.Open(t)
	users := services.NewUserService(db)
	conversations := services.NewConversationService(services.Deps{DB: db})
	h := handlers.NewMessagingHandler(conversations, services.NewMessageService(conversations))

	app := routes.NewApp(config.Default().Server)
	routes.PublicRoutes(app, config.MetricsConfig{})
	routes.MessagingRoutes(app, h, middleware.Protected(secret), middleware.Identify(users))
	return &api{t: t, app: app}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"role":      role,
		"full_name": "User " + userID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (a *api) do(method, path, userID string, body interface{}, out interface{}) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		role := models.RoleVisitor
		if userID == "admin" {
			role = models.RoleAdmin
		}
		req.Header.Set("Authorization", "Bearer "+token(a.t, userID, role))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type conversationJSON struct {
	ID               string         `json:"id"`
	Status           string         `json:"status"`
	LastMessage      string         `json:"last_message"`
	Participants     []string       `json:"participants"`
	UnreadCounts     map[string]int `json:"unread_counts"`
	UnreadCount      int            `json:"unread_count"`
	HasRelatedItem   bool           `json:"has_related_item"`
	RelatedProperty  *string        `json:"related_property"`
	OtherParticipant struct {
		ID       string `json:"id"`
		FullName string `json:"full_name"`
	} `json:"other_participant"`
}

func TestConversationLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)

	var conv conversationJSON
	status := a.do(http.MethodPost, "/api/v1/conversations", "u1", fiber.Map{
		"recipient_id":     "u2",
		"initial_message":  "Bonjour",
		"related_property": "prop-9",
	}, &conv)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", conv.Status)
	assert.Equal(t, "Bonjour", conv.LastMessage)
	assert.ElementsMatch(t, []string{"u1", "u2"}, conv.Participants)
	assert.Equal(t, 1, conv.UnreadCounts["u2"])
	assert.Equal(t, 0, conv.UnreadCount)
	assert.True(t, conv.HasRelatedItem)

	var again conversationJSON
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/api/v1/conversations", "u2", fiber.Map{"recipient_id": "u1"}, &again))
	assert.Equal(t, conv.ID, again.ID)
	assert.Equal(t, "User u1", again.OtherParticipant.FullName)

	var page struct {
		Conversations      []conversationJSON `json:"conversations"`
		TotalConversations int64              `json:"total_conversations"`
		TotalUnread        int64              `json:"total_unread"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/conversations?status=active", "u2", nil, &page))
	assert.Equal(t, int64(1), page.TotalUnread)
	assert.Equal(t, int64(1), page.TotalConversations)

	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/conversations/unread-count", "u2", nil, &unread))
	assert.Equal(t, int64(1), unread.UnreadCount)

	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/v1/conversations/"+conv.ID+"/read", "u2", nil, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/v1/conversations/"+conv.ID+"/read", "u2", nil, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/conversations/unread-count", "u2", nil, &unread))
	assert.Zero(t, unread.UnreadCount)

	var fetched conversationJSON
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/conversations/"+conv.ID, "u1", nil, &fetched))
	assert.Equal(t, conv.ID, fetched.ID)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/v1/conversations/"+conv.ID, "u3", nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/conversations/nope", "u1", nil, nil))

	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/api/v1/conversations/"+conv.ID+"/archive", "u1", nil, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/conversations?status=archived", "u2", nil, &page))
	require.Len(t, page.Conversations, 1)
	assert.Equal(t, "archived", page.Conversations[0].Status)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/v1/conversations?status=spam", "u2", nil, nil))
}

func TestCreateConversationValidation(t *testing.T) {
	a := newAPI(t)

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/conversations", "u1", fiber.Map{"recipient_id": "u1"}, &body))
	assert.Contains(t, body["error"], "two distinct participants")
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/conversations", "u1", fiber.Map{}, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/conversations", "", fiber.Map{"recipient_id": "u2"}, nil))
}

func TestMessagesOverHTTP(t *testing.T) {
	a := newAPI(t)

	var sent models.Message
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/messages", "u1", fiber.Map{
		"recipient_user_id": "u2",
		"content":           "Is the flat still available?",
		"attachments":       []string{"https://cdn.example/question.png"},
	}, &sent))
	assert.Equal(t, "u1", sent.SenderID)
	require.NotNil(t, sent.Sender)
	assert.Equal(t, "User u1", sent.Sender.FullName)

	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/messages", "u2", fiber.Map{
		"recipient_user_id": "u1",
		"content":           "Yes, visits on Saturday.",
	}, nil))

	var history []models.Message
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/messages/u1", "u2", nil, &history))
	require.Len(t, history, 2)
	assert.Equal(t, sent.ID, history[0].ID)
	assert.Equal(t, []string{"https://cdn.example/question.png"}, []string(history[0].Attachments))

	var firstPage []models.Message
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/messages/u2?page=1&page_size=1", "u1", nil, &firstPage))
	require.Len(t, firstPage, 1)
	assert.Equal(t, sent.ID, firstPage[0].ID)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/v1/messages", "u1", fiber.Map{"recipient_user_id": "u2", "content": "   "}, nil))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodDelete, "/api/v1/messages/"+sent.ID, "u2", nil, nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/v1/messages/missing", "u1", nil, nil))

	var deleted struct {
		Data models.Message `json:"data"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/api/v1/messages/"+sent.ID, "u1", nil, &deleted))
	assert.True(t, deleted.Data.IsDeleted)
	assert.Equal(t, models.DefaultDeletedPlaceholder, deleted.Data.Content)
	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, "/api/v1/messages/"+sent.ID, "admin", nil, nil))

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/messages/u2", "u1", nil, &history))
	require.Len(t, history, 2)
	assert.True(t, history[0].IsDeleted)
	assert.Empty(t, history[0].Attachments)
}

func TestAdminStats(t *testing.T) {
	a := newAPI(t)
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/v1/messages", "u1", fiber.Map{"recipient_user_id": "u2", "content": "hi"}, nil))

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/v1/admin/messaging/stats", "u1", nil, nil))

	var stats services.Stats
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/admin/messaging/stats", "admin", nil, &stats))
	assert.Equal(t, int64(1), stats.ActiveConversations)
	assert.Equal(t, int64(1), stats.OutstandingUnread)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	var body map[string]string
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
