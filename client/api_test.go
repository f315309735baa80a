package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/agency_messaging/client"
	config "github.com/anjiri1684/agency_messaging/configs"
	"github.com/anjiri1684/agency_messaging/database/dbtest"
	"github.com/anjiri1684/agency_messaging/handlers"
	"github.com/anjiri1684/agency_messaging/middleware"
	"github.com/anjiri1684/agency_messaging/models"
	"github.com/anjiri1684/agency_messaging/routes"
	"github.com/anjiri1684/agency_messaging/services"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "client-secret"

func newServer(t *testing.T) *httptest.Server {
	db := dbtest.Open(t)
	conversations := services.NewConversationService(services.Deps{DB: db})
	h := handlers.NewMessagingHandler(conversations, services.NewMessageService(conversations))

	app := routes.NewApp(config.Default().Server)
	routes.MessagingRoutes(app, h, middleware.Protected(secret), middleware.Identify(services.NewUserService(db)))

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return srv
}

func apiFor(t *testing.T, srv *httptest.Server, userID string) *client.API {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"full_name": "User " + userID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return client.NewAPI(srv.URL, signed, 5*time.Second)
}

func TestAPIRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	alice, bob := apiFor(t, srv, "u1"), apiFor(t, srv, "u2")

	conv, err := alice.CreateOrGetConversation(ctx, client.CreateConversationParams{RecipientID: "u2", InitialMessage: "Bonjour"})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", conv.LastMessage)
	assert.Equal(t, 1, conv.UnreadCounts["u2"])

	count, err := bob.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	sent, err := bob.SendMessage(ctx, "u1", "Salut", nil)
	require.NoError(t, err)
	assert.Equal(t, "u2", sent.SenderID)

	history, err := alice.GetMessages(ctx, "u2", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Bonjour", history[0].Content)

	require.NoError(t, bob.MarkAsRead(ctx, conv.ID))
	page, err := bob.ListConversations(ctx, 1, 10, models.StatusActive)
	require.NoError(t, err)
	require.Len(t, page.Conversations, 1)
	assert.Zero(t, page.Conversations[0].UnreadCount)

	deleted, err := bob.DeleteMessage(ctx, sent.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	require.NoError(t, alice.Archive(ctx, conv.ID))
	fetched, err := alice.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, fetched.Status)
}

func TestAPIErrorsUnwrapToSentinels(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	alice, eve := apiFor(t, srv, "u1"), apiFor(t, srv, "u3")

	_, err := alice.SendMessage(ctx, "u1", "hi me", nil)
	assert.ErrorIs(t, err, models.ErrInvalidParticipants)

	_, err = alice.SendMessage(ctx, "u2", "   ", nil)
	assert.ErrorIs(t, err, models.ErrInvalidContent)

	sent, err := alice.SendMessage(ctx, "u2", "hello", nil)
	require.NoError(t, err)

	_, err = eve.GetConversation(ctx, sent.ConversationID)
	assert.ErrorIs(t, err, models.ErrNotAParticipant)

	_, err = eve.DeleteMessage(ctx, sent.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = alice.DeleteMessage(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAPITransientFailures(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	_, err := client.NewAPI(down.URL, "", time.Second).GetMessages(context.Background(), "u2", 0)
	assert.ErrorIs(t, err, models.ErrTransientIO)

	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()
	_, err = client.NewAPI(unreachable.URL, "", time.Second).GetMessages(context.Background(), "u2", 0)
	assert.ErrorIs(t, err, models.ErrTransientIO)
}

func TestSynchronizerAgainstServer(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	alice, bob := apiFor(t, srv, "u1"), apiFor(t, srv, "u2")

	conv, err := alice.CreateOrGetConversation(ctx, client.CreateConversationParams{RecipientID: "u2", InitialMessage: "first"})
	require.NoError(t, err)

	scroll := client.NewScrollController("u2", nil)
	sync := client.NewSynchronizer(bob, scroll, time.Hour)
	defer sync.Close()

	session, initial, err := sync.Open(ctx, conv.ID, "u1")
	require.NoError(t, err)
	scroll.Mount(initial)

	count, err := bob.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	scroll.Scrolled(client.Viewport{ScrollTop: 0, ClientHeight: 400, ScrollHeight: 2000})
	_, err = alice.SendMessage(ctx, "u2", "second", nil)
	require.NoError(t, err)
	session.Poll(ctx)

	assert.Equal(t, client.ScrollState{Mode: client.ScrolledUp, UnreadSinceLeft: 1, PreviousCount: 2}, scroll.State())
	count, err = bob.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
