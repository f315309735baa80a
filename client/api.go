package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anjiri1684/agency_messaging/models"
	"github.com/anjiri1684/agency_messaging/services"
)

// APIError is a non-2xx response from the messaging API. It unwraps to the
// matching models sentinel so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messaging api: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if err := models.ErrorForCode(e.Code); err != nil {
		return err
	}
	switch {
	case e.StatusCode == http.StatusNotFound:
		return models.ErrNotFound
	case e.StatusCode == http.StatusForbidden:
		return models.ErrForbidden
	case e.StatusCode >= 500:
		return models.ErrTransientIO
	}
	return nil
}

// API is a thin client for the /api/v1 messaging routes.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPI(baseURL, token string, timeout time.Duration) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type CreateConversationParams struct {
	RecipientID     string  `json:"recipient_id"`
	InitialMessage  string  `json:"initial_message,omitempty"`
	RelatedProperty *string `json:"related_property,omitempty"`
	RelatedEvent    *string `json:"related_event,omitempty"`
}

func (a *API) CreateOrGetConversation(ctx context.Context, params CreateConversationParams) (*services.ConversationView, error) {
	var view services.ConversationView
	if err := a.do(ctx, http.MethodPost, "/api/v1/conversations", params, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (a *API) ListConversations(ctx context.Context, page, pageSize int, status models.ConversationStatus) (*services.ConversationPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	if status != "" {
		q.Set("status", string(status))
	}
	path := "/api/v1/conversations"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result services.ConversationPage
	if err := a.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *API) GetConversation(ctx context.Context, conversationID string) (*services.ConversationView, error) {
	var view services.ConversationView
	if err := a.do(ctx, http.MethodGet, "/api/v1/conversations/"+url.PathEscape(conversationID), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (a *API) UnreadCount(ctx context.Context) (int64, error) {
	var body struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/v1/conversations/unread-count", nil, &body); err != nil {
		return 0, err
	}
	return body.UnreadCount, nil
}

func (a *API) MarkAsRead(ctx context.Context, conversationID string) error {
	return a.do(ctx, http.MethodPut, "/api/v1/conversations/"+url.PathEscape(conversationID)+"/read", nil, nil)
}

func (a *API) Archive(ctx context.Context, conversationID string) error {
	return a.do(ctx, http.MethodPut, "/api/v1/conversations/"+url.PathEscape(conversationID)+"/archive", nil, nil)
}

func (a *API) SendMessage(ctx context.Context, recipientID, content string, attachments []string) (*models.Message, error) {
	body := map[string]interface{}{
		"recipient_user_id": recipientID,
		"content":           content,
		"attachments":       attachments,
	}
	var msg models.Message
	if err := a.do(ctx, http.MethodPost, "/api/v1/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessages fetches the history with otherUserID. page 0 asks for all of it.
func (a *API) GetMessages(ctx context.Context, otherUserID string, page int) ([]models.Message, error) {
	path := "/api/v1/messages/" + url.PathEscape(otherUserID)
	if page > 0 {
		path += "?page=" + strconv.Itoa(page)
	}
	messages := []models.Message{}
	if err := a.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (a *API) DeleteMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var body struct {
		Data models.Message `json:"data"`
	}
	if err := a.do(ctx, http.MethodDelete, "/api/v1/messages/"+url.PathEscape(messageID), nil, &body); err != nil {
		return nil, err
	}
	return &body.Data, nil
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, models.ErrTransientIO, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if raw, _ := io.ReadAll(resp.Body); json.Unmarshal(raw, &payload) == nil {
			apiErr.Code = payload.Code
			if payload.Error != "" {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: failed to decode response: %w", method, path, models.ErrTransientIO, err)
	}
	return nil
}
