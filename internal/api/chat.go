package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
	"freightlink-client/pkg/errors"
)

// ChatClient talks to the conversation and message endpoints
type ChatClient struct {
	client *Client
}

// NewChatClient creates a chat API client
func NewChatClient(client *Client) *ChatClient {
	return &ChatClient{client: client}
}

// createConversationRequest is the POST /conversations payload.
// The backend is idempotent for the same participant pair.
type createConversationRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
}

// conversationsResponse wraps GET /conversations
type conversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// messagesResponse wraps a message page
type messagesResponse struct {
	Messages []domain.Message `json:"messages"`
}

// sendMessageRequest is the POST messages payload
type sendMessageRequest struct {
	Content string `json:"content"`
}

// CreateConversation requests a conversation with the target participant,
// returning the existing one when the pair already has a conversation
func (c *ChatClient) CreateConversation(ctx context.Context, participantID uuid.UUID) (*domain.ConversationSummary, error) {
	var summary domain.ConversationSummary
	err := c.client.do(ctx, http.MethodPost, "/conversations",
		createConversationRequest{ParticipantID: participantID}, &summary)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListConversations fetches the authoritative conversation summaries
func (c *ChatClient) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	var resp conversationsResponse
	if err := c.client.do(ctx, http.MethodGet, "/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetMessages fetches one page of messages for a conversation
func (c *ChatClient) GetMessages(ctx context.Context, conversationID uuid.UUID, page, limit int) ([]domain.Message, error) {
	var resp messagesResponse
	path := fmt.Sprintf("/conversations/%s/messages?page=%d&limit=%d", conversationID, page, limit)
	if err := c.client.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage submits a text message and returns the canonical entry
func (c *ChatClient) SendMessage(ctx context.Context, conversationID uuid.UUID, content string) (*domain.Message, error) {
	var message domain.Message
	path := fmt.Sprintf("/conversations/%s/messages", conversationID)
	if err := c.client.do(ctx, http.MethodPost, path, sendMessageRequest{Content: content}, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// SendMedia uploads a media payload as multipart form data and returns the
// canonical entry. There is no optimistic append for media; the caller
// appends only after this returns.
func (c *ChatClient) SendMedia(ctx context.Context, conversationID uuid.UUID, filename string, payload io.Reader) (*domain.Message, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("media", filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build multipart body", err)
	}
	if _, err := io.Copy(part, payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to copy media payload", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to finish multipart body", err)
	}

	path := fmt.Sprintf("/conversations/%s/media", conversationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.client.baseURL+path, &buf)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.client.authorize(req)

	resp, err := c.client.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, "media upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.client.decodeError(resp, http.MethodPost, path)
	}

	var message domain.Message
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRemote, "failed to decode media response", err)
	}
	return &message, nil
}
