package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
)

// CallLogClient mutates the durable call log owned by the backend
type CallLogClient struct {
	client *Client
}

// NewCallLogClient creates a call log client
func NewCallLogClient(client *Client) *CallLogClient {
	return &CallLogClient{client: client}
}

// createCallLogRequest is the POST /call-logs payload
type createCallLogRequest struct {
	ReceiverID uuid.UUID            `json:"receiver_id"`
	CallType   domain.MediaKind     `json:"call_type"`
	Status     domain.CallLogStatus `json:"status"`
}

// createCallLogResponse carries the new record id
type createCallLogResponse struct {
	ID uuid.UUID `json:"id"`
}

// updateCallLogRequest is the PUT /call-logs/{id} payload
type updateCallLogRequest struct {
	Status   domain.CallLogStatus `json:"status"`
	Duration *int                 `json:"duration,omitempty"`
	EndedAt  *time.Time           `json:"ended_at,omitempty"`
}

// Create opens a call log record in status "connecting" and returns its id
func (c *CallLogClient) Create(ctx context.Context, receiverID uuid.UUID, callType domain.MediaKind) (uuid.UUID, error) {
	var resp createCallLogResponse
	err := c.client.do(ctx, http.MethodPost, "/call-logs", createCallLogRequest{
		ReceiverID: receiverID,
		CallType:   callType,
		Status:     domain.CallLogConnecting,
	}, &resp)
	if err != nil {
		return uuid.Nil, err
	}
	return resp.ID, nil
}

// UpdateStatus marks a call log answered without a duration
func (c *CallLogClient) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.CallLogStatus) error {
	return c.client.do(ctx, http.MethodPut, fmt.Sprintf("/call-logs/%s", id),
		updateCallLogRequest{Status: status}, nil)
}

// Finalize persists the terminal outcome of a call
func (c *CallLogClient) Finalize(ctx context.Context, id uuid.UUID, outcome domain.CallOutcome) error {
	duration := outcome.Duration
	endedAt := outcome.EndedAt
	return c.client.do(ctx, http.MethodPut, fmt.Sprintf("/call-logs/%s", id),
		updateCallLogRequest{
			Status:   outcome.Status,
			Duration: &duration,
			EndedAt:  &endedAt,
		}, nil)
}
