package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
)

// ReactionClient submits reaction toggles.
// One endpoint per post kind; the request shape is identical.
type ReactionClient struct {
	client *Client
}

// NewReactionClient creates a reaction API client
func NewReactionClient(client *Client) *ReactionClient {
	return &ReactionClient{client: client}
}

// reactRequest is the PUT /{kind}/{postId}/react payload
type reactRequest struct {
	ReactionType string `json:"reaction_type"`
}

// React toggles the current user's like on a post. The backend treats the
// request as an idempotent intent: it applies whichever state the user
// settled on, not a blind increment.
func (c *ReactionClient) React(ctx context.Context, kind domain.PostKind, postID uuid.UUID) error {
	path := fmt.Sprintf("/%s/%s/react", kind, postID)
	return c.client.do(ctx, http.MethodPut, path, reactRequest{ReactionType: "like"}, nil)
}
