package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"freightlink-client/internal/domain"
)

// ProfileClient resolves user ids to human-readable profiles
type ProfileClient struct {
	client *Client
}

// NewProfileClient creates a profile API client
func NewProfileClient(client *Client) *ProfileClient {
	return &ProfileClient{client: client}
}

// Get fetches the profile for a user id
func (c *ProfileClient) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	var profile domain.Profile
	path := fmt.Sprintf("/profiles/%s", userID)
	if err := c.client.do(ctx, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
