// Package api implements the HTTP collaborator clients the real-time core
// talks to: call logs, conversations and messages, reactions, and profiles.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"freightlink-client/pkg/constants"
	"freightlink-client/pkg/errors"
	"freightlink-client/pkg/jwt"
)

// Client is the shared authenticated HTTP client under every collaborator
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates an authenticated API client
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: constants.DefaultTimeout},
		baseURL:    baseURL,
		token:      token,
	}
}

// NewClientWithHTTP creates a client with a caller-supplied http.Client,
// used by tests and by the media upload path with its longer timeout
func NewClientWithHTTP(baseURL, token string, httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
	}
}

// errorBody is the backend's error envelope
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues a JSON request and decodes a JSON response into out (if non-nil).
// Non-2xx responses are mapped to AppError carrying the HTTP status so the
// retry policy can distinguish definitive client errors from transient ones.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token != "" && jwt.IsTokenExpired(c.token) {
		return errors.New(errors.ErrCodeExpiredToken, "access token is expired")
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp, method, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(errors.ErrCodeRemote, "failed to decode response body", err)
		}
	}
	return nil
}

// authorize attaches the bearer token
func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeError maps a non-2xx response to an AppError
func (c *Client) decodeError(resp *http.Response, method, path string) error {
	message := fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)

	var envelope errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	return errors.FromStatusCode(resp.StatusCode, message)
}
