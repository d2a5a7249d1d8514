// Package client is the SDK for talking to a mindgleam server. It owns
// identity and balance state, the active chat session, and the demo
// message counter, exposing them to a presentation layer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Client is the HTTP transport shared by the provider and the chat
// manager. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithAccessToken sets the initial bearer token.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAccessToken replaces the bearer token used on subsequent requests.
// An empty token sends requests anonymously.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// do issues one JSON request. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Server errors carry {"message": ...}; fall back to the status.
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &payload); err == nil {
			if payload.Message != "" {
				apiErr.Message = payload.Message
			} else if payload.Error != "" {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}
	return nil
}

// User is the signed-in profile as the server reports it.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Balance mirrors the server's credit counts.
type Balance struct {
	Messages     int32 `json:"messages_remaining"`
	MoodCheckins int32 `json:"mood_checkins_remaining"`
	UpdatedTs    int64 `json:"updated_ts"`
}

// InstanceStatus is what /api/status reports.
type InstanceStatus struct {
	Version          string `json:"version"`
	Mode             string `json:"mode"`
	AIEnabled        bool   `json:"ai_enabled"`
	SignInEnabled    bool   `json:"sign_in_enabled"`
	CheckoutEnabled  bool   `json:"checkout_enabled"`
	DemoMessageLimit int    `json:"demo_message_limit"`
}

// GetStatus fetches the instance capabilities.
func (c *Client) GetStatus(ctx context.Context) (*InstanceStatus, error) {
	status := &InstanceStatus{}
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, status); err != nil {
		return nil, err
	}
	return status, nil
}
