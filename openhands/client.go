// Package openhands is a minimal client for the OpenHands conversation API.
// It covers the three operations the supervisor needs: creating a
// conversation, reading its status, and waiting until it is ready to accept
// work. The conversation lifecycle itself is owned by the remote service.
package openhands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Status is the lifecycle state the API reports for a conversation.
type Status string

const (
	StatusStarting Status = "STARTING"
	StatusReady    Status = "READY"
	StatusStopped  Status = "STOPPED"
	StatusError    Status = "ERROR"
)

// Conversation is the subset of the API's conversation resource the
// supervisor consumes.
type Conversation struct {
	ID         string `json:"conversation_id"`
	Status     Status `json:"status"`
	Title      string `json:"title,omitempty"`
	Repository string `json:"selected_repository,omitempty"`
}

// CreateRequest is the payload for creating a conversation.
type CreateRequest struct {
	Repository         string `json:"repository,omitempty"`
	InitialUserMessage string `json:"initial_user_msg,omitempty"`
}

// Config holds the client configuration. Credentials are passed here
// explicitly; the package keeps no global state.
type Config struct {
	BaseURL    string
	APIKey     string // optional; sent as a bearer token when set
	HTTPClient *http.Client
}

// APIError reports a non-2xx response from the conversation API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openhands: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client talks to one OpenHands deployment.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openhands: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

// Create starts a new conversation, optionally seeded with a repository and
// an initial user message.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Conversation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openhands: encode create request: %w", err)
	}

	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", bytes.NewReader(body), &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, fmt.Errorf("openhands: create response carried no conversation_id")
	}
	return &conv, nil
}

// Get fetches the current state of a conversation.
func (c *Client) Get(ctx context.Context, id string) (*Conversation, error) {
	if id == "" {
		return nil, fmt.Errorf("openhands: conversation id is required")
	}

	var conv Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+id, nil, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		conv.ID = id
	}
	return &conv, nil
}

// do issues one request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("openhands: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openhands: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("openhands: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("openhands: decode response: %w", err)
		}
	}
	return nil
}
