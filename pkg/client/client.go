package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"hudcast/internal/core/domain"
)

// Client is a typed HTTP client for the hudcast API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetToken sets the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

type stateResponse struct {
	State *domain.StreamState `json:"state"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// State fetches the authoritative ownership record.
func (c *Client) State(ctx context.Context) (*domain.StreamState, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/stream", nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) Adopt(ctx context.Context) (*domain.StreamState, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/stream/adopt", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/stream/heartbeat", struct{}{}, nil)
}

func (c *Client) SetLive(ctx context.Context, live bool) (*domain.StreamState, error) {
	var resp stateResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/stream/live", map[string]bool{"isLive": live}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) Release(ctx context.Context) (*domain.StreamState, error) {
	var resp stateResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/stream/release", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) RequestTakeover(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/stream/request", struct{}{}, nil)
}

func (c *Client) RespondToRequest(ctx context.Context, accept bool, toUserID domain.UserID) (*domain.StreamState, error) {
	var resp stateResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/stream/respond", map[string]interface{}{
		"accept":   accept,
		"toUserId": string(toUserID),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.State, nil
}

// PendingRequest returns the outstanding takeover request, or nil.
func (c *Client) PendingRequest(ctx context.Context) (*domain.PendingRequest, error) {
	var resp struct {
		Pending *domain.PendingRequest `json:"pendingRequest"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/stream/request", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Pending, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Code: apiErr.Error, Message: apiErr.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Code: "UNKNOWN", Message: string(data)}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
