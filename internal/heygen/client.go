// Package heygen talks to the streaming-avatar provider: the API-key endpoints
// used by the server (session tokens, video generation) and the session-token
// endpoints and realtime channel used by an avatar connection.
package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	ProviderName   = "heygen"
	DefaultBaseURL = "https://api.heygen.com"

	createTokenPath   = "/v1/streaming.create_token"
	generateVideoPath = "/v1/video/generate"

	maxErrorBody = 4 << 10
)

// Config defines the configuration the client reads on every call
type Config interface {
	GetBaseURL(upstream string) (string, error)
	GetToken(upstream string) (string, error)
}

// APIError is a non-2xx answer from the provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("heygen API error (status %d): %s", e.StatusCode, e.Body)
}

// Client calls the provider endpoints authenticated with the long-lived API key
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Client
func NewClient(config Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

func (c *Client) endpoint(path string) (string, string, error) {
	apiKey, err := c.config.GetToken(ProviderName)
	if err != nil {
		return "", "", err
	}
	baseURL, err := c.config.GetBaseURL(ProviderName)
	if err != nil {
		baseURL = DefaultBaseURL
	}
	return baseURL + path, apiKey, nil
}

type tokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// CreateToken exchanges the API key for a short-lived streaming session token
func (c *Client) CreateToken(ctx context.Context) (string, error) {
	url, apiKey, err := c.endpoint(createTokenPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out tokenResponse
	if err := do(c.httpClient, req, &out); err != nil {
		return "", err
	}
	if out.Data.Token == "" {
		return "", fmt.Errorf("no token in response")
	}
	return out.Data.Token, nil
}

// VideoRequest is the input of GenerateVideo
type VideoRequest struct {
	AvatarID string          `json:"avatar_id"`
	Text     string          `json:"text"`
	Voice    json.RawMessage `json:"voice,omitempty"`
}

// GenerateVideo submits a video generation job and returns the provider's JSON answer unchanged
func (c *Client) GenerateVideo(ctx context.Context, video VideoRequest) (json.RawMessage, error) {
	url, apiKey, err := c.endpoint(generateVideoPath)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(video)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out json.RawMessage
	if err := do(c.httpClient, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do sends req and decodes a 2xx JSON body into out. Other statuses become *APIError.
func do(httpClient *http.Client, req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
