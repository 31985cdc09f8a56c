package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/longkey1/avcoach/internal/avatar"
)

const (
	newSessionPath   = "/v1/streaming.new"
	startSessionPath = "/v1/streaming.start"
	taskPath         = "/v1/streaming.task"
	stopSessionPath  = "/v1/streaming.stop"
)

// StreamingClient calls the streaming endpoints with a session token
type StreamingClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewStreamingClient creates a new StreamingClient
func NewStreamingClient(baseURL, token string, httpClient *http.Client) *StreamingClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &StreamingClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

type voiceSettings struct {
	VoiceID string  `json:"voice_id,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Emotion string  `json:"emotion,omitempty"`
}

type sttSettings struct {
	Provider string `json:"provider,omitempty"`
}

type newSessionRequest struct {
	Quality            string        `json:"quality,omitempty"`
	AvatarName         string        `json:"avatar_name"`
	KnowledgeBaseID    string        `json:"knowledge_base_id,omitempty"`
	Voice              voiceSettings `json:"voice"`
	Language           string        `json:"language,omitempty"`
	Version            string        `json:"version"`
	VoiceChatTransport string        `json:"voice_chat_transport,omitempty"`
	STTSettings        sttSettings   `json:"stt_settings"`
}

// SessionInfo describes a created streaming session
type SessionInfo struct {
	SessionID        string `json:"session_id"`
	URL              string `json:"url"`
	AccessToken      string `json:"access_token"`
	RealtimeEndpoint string `json:"realtime_endpoint"`
}

type sessionIDRequest struct {
	SessionID string `json:"session_id"`
}

type taskRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	TaskType  string `json:"task_type"`
	TaskMode  string `json:"task_mode"`
}

// TaskInfo is the provider's answer to a speak task
type TaskInfo struct {
	TaskID     string  `json:"task_id"`
	DurationMS float64 `json:"duration_ms"`
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (c *StreamingClient) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("error marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return do(c.httpClient, req, out)
}

// NewSession creates a streaming session for cfg
func (c *StreamingClient) NewSession(ctx context.Context, cfg avatar.StartConfig) (*SessionInfo, error) {
	var out envelope[SessionInfo]
	err := c.post(ctx, newSessionPath, newSessionRequest{
		Quality:         cfg.Quality,
		AvatarName:      cfg.AvatarID,
		KnowledgeBaseID: cfg.KnowledgeID,
		Voice: voiceSettings{
			VoiceID: cfg.Voice.VoiceID,
			Rate:    cfg.Voice.Rate,
			Emotion: cfg.Voice.Emotion,
		},
		Language:           cfg.Language,
		Version:            "v2",
		VoiceChatTransport: cfg.Transport,
		STTSettings:        sttSettings{Provider: cfg.STTProvider},
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("error creating streaming session: %w", err)
	}
	if out.Data.SessionID == "" {
		return nil, fmt.Errorf("no session id in response")
	}
	return &out.Data, nil
}

// StartSession begins streaming for sessionID
func (c *StreamingClient) StartSession(ctx context.Context, sessionID string) error {
	if err := c.post(ctx, startSessionPath, sessionIDRequest{SessionID: sessionID}, nil); err != nil {
		return fmt.Errorf("error starting streaming session: %w", err)
	}
	return nil
}

// Task asks the avatar to speak. In sync mode the provider answers once the avatar finished speaking.
func (c *StreamingClient) Task(ctx context.Context, sessionID string, req avatar.SpeakRequest) (*TaskInfo, error) {
	var out envelope[TaskInfo]
	err := c.post(ctx, taskPath, taskRequest{
		SessionID: sessionID,
		Text:      req.Text,
		TaskType:  string(req.Type),
		TaskMode:  string(req.Mode),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("error sending streaming task: %w", err)
	}
	return &out.Data, nil
}

// StopSession ends the streaming session
func (c *StreamingClient) StopSession(ctx context.Context, sessionID string) error {
	if err := c.post(ctx, stopSessionPath, sessionIDRequest{SessionID: sessionID}, nil); err != nil {
		return fmt.Errorf("error stopping streaming session: %w", err)
	}
	return nil
}
