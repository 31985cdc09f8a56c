package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubConfig struct {
	baseURL string
	token   string
}

func (c stubConfig) GetBaseURL(upstream string) (string, error) {
	if c.baseURL == "" {
		return "", errors.New("no base url")
	}
	return c.baseURL, nil
}

func (c stubConfig) GetToken(upstream string) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("token for %s is not set", upstream)
	}
	return c.token, nil
}

func TestOpenAIComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hi, I'm your coach."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 6, "total_tokens": 18}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAI(stubConfig{baseURL: srv.URL + "/v1", token: "sk-test"}, "", srv.Client())
	res, err := p.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hello"},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi, I'm your coach.", res.Content)
	assert.Equal(t, &Usage{PromptTokens: 12, CompletionTokens: 6, TotalTokens: 18}, res.Usage)

	assert.Equal(t, DefaultModel, got["model"])
	assert.EqualValues(t, 150, got["max_tokens"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAICompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	p := NewOpenAI(stubConfig{baseURL: srv.URL, token: "sk-test"}, "gpt-4o-mini", srv.Client())
	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	status, ok := StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestOpenAICompleteMissingToken(t *testing.T) {
	p := NewOpenAI(stubConfig{baseURL: "http://127.0.0.1:1"}, "", nil)
	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)

	_, ok := StatusCode(err)
	assert.False(t, ok)
}

func TestOpenAICompleteNoMessages(t *testing.T) {
	p := NewOpenAI(stubConfig{token: "sk-test"}, "", nil)
	_, err := p.Complete(context.Background(), Request{Messages: []Message{{Role: "tool", Content: "x"}}})
	assert.Error(t, err)
}
