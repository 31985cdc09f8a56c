package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	ProviderName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
)

// Config defines the configuration the OpenAI completer reads on every call
type Config interface {
	GetBaseURL(upstream string) (string, error)
	GetToken(upstream string) (string, error)
}

// OpenAI implements Completer on top of the chat completions endpoint
type OpenAI struct {
	config     Config
	model      string
	httpClient *http.Client
}

// NewOpenAI creates a new OpenAI completer. Credentials are resolved per request
// so a missing key surfaces as a request error instead of a startup failure.
func NewOpenAI(config Config, model string, httpClient *http.Client) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAI{
		config:     config,
		model:      model,
		httpClient: httpClient,
	}
}

func (p *OpenAI) client() (*openai.Client, error) {
	token, err := p.config.GetToken(ProviderName)
	if err != nil {
		return nil, err
	}
	baseURL, err := p.config.GetBaseURL(ProviderName)
	if err != nil {
		baseURL = DefaultBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(token),
		option.WithBaseURL(baseURL+"/"),
		option.WithHTTPClient(p.httpClient),
		option.WithMaxRetries(0),
	)
	return &client, nil
}

// Complete sends the messages to the chat completions API and returns the first choice
func (p *OpenAI) Complete(ctx context.Context, req Request) (*Result, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages to send")
	}

	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	params.Temperature = openai.Float(req.Temperature)

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	result := &Result{
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
	}
	return result, nil
}

// StatusCode extracts the provider HTTP status from an error returned by Complete
func StatusCode(err error) (int, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return apiErr.StatusCode, true
	}
	return 0, false
}
