package completion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longkey1/avcoach/internal/prompt"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []Request
	result   *Result
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeCompleter) last(t *testing.T) Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestService(t *testing.T, f *fakeCompleter) *Service {
	t.Helper()
	prompts, err := prompt.LoadSet(nil)
	require.NoError(t, err)
	return NewService(f, prompts, zerolog.Nop())
}

func TestChatDefaultMode(t *testing.T) {
	f := &fakeCompleter{result: &Result{Content: "Hello there", Usage: &Usage{PromptTokens: 5, CompletionTokens: 2, TotalTokens: 7}}}
	s := newTestService(t, f)

	history := make([]Message, 0, 14)
	for i := 0; i < 14; i++ {
		history = append(history, Message{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	res, err := s.Chat(context.Background(), ChatRequest{Message: "hi", History: history})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", res.Content)
	assert.Equal(t, int64(7), res.Usage.TotalTokens)

	req := f.last(t)
	assert.Equal(t, chatMaxTokens, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 1e-9)
	// system + last 10 history turns + user
	require.Len(t, req.Messages, 12)
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Interactive Avatar")
	assert.Equal(t, "turn 4", req.Messages[1].Content)
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, req.Messages[11])
}

func TestChatModes(t *testing.T) {
	tests := []struct {
		name        string
		req         ChatRequest
		wantSystem  string
		wantTemp    float64
		wantTokens  int
		wantHistory int
	}{
		{
			name:       "custom system prompt",
			req:        ChatRequest{Message: "hi", CustomSystemPrompt: "You are Alex, a coachee."},
			wantSystem: "You are Alex, a coachee.",
			wantTemp:   0.7,
			wantTokens: 150,
		},
		{
			name:       "creative",
			req:        ChatRequest{Message: "a poem", Mode: ModeCreative, History: []Message{{Role: RoleUser, Content: "x"}}},
			wantSystem: "You are a creative writer.",
			wantTemp:   0.9,
			wantTokens: 200,
		},
		{
			name:       "professional",
			req:        ChatRequest{Message: "an email", Mode: ModeProfessional},
			wantSystem: "You are a professional communicator.",
			wantTemp:   0.5,
			wantTokens: 200,
		},
		{
			name:        "unknown mode ignores custom prompt",
			req:         ChatRequest{Message: "hi", Mode: "poetic", CustomSystemPrompt: "ignored", History: []Message{{Role: RoleAssistant, Content: "y"}}},
			wantSystem:  "You are an AI assistant integrated with an Interactive Avatar.",
			wantTemp:    0.7,
			wantTokens:  150,
			wantHistory: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCompleter{result: &Result{Content: "ok"}}
			s := newTestService(t, f)

			_, err := s.Chat(context.Background(), tt.req)
			require.NoError(t, err)

			req := f.last(t)
			assert.Contains(t, req.Messages[0].Content, tt.wantSystem)
			assert.InDelta(t, tt.wantTemp, req.Temperature, 1e-9)
			assert.Equal(t, tt.wantTokens, req.MaxTokens)
			assert.Len(t, req.Messages, tt.wantHistory+2)
		})
	}
}

func TestTranslate(t *testing.T) {
	f := &fakeCompleter{result: &Result{Content: "Hello"}}
	s := newTestService(t, f)

	res, err := s.Translate(context.Background(), "Hallo", "English", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Content)

	req := f.last(t)
	assert.Equal(t, 100, req.MaxTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Equal(t, "Translate the following text to English:\n\n\"Hallo\"", req.Messages[1].Content)

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.Translate(context.Background(), string(long), "Dutch", "English")
	require.NoError(t, err)
	req = f.last(t)
	assert.Equal(t, 160, req.MaxTokens)
	assert.Contains(t, req.Messages[1].Content, "from English to Dutch")
}

func TestSummarize(t *testing.T) {
	f := &fakeCompleter{result: &Result{Content: "They talked."}}
	s := newTestService(t, f)

	messages := []Message{
		{Role: RoleSystem, Content: "hidden"},
		{Role: RoleUser, Content: "What is my goal?"},
		{Role: RoleAssistant, Content: "To delegate more."},
	}

	_, err := s.Summarize(context.Background(), messages, LengthDetailed, FocusDecisions)
	require.NoError(t, err)
	req := f.last(t)
	assert.Equal(t, 300, req.MaxTokens)
	assert.Equal(t, "Summarize the following conversation. Focus on any decisions made or conclusions reached. Provide a comprehensive summary in 1-2 paragraphs.", req.Messages[0].Content)
	assert.Equal(t, "User: What is my goal?\nAssistant: To delegate more.", req.Messages[1].Content)

	_, err = s.Summarize(context.Background(), messages, "epic", "gossip")
	require.NoError(t, err)
	req = f.last(t)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Contains(t, req.Messages[0].Content, "general overview")
	assert.Contains(t, req.Messages[0].Content, "2-3 sentences")
}

func TestConversationStarters(t *testing.T) {
	f := &fakeCompleter{result: &Result{Content: "1. Foo\n2. Bar\n\n3. Baz\n4. Qux"}}
	s := newTestService(t, f)

	got := s.ConversationStarters(context.Background(), "", -1)
	assert.Equal(t, []string{"Foo", "Bar", "Baz"}, got)
	req := f.last(t)
	assert.Equal(t, 200, req.MaxTokens)
	assert.InDelta(t, 0.8, req.Temperature, 1e-9)
	assert.Contains(t, req.Messages[1].Content, "Generate 3 general conversation starters")

	got = s.ConversationStarters(context.Background(), "delegation", 2)
	assert.Equal(t, []string{"Foo", "Bar"}, got)
	assert.Contains(t, f.last(t).Messages[1].Content, "related to: delegation")
}

func TestConversationStartersZeroCount(t *testing.T) {
	f := &fakeCompleter{result: &Result{Content: "1. Foo\n2. Bar"}}
	s := newTestService(t, f)

	got := s.ConversationStarters(context.Background(), "delegation", 0)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.requests)
}

func TestConversationStartersProviderError(t *testing.T) {
	f := &fakeCompleter{err: errors.New("boom")}
	s := newTestService(t, f)

	got := s.ConversationStarters(context.Background(), "", 3)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProviderErrorPropagates(t *testing.T) {
	f := &fakeCompleter{err: errors.New("rate limited")}
	s := newTestService(t, f)

	_, err := s.Translate(context.Background(), "Hallo", "English", "auto")
	assert.EqualError(t, err, "rate limited")
}

func TestParseStarters(t *testing.T) {
	tests := []struct {
		name    string
		content string
		count   int
		want    []string
	}{
		{name: "numbered list", content: "1. Foo\n2. Bar\n\n3. Baz", count: 3, want: []string{"Foo", "Bar", "Baz"}},
		{name: "truncated", content: "1. Foo\n2. Bar\n\n3. Baz", count: 2, want: []string{"Foo", "Bar"}},
		{name: "unnumbered lines kept", content: "Here you go:\n1.   What matters most?", count: 5, want: []string{"Here you go:", "What matters most?"}},
		{name: "indented numbers", content: "  1. Foo\r\n  2. Bar", count: 5, want: []string{"Foo", "Bar"}},
		{name: "bare numbers dropped", content: "1.\n2. Bar", count: 5, want: []string{"Bar"}},
		{name: "empty", content: "", count: 3, want: []string{}},
		{name: "zero count", content: "1. Foo", count: 0, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStarters(tt.content, tt.count))
		})
	}
}
