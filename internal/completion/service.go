// Package completion implements the chat, translate, summarize and
// conversation-starter tasks behind the completion proxy.
package completion

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/longkey1/avcoach/internal/metrics"
	"github.com/longkey1/avcoach/internal/prompt"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat modes
const (
	ModeChat         = "chat"
	ModeCreative     = "creative"
	ModeProfessional = "professional"
)

// Summary options
const (
	LengthBrief    = "brief"
	LengthDetailed = "detailed"

	FocusKeyPoints = "key_points"
	FocusDecisions = "decisions"
	FocusQuestions = "questions"
	FocusGeneral   = "general"
)

const (
	historyWindow        = 10
	DefaultStarterCount  = 3
	DefaultSourceLang    = "auto"
	chatMaxTokens        = 150
	chatTemperature      = 0.7
	generateMaxTokens    = 200
	translateTemperature = 0.3
	summaryTemperature   = 0.3
	startersMaxTokens    = 200
	startersTemperature  = 0.8
)

var focusPrompts = map[string]string{
	FocusKeyPoints: "Focus on the main topics and important points discussed.",
	FocusDecisions: "Focus on any decisions made or conclusions reached.",
	FocusQuestions: "Focus on questions asked and their answers.",
	FocusGeneral:   "Provide a general overview of the conversation.",
}

var lengthPrompts = map[string]string{
	LengthBrief:    "Keep the summary to 2-3 sentences.",
	LengthDetailed: "Provide a comprehensive summary in 1-2 paragraphs.",
}

// Message is one conversation turn sent to the provider
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Usage reports provider token accounting
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Request is a single provider call
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Result is the provider's text completion
type Result struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Completer sends one completion request to an LLM provider
type Completer interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

// ChatRequest is the input of Service.Chat
type ChatRequest struct {
	Message            string
	History            []Message
	CustomSystemPrompt string
	Mode               string
}

// Service runs the completion tasks with fixed per-task prompts and settings
type Service struct {
	completer Completer
	prompts   *prompt.Set
	logger    zerolog.Logger
}

// NewService creates a new Service
func NewService(completer Completer, prompts *prompt.Set, logger zerolog.Logger) *Service {
	return &Service{
		completer: completer,
		prompts:   prompts,
		logger:    logger,
	}
}

func (s *Service) run(ctx context.Context, task, name string, vars map[string]string, history []Message, maxTokens int, temperature float64) (*Result, error) {
	system, user, err := s.prompts.Render(name, vars)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, task, system, history, user, maxTokens, temperature)
}

func (s *Service) complete(ctx context.Context, task, system string, history []Message, user string, maxTokens int, temperature float64) (*Result, error) {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: user})

	res, err := s.completer.Complete(ctx, Request{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(ProviderName, task).Inc()
		s.logger.Error().Err(err).Str("task", task).Msg("completion failed")
		return nil, err
	}
	if res.Usage != nil {
		metrics.CompletionTokens.WithLabelValues(task, "prompt").Add(float64(res.Usage.PromptTokens))
		metrics.CompletionTokens.WithLabelValues(task, "completion").Add(float64(res.Usage.CompletionTokens))
	}
	return res, nil
}

// Respond generates a conversational reply using the last turns of history
func (s *Service) Respond(ctx context.Context, message string, history []Message, customSystemPrompt string) (*Result, error) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if customSystemPrompt != "" {
		return s.complete(ctx, "chat", customSystemPrompt, history, message, chatMaxTokens, chatTemperature)
	}
	return s.run(ctx, "chat", prompt.Chat, map[string]string{"input": message}, history, chatMaxTokens, chatTemperature)
}

// Generate produces free text in one of the styles: creative, informative, casual, professional
func (s *Service) Generate(ctx context.Context, text, style string, temperature float64) (*Result, error) {
	switch style {
	case prompt.Creative, prompt.Informative, prompt.Casual, prompt.Professional:
	default:
		style = prompt.Casual
	}
	return s.run(ctx, "generate_"+style, style, map[string]string{"input": text}, nil, generateMaxTokens, temperature)
}

// Chat dispatches a chat request by mode
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*Result, error) {
	switch req.Mode {
	case "", ModeChat:
		return s.Respond(ctx, req.Message, req.History, req.CustomSystemPrompt)
	case ModeCreative:
		return s.Generate(ctx, req.Message, prompt.Creative, 0.9)
	case ModeProfessional:
		return s.Generate(ctx, req.Message, prompt.Professional, 0.5)
	default:
		return s.Respond(ctx, req.Message, req.History, "")
	}
}

// Translate translates text into targetLanguage. sourceLanguage "" or "auto" lets the model detect it.
func (s *Service) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (*Result, error) {
	name := prompt.TranslateFrom
	if sourceLanguage == "" || sourceLanguage == DefaultSourceLang {
		name = prompt.Translate
	}
	maxTokens := max(100, len(text)*2)
	return s.run(ctx, "translate", name, map[string]string{
		"input":  text,
		"target": targetLanguage,
		"source": sourceLanguage,
	}, nil, maxTokens, translateTemperature)
}

// Summarize condenses a conversation. Unknown length or focus values fall back to brief and general.
func (s *Service) Summarize(ctx context.Context, messages []Message, maxLength, focus string) (*Result, error) {
	if _, ok := lengthPrompts[maxLength]; !ok {
		maxLength = LengthBrief
	}
	if _, ok := focusPrompts[focus]; !ok {
		focus = FocusGeneral
	}

	maxTokens := 100
	if maxLength == LengthDetailed {
		maxTokens = 300
	}

	return s.run(ctx, "summarize", prompt.Summarize, map[string]string{
		"input":  Transcript(messages),
		"focus":  focusPrompts[focus],
		"length": lengthPrompts[maxLength],
	}, nil, maxTokens, summaryTemperature)
}

// ConversationStarters asks for count starters, optionally about context.
// A zero count yields an empty list without calling the provider; a negative one means DefaultStarterCount.
// Provider failures are logged and yield an empty list.
func (s *Service) ConversationStarters(ctx context.Context, topic string, count int) []string {
	if count == 0 {
		return []string{}
	}
	if count < 0 {
		count = DefaultStarterCount
	}

	name := prompt.Starters
	if topic != "" {
		name = prompt.StartersContext
	}
	res, err := s.run(ctx, "starters", name, map[string]string{
		"count":   strconv.Itoa(count),
		"context": topic,
	}, nil, startersMaxTokens, startersTemperature)
	if err != nil {
		return []string{}
	}
	return ParseStarters(res.Content, count)
}

// Transcript renders the non-system messages as "User:"/"Assistant:" lines
func Transcript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		speaker := "Assistant"
		if msg.Role == RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

var numberedPrefix = regexp.MustCompile(`^\d+\.\s*`)

// ParseStarters splits a numbered list into at most count entries.
// Blank lines and "N." prefixes are dropped; anything unparseable degrades to fewer entries.
func ParseStarters(content string, count int) []string {
	starters := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(numberedPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		starters = append(starters, line)
	}
	if count >= 0 && len(starters) > count {
		starters = starters[:count]
	}
	return starters
}
