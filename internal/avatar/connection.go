package avatar

import "context"

// TaskType selects whether the avatar answers the text or speaks it verbatim
type TaskType string

const (
	TaskTalk   TaskType = "talk"
	TaskRepeat TaskType = "repeat"
)

// TaskMode selects whether Speak returns immediately or after the avatar finished speaking
type TaskMode string

const (
	TaskAsync TaskMode = "async"
	TaskSync  TaskMode = "sync"
)

// Voice holds the voice parameters of a session
type Voice struct {
	VoiceID string  `json:"voiceId,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Emotion string  `json:"emotion,omitempty"`
}

// StartConfig is captured when a session starts and stays fixed for its lifetime
type StartConfig struct {
	AvatarID    string `json:"avatarName"`
	KnowledgeID string `json:"knowledgeId,omitempty"`
	Voice       Voice  `json:"voice"`
	Language    string `json:"language"`
	Quality     string `json:"quality"`
	Transport   string `json:"voiceChatTransport"`
	STTProvider string `json:"sttProvider"`
}

// SpeakRequest asks the avatar to say something
type SpeakRequest struct {
	Text string
	Type TaskType
	Mode TaskMode
}

// Connection is a live avatar session handle owned by a Context
type Connection interface {
	// Start begins streaming
	Start(ctx context.Context) error
	Speak(ctx context.Context, req SpeakRequest) error
	StartVoiceChat(ctx context.Context) error
	MuteInput() error
	UnmuteInput() error
	// Events is closed once the connection has shut down
	Events() <-chan Event
	Close(ctx context.Context) error
}

// Dialer constructs a connection for the given session token
type Dialer interface {
	Dial(ctx context.Context, token string, cfg StartConfig) (Connection, error)
}

// TokenSource yields short-lived session tokens
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
