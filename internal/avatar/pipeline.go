package avatar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/longkey1/avcoach/internal/metrics"
)

const (
	// ResponseDelay precedes every talk message; repeat messages wait half of it
	ResponseDelay = 2000 * time.Millisecond
	// BreathPause follows the response delay
	BreathPause = 500 * time.Millisecond
)

// Pipeline paces outgoing text and hands it to the live connection of a Context.
// Concurrent sends are independent: each waits its own delay and may overlap at the connection.
type Pipeline struct {
	session       *Context
	responseDelay time.Duration
	breathPause   time.Duration
	logger        zerolog.Logger
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithDelays overrides the pacing delays
func WithDelays(response, breath time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.responseDelay = response
		p.breathPause = breath
	}
}

// WithPipelineLogger sets the logger
func WithPipelineLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a new Pipeline for session
func NewPipeline(session *Context, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		session:       session,
		responseDelay: ResponseDelay,
		breathPause:   BreathPause,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay returns the total wait before a message of taskType is spoken
func (p *Pipeline) Delay(taskType TaskType) time.Duration {
	delay := p.responseDelay
	if taskType == TaskRepeat {
		delay /= 2
	}
	return delay + p.breathPause
}

// Send waits the pacing delay and asks the avatar to speak text. With TaskAsync the
// remote call runs in the background and Send returns once it has been issued.
func (p *Pipeline) Send(ctx context.Context, text string, taskType TaskType, taskMode TaskMode) error {
	if p.session.Connection() == nil {
		return ErrNotConnected
	}

	timer := time.NewTimer(p.Delay(taskType))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	// The session may have gone away while we were waiting.
	conn := p.session.Connection()
	if conn == nil {
		return ErrNotConnected
	}

	req := SpeakRequest{Text: text, Type: taskType, Mode: taskMode}
	metrics.MessagesSent.WithLabelValues(string(taskType), string(taskMode)).Inc()

	if taskMode == TaskAsync {
		go func() {
			if err := conn.Speak(context.WithoutCancel(ctx), req); err != nil {
				p.logger.Error().Err(err).Str("task_type", string(taskType)).Msg("failed to send message")
			}
		}()
		return nil
	}

	if err := conn.Speak(ctx, req); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

// Talk lets the avatar respond to text without waiting for it to finish
func (p *Pipeline) Talk(ctx context.Context, text string) error {
	return p.Send(ctx, text, TaskTalk, TaskAsync)
}

// TalkSync lets the avatar respond to text and waits until it has finished
func (p *Pipeline) TalkSync(ctx context.Context, text string) error {
	return p.Send(ctx, text, TaskTalk, TaskSync)
}

// Repeat has the avatar say text verbatim without waiting for it to finish
func (p *Pipeline) Repeat(ctx context.Context, text string) error {
	return p.Send(ctx, text, TaskRepeat, TaskAsync)
}

// RepeatSync has the avatar say text verbatim and waits until it has finished
func (p *Pipeline) RepeatSync(ctx context.Context, text string) error {
	return p.Send(ctx, text, TaskRepeat, TaskSync)
}
