package avatar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IntroFunc returns the introduction line for a language, or "" to let the knowledge base speak first
type IntroFunc func(language string) string

// Orchestrator stands avatar sessions up and tears them down for one Context
type Orchestrator struct {
	session   *Context
	tokens    TokenSource
	dialer    Dialer
	intro     IntroFunc
	observers []Observer
	logger    zerolog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithIntro makes Start speak an introduction before voice chat begins
func WithIntro(intro IntroFunc) Option {
	return func(o *Orchestrator) {
		o.intro = intro
	}
}

// WithObservers adds side-effect free observers to every connection's event stream
func WithObservers(observers ...Observer) Option {
	return func(o *Orchestrator) {
		o.observers = append(o.observers, observers...)
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(session *Context, tokens TokenSource, dialer Dialer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session: session,
		tokens:  tokens,
		dialer:  dialer,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.observers = append([]Observer{LogObserver(o.logger)}, o.observers...)
	return o
}

// Session returns the Context driven by this Orchestrator
func (o *Orchestrator) Session() *Context {
	return o.session
}

// Start runs token, connect, start streaming, intro and voice chat in order.
// On any failure the attempt's connection is closed and the Context returns to
// inactive. If Stop interrupts the attempt, Start returns ErrStartAborted.
func (o *Orchestrator) Start(ctx context.Context, cfg StartConfig) (err error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	attempt, err := o.session.beginConnect(cancel)
	if err != nil {
		cancel()
		return err
	}

	logger := o.logger.With().
		Str("attempt", uuid.NewString()[:8]).
		Str("avatar_id", cfg.AvatarID).
		Str("language", cfg.Language).
		Logger()
	logger.Info().Msg("starting avatar session")

	defer func() {
		if err == nil {
			return
		}
		conn, current := o.session.endAttempt(attempt)
		if conn != nil {
			if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close connection")
			}
		}
		if !current {
			err = ErrStartAborted
		}
		logger.Error().Err(err).Msg("avatar session failed to start")
	}()

	token, err := o.tokens.Token(attemptCtx)
	if err != nil {
		return fmt.Errorf("error fetching access token: %w", err)
	}

	conn, err := o.dialer.Dial(attemptCtx, token, cfg)
	if err != nil {
		return fmt.Errorf("error creating avatar connection: %w", err)
	}
	if err := o.session.attach(attempt, conn); err != nil {
		if cerr := conn.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close connection")
		}
		return err
	}

	go newDispatcher(o.session, attempt, o.observers, logger).Run(conn.Events())

	if err := conn.Start(attemptCtx); err != nil {
		return fmt.Errorf("error starting avatar stream: %w", err)
	}
	if err := o.session.markConnected(attempt); err != nil {
		return err
	}

	if err := conn.MuteInput(); err != nil {
		return fmt.Errorf("error muting input: %w", err)
	}
	if err := o.session.setMuted(attempt, true); err != nil {
		return err
	}

	if o.intro != nil {
		if text := o.intro(cfg.Language); text != "" {
			if err := conn.Speak(attemptCtx, SpeakRequest{Text: text, Type: TaskRepeat, Mode: TaskSync}); err != nil {
				return fmt.Errorf("error speaking introduction: %w", err)
			}
		}
	}

	if err := conn.StartVoiceChat(attemptCtx); err != nil {
		return fmt.Errorf("error starting voice chat: %w", err)
	}
	if err := conn.UnmuteInput(); err != nil {
		return fmt.Errorf("error unmuting input: %w", err)
	}
	if err := o.session.setMuted(attempt, false); err != nil {
		return err
	}

	if attemptCtx.Err() != nil {
		return ErrStartAborted
	}
	logger.Info().Msg("avatar session connected")
	return nil
}

// Stop aborts any in-flight Start, closes the connection and leaves the Context inactive.
// Stopping an inactive session does nothing.
func (o *Orchestrator) Stop(ctx context.Context) error {
	conn := o.session.disconnect()
	if conn == nil {
		return nil
	}
	o.logger.Info().Msg("stopping avatar session")
	if err := conn.Close(ctx); err != nil {
		return fmt.Errorf("error closing avatar connection: %w", err)
	}
	return nil
}
