package avatar

import (
	"context"

	"github.com/rs/zerolog"
)

// Observer receives every event of a connection. Observers must not mutate session state.
type Observer func(Event)

// LogObserver logs each event at debug level, message chunks included
func LogObserver(logger zerolog.Logger) Observer {
	return func(ev Event) {
		e := logger.Debug().Str("event", ev.Kind.String())
		if ev.TaskID != "" {
			e = e.Str("task_id", ev.TaskID)
		}
		if ev.Text != "" {
			e = e.Str("text", ev.Text)
		}
		e.Msg("avatar event")
	}
}

// Dispatcher consumes the event stream of one connection. Observers run first,
// then the event is folded into the session Context.
type Dispatcher struct {
	session   *Context
	attempt   uint64
	observers []Observer
	logger    zerolog.Logger
}

func newDispatcher(session *Context, attempt uint64, observers []Observer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		session:   session,
		attempt:   attempt,
		observers: observers,
		logger:    logger,
	}
}

// Run reads events until the channel is closed
func (d *Dispatcher) Run(events <-chan Event) {
	for ev := range events {
		for _, observe := range d.observers {
			observe(ev)
		}

		if ev.Kind != EventStreamDisconnected {
			d.session.apply(d.attempt, ev)
			continue
		}

		conn, ok := d.session.endAttempt(d.attempt)
		if !ok {
			continue
		}
		d.logger.Info().Msg("stream disconnected, session is inactive")
		if conn != nil {
			// Close must not run on this goroutine: it may wait for the stream we are draining.
			go func() {
				if err := conn.Close(context.Background()); err != nil {
					d.logger.Warn().Err(err).Msg("failed to close disconnected stream")
				}
			}()
		}
	}
}
