// Package avatar holds the client-side state of a streaming avatar session:
// the session Context, the typed connection events and their dispatcher, the
// Orchestrator that stands a session up, and the Pipeline that paces outgoing
// messages.
package avatar

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/longkey1/avcoach/internal/metrics"
)

// SessionState is the lifecycle state of a session
type SessionState string

const (
	StateInactive   SessionState = "inactive"
	StateConnecting SessionState = "connecting"
	StateConnected  SessionState = "connected"
)

// Sender identifies who produced a message
type Sender string

const (
	SenderClient Sender = "client"
	SenderAvatar Sender = "avatar"
)

// Message is one entry of the message history. Messages are never modified after creation.
type Message struct {
	ID      int64     `json:"id"`
	Sender  Sender    `json:"sender"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Snapshot is a point-in-time copy of the observable session state
type Snapshot struct {
	State         SessionState `json:"state"`
	Muted         bool         `json:"muted"`
	AvatarTalking bool         `json:"avatarTalking"`
	UserTalking   bool         `json:"userTalking"`
	Messages      int          `json:"messages"`
}

// Context owns the live connection of one avatar session and everything the
// UI reads about it. All mutations go through its transition methods.
type Context struct {
	mu sync.RWMutex

	state   SessionState
	conn    Connection
	cancel  context.CancelFunc
	attempt uint64

	muted         bool
	avatarTalking bool
	userTalking   bool

	messages  []Message
	lastID    int64
	avatarBuf strings.Builder
	userBuf   strings.Builder

	handlers []func(Snapshot)
	now      func() time.Time
}

// NewContext creates an inactive session Context with the microphone muted
func NewContext() *Context {
	return &Context{
		state: StateInactive,
		muted: true,
		now:   time.Now,
	}
}

// OnChange registers a handler called with a fresh Snapshot after every state change
func (c *Context) OnChange(handler func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// State returns the current lifecycle state
func (c *Context) State() SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns a copy of the observable state
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Messages returns a copy of the message history in arrival order
func (c *Context) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Connection returns the live connection, or nil unless the session is connected
func (c *Context) Connection() Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected {
		return nil
	}
	return c.conn
}

// SetMuted records the microphone state
func (c *Context) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
	c.notify()
}

// AddMessage appends a message to the history and returns it
func (c *Context) AddMessage(sender Sender, content string) Message {
	c.mu.Lock()
	msg := c.appendLocked(sender, content)
	c.mu.Unlock()
	c.notify()
	return msg
}

// beginConnect moves an inactive Context to connecting and opens a new attempt
func (c *Context) beginConnect(cancel context.CancelFunc) (uint64, error) {
	c.mu.Lock()
	if c.state != StateInactive {
		c.mu.Unlock()
		return 0, ErrSessionActive
	}
	c.attempt++
	c.cancel = cancel
	c.muted = true
	c.avatarTalking = false
	c.userTalking = false
	c.messages = nil
	c.avatarBuf.Reset()
	c.userBuf.Reset()
	c.setStateLocked(StateConnecting)
	attempt := c.attempt
	c.mu.Unlock()

	c.notify()
	return attempt, nil
}

// attach hands the connection of attempt to the Context
func (c *Context) attach(attempt uint64, conn Connection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt || c.state != StateConnecting {
		return ErrStartAborted
	}
	c.conn = conn
	return nil
}

// markConnected moves the attempt's session to connected
func (c *Context) markConnected(attempt uint64) error {
	c.mu.Lock()
	if attempt != c.attempt || c.state != StateConnecting {
		c.mu.Unlock()
		return ErrStartAborted
	}
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.notify()
	return nil
}

// setMuted records the microphone state for attempt while its session is connected
func (c *Context) setMuted(attempt uint64, muted bool) error {
	c.mu.Lock()
	if attempt != c.attempt || c.state != StateConnected {
		c.mu.Unlock()
		return ErrStartAborted
	}
	c.muted = muted
	c.mu.Unlock()

	c.notify()
	return nil
}

// endAttempt returns the Context to inactive if attempt is still the live one.
// The detached connection is returned for the caller to close.
func (c *Context) endAttempt(attempt uint64) (Connection, bool) {
	c.mu.Lock()
	if attempt != c.attempt || c.state == StateInactive {
		c.mu.Unlock()
		return nil, false
	}
	conn := c.resetLocked()
	c.mu.Unlock()

	c.notify()
	return conn, true
}

// disconnect cancels any in-flight attempt and detaches the connection.
// It returns nil when the Context is already inactive.
func (c *Context) disconnect() Connection {
	c.mu.Lock()
	if c.state == StateInactive {
		c.mu.Unlock()
		return nil
	}
	conn := c.resetLocked()
	c.mu.Unlock()

	c.notify()
	return conn
}

// apply folds one connection event of attempt into the Context
func (c *Context) apply(attempt uint64, ev Event) {
	c.mu.Lock()
	if attempt != c.attempt || c.state == StateInactive {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case EventAvatarStartTalking:
		c.avatarTalking = true
	case EventAvatarStopTalking:
		c.avatarTalking = false
	case EventAvatarTalkingMessage:
		c.avatarBuf.WriteString(ev.Text)
	case EventAvatarEndMessage:
		c.flushLocked(SenderAvatar, &c.avatarBuf)
	case EventUserStart:
		c.userTalking = true
	case EventUserStop:
		c.userTalking = false
	case EventUserTalkingMessage:
		c.userBuf.WriteString(ev.Text)
	case EventUserEndMessage:
		c.flushLocked(SenderClient, &c.userBuf)
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.notify()
}

func (c *Context) resetLocked() Connection {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.muted = true
	c.avatarTalking = false
	c.userTalking = false
	c.setStateLocked(StateInactive)
	return conn
}

func (c *Context) setStateLocked(state SessionState) {
	if c.state == state {
		return
	}
	if c.state == StateConnected {
		metrics.ActiveSessions.Dec()
	}
	if state == StateConnected {
		metrics.ActiveSessions.Inc()
	}
	c.state = state
	metrics.SessionTransitions.WithLabelValues(string(state)).Inc()
}

func (c *Context) flushLocked(sender Sender, buf *strings.Builder) {
	content := strings.TrimSpace(buf.String())
	buf.Reset()
	if content == "" {
		return
	}
	c.appendLocked(sender, content)
}

func (c *Context) appendLocked(sender Sender, content string) Message {
	at := c.now()
	id := at.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id

	msg := Message{ID: id, Sender: sender, Content: content, At: at}
	c.messages = append(c.messages, msg)
	return msg
}

func (c *Context) snapshotLocked() Snapshot {
	return Snapshot{
		State:         c.state,
		Muted:         c.muted,
		AvatarTalking: c.avatarTalking,
		UserTalking:   c.userTalking,
		Messages:      len(c.messages),
	}
}

func (c *Context) notify() {
	c.mu.RLock()
	handlers := make([]func(Snapshot), len(c.handlers))
	copy(handlers, c.handlers)
	snap := c.snapshotLocked()
	c.mu.RUnlock()

	for _, h := range handlers {
		h(snap)
	}
}
