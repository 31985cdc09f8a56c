package heygen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/longkey1/avcoach/internal/avatar"
)

var errClosed = errors.New("heygen: connection closed")

const eventBuffer = 64

// realtimeMessage is one frame received on the realtime channel
type realtimeMessage struct {
	Type    string `json:"type"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Conn is a streaming session: REST calls for lifecycle and speech, a websocket
// for events and microphone audio. It implements avatar.Connection.
type Conn struct {
	api     *StreamingClient
	session SessionInfo
	cfg     avatar.StartConfig
	dialer  *websocket.Dialer
	logger  zerolog.Logger

	mu        sync.Mutex // guards ws, started and closed; serializes websocket writes
	ws        *websocket.Conn
	started   bool
	closed    bool
	closeCh   chan struct{}
	closeOnce sync.Once
	events    chan avatar.Event

	muted     atomic.Bool
	voiceChat atomic.Bool
}

var (
	_ avatar.Connection = (*Conn)(nil)
	_ avatar.AudioSink  = (*Conn)(nil)
)

func newConn(api *StreamingClient, session SessionInfo, cfg avatar.StartConfig, dialer *websocket.Dialer, logger zerolog.Logger) *Conn {
	c := &Conn{
		api:     api,
		session: session,
		cfg:     cfg,
		dialer:  dialer,
		logger:  logger.With().Str("session_id", session.SessionID).Logger(),
		closeCh: make(chan struct{}),
		events:  make(chan avatar.Event, eventBuffer),
	}
	c.muted.Store(true)
	return c
}

// SessionID returns the provider session id
func (c *Conn) SessionID() string {
	return c.session.SessionID
}

// Start begins streaming and opens the realtime channel
func (c *Conn) Start(ctx context.Context) error {
	if err := c.api.StartSession(ctx, c.session.SessionID); err != nil {
		return err
	}

	ws, resp, err := c.dialer.DialContext(ctx, c.session.RealtimeEndpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("error connecting realtime channel (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("error connecting realtime channel: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ws.Close()
		return errClosed
	}
	c.ws = ws
	c.started = true
	c.mu.Unlock()

	// Emitted before the read loop starts: only the read loop closes events once started.
	c.emit(avatar.Event{Kind: avatar.EventStreamReady, At: time.Now()})
	go c.readLoop(ws)
	return nil
}

// Speak submits a speak task. Sync tasks return once the avatar finished speaking.
func (c *Conn) Speak(ctx context.Context, req avatar.SpeakRequest) error {
	if c.isClosed() {
		return errClosed
	}
	task, err := c.api.Task(ctx, c.session.SessionID, req)
	if err != nil {
		return err
	}
	c.logger.Debug().Str("task_id", task.TaskID).Str("task_type", string(req.Type)).Str("task_mode", string(req.Mode)).Msg("task accepted")
	return nil
}

// StartVoiceChat asks the provider to listen to microphone audio sent with SendAudio
func (c *Conn) StartVoiceChat(ctx context.Context) error {
	err := c.writeJSON(map[string]any{
		"event_id":     eventID(),
		"type":         "voice_chat.start",
		"stt_provider": c.cfg.STTProvider,
		"language":     c.cfg.Language,
	})
	if err != nil {
		return fmt.Errorf("error starting voice chat: %w", err)
	}
	c.voiceChat.Store(true)
	return nil
}

// MuteInput stops forwarding microphone audio
func (c *Conn) MuteInput() error {
	c.muted.Store(true)
	return nil
}

// UnmuteInput resumes forwarding microphone audio
func (c *Conn) UnmuteInput() error {
	c.muted.Store(false)
	return nil
}

// SendAudio forwards a PCM frame. Frames are dropped while muted or before voice chat started.
func (c *Conn) SendAudio(pcm []byte) error {
	if c.muted.Load() || !c.voiceChat.Load() {
		return nil
	}
	return c.writeJSON(map[string]any{
		"event_id": eventID(),
		"type":     "agent.audio_buffer_append",
		"audio":    base64.StdEncoding.EncodeToString(pcm),
	})
}

// Events returns the event stream. It is closed once the connection has shut down.
func (c *Conn) Events() <-chan avatar.Event {
	return c.events
}

// Close stops the provider session and closes the realtime channel. It is safe to call more than once.
func (c *Conn) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		ws := c.ws
		started := c.started
		c.mu.Unlock()

		close(c.closeCh)
		if ws != nil {
			_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = ws.Close()
		}
		if !started {
			close(c.events)
		}
		err = c.api.StopSession(ctx, c.session.SessionID)
	})
	return err
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	if c.ws == nil {
		return fmt.Errorf("realtime channel not open")
	}
	return c.ws.WriteJSON(v)
}

func (c *Conn) emit(ev avatar.Event) {
	select {
	case <-c.closeCh:
	case c.events <- ev:
	}
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	defer close(c.events)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closeCh:
			default:
				c.logger.Warn().Err(err).Msg("realtime channel closed")
				c.emit(avatar.Event{Kind: avatar.EventStreamDisconnected, At: time.Now()})
			}
			return
		}

		var msg realtimeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug().Err(err).Msg("skipping malformed realtime message")
			continue
		}
		kind, ok := avatar.ParseEventKind(msg.Type)
		if !ok {
			continue
		}
		c.emit(avatar.Event{Kind: kind, TaskID: msg.TaskID, Text: msg.Message, At: time.Now()})
	}
}

func eventID() string {
	return "evt_" + uuid.NewString()[:12]
}

// Dialer creates provider sessions. It implements avatar.Dialer.
type Dialer struct {
	BaseURL    string
	HTTPClient *http.Client
	WebSocket  *websocket.Dialer
	Logger     zerolog.Logger
}

// Dial creates a streaming session with token. The session is not started.
func (d *Dialer) Dial(ctx context.Context, token string, cfg avatar.StartConfig) (avatar.Connection, error) {
	api := NewStreamingClient(d.BaseURL, token, d.HTTPClient)
	info, err := api.NewSession(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if info.RealtimeEndpoint == "" {
		return nil, fmt.Errorf("no realtime endpoint for session %s", info.SessionID)
	}

	wsDialer := d.WebSocket
	if wsDialer == nil {
		wsDialer = websocket.DefaultDialer
	}
	return newConn(api, *info, cfg, wsDialer, d.Logger), nil
}
