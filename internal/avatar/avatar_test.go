package avatar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu        sync.Mutex
	calls     []string
	spoken    []SpeakRequest
	failOn    string
	closed    bool
	events    chan Event
	closeOnce sync.Once

	// blockOn parks the named call until unblock is closed
	blockOn string
	blocked chan struct{}
	unblock chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 16)}
}

func (c *fakeConn) record(call string) error {
	if c.blockOn == call {
		close(c.blocked)
		<-c.unblock
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
	if c.failOn == call {
		return errors.New(call + " failed")
	}
	return nil
}

func (c *fakeConn) Start(ctx context.Context) error { return c.record("start") }

func (c *fakeConn) Speak(ctx context.Context, req SpeakRequest) error {
	c.mu.Lock()
	c.spoken = append(c.spoken, req)
	c.mu.Unlock()
	return c.record("speak")
}

func (c *fakeConn) StartVoiceChat(ctx context.Context) error { return c.record("voice_chat") }
func (c *fakeConn) MuteInput() error                         { return c.record("mute") }
func (c *fakeConn) UnmuteInput() error                       { return c.record("unmute") }
func (c *fakeConn) Events() <-chan Event                     { return c.events }

func (c *fakeConn) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.events)
	})
	return nil
}

func (c *fakeConn) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConn) Spoken() []SpeakRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SpeakRequest(nil), c.spoken...)
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu      sync.Mutex
	conn    *fakeConn
	err     error
	release chan struct{}
	tokens  []string
	dialing chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, token string, cfg StartConfig) (Connection, error) {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	d.mu.Unlock()
	if d.dialing != nil {
		close(d.dialing)
	}
	if d.release != nil {
		<-d.release
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

func staticToken(token string) TokenSource {
	return TokenFunc(func(ctx context.Context) (string, error) {
		return token, nil
	})
}

var testConfig = StartConfig{AvatarID: "Graham_Chair_Sitting_public", Language: "en"}

func TestOrchestratorStartWithIntro(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conn: conn}
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), dialer, WithIntro(func(lang string) string {
		return "Hello, I'm your coachee. (" + lang + ")"
	}))

	require.NoError(t, o.Start(context.Background(), testConfig))

	assert.Equal(t, []string{"start", "mute", "speak", "voice_chat", "unmute"}, conn.Calls())
	assert.Equal(t, []SpeakRequest{{Text: "Hello, I'm your coachee. (en)", Type: TaskRepeat, Mode: TaskSync}}, conn.Spoken())
	assert.Equal(t, []string{"tok"}, dialer.tokens)

	snap := session.Snapshot()
	assert.Equal(t, StateConnected, snap.State)
	assert.False(t, snap.Muted)
	assert.Same(t, conn, session.Connection())

	require.NoError(t, o.Stop(context.Background()))
	assert.True(t, conn.Closed())
	assert.Equal(t, StateInactive, session.State())
	assert.Nil(t, session.Connection())

	// Stop is idempotent
	require.NoError(t, o.Stop(context.Background()))
}

func TestOrchestratorStartWithoutIntro(t *testing.T) {
	tests := []struct {
		name  string
		intro IntroFunc
	}{
		{name: "no intro configured"},
		{name: "no intro for language", intro: func(string) string { return "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			var opts []Option
			if tt.intro != nil {
				opts = append(opts, WithIntro(tt.intro))
			}
			o := NewOrchestrator(NewContext(), staticToken("tok"), &fakeDialer{conn: conn}, opts...)

			require.NoError(t, o.Start(context.Background(), testConfig))
			assert.Equal(t, []string{"start", "mute", "voice_chat", "unmute"}, conn.Calls())
		})
	}
}

func TestOrchestratorStartActive(t *testing.T) {
	o := NewOrchestrator(NewContext(), staticToken("tok"), &fakeDialer{conn: newFakeConn()})
	require.NoError(t, o.Start(context.Background(), testConfig))

	err := o.Start(context.Background(), testConfig)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, StateConnected, o.Session().State())
}

func TestOrchestratorTokenFailure(t *testing.T) {
	dialer := &fakeDialer{conn: newFakeConn()}
	session := NewContext()
	o := NewOrchestrator(session, TokenFunc(func(ctx context.Context) (string, error) {
		return "", errors.New("upstream 401")
	}), dialer)

	err := o.Start(context.Background(), testConfig)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 401")
	assert.Zero(t, dialer.Dials())
	assert.Equal(t, StateInactive, session.State())
}

func TestOrchestratorRollback(t *testing.T) {
	for _, step := range []string{"start", "mute", "speak", "voice_chat", "unmute"} {
		t.Run(step, func(t *testing.T) {
			conn := newFakeConn()
			conn.failOn = step
			session := NewContext()
			o := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: conn}, WithIntro(func(string) string { return "hi" }))

			err := o.Start(context.Background(), testConfig)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrStartAborted)
			assert.True(t, conn.Closed())
			assert.Equal(t, StateInactive, session.State())
			assert.Nil(t, session.Connection())

			// a failed attempt does not block the next one
			next := newFakeConn()
			o2 := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: next})
			require.NoError(t, o2.Start(context.Background(), testConfig))
		})
	}
}

func TestOrchestratorStopBeforeToken(t *testing.T) {
	started := make(chan struct{})
	tokens := TokenFunc(func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	dialer := &fakeDialer{conn: newFakeConn()}
	session := NewContext()
	o := NewOrchestrator(session, tokens, dialer)

	errCh := make(chan error, 1)
	go func() { errCh <- o.Start(context.Background(), testConfig) }()

	<-started
	assert.Equal(t, StateConnecting, session.State())
	require.NoError(t, o.Stop(context.Background()))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrStartAborted)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.Equal(t, StateInactive, session.State())
	assert.Nil(t, session.Connection())
	assert.Zero(t, dialer.Dials())
}

func TestOrchestratorStopDuringDial(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{conn: conn, release: make(chan struct{}), dialing: make(chan struct{})}
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), dialer)

	errCh := make(chan error, 1)
	go func() { errCh <- o.Start(context.Background(), testConfig) }()

	<-dialer.dialing
	require.NoError(t, o.Stop(context.Background()))
	close(dialer.release)

	assert.ErrorIs(t, <-errCh, ErrStartAborted)
	assert.True(t, conn.Closed())
	assert.Empty(t, conn.Calls())
	assert.Equal(t, StateInactive, session.State())
}

func TestOrchestratorStopDuringUnmute(t *testing.T) {
	conn := newFakeConn()
	conn.blockOn = "unmute"
	conn.blocked = make(chan struct{})
	conn.unblock = make(chan struct{})
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: conn})

	errCh := make(chan error, 1)
	go func() { errCh <- o.Start(context.Background(), testConfig) }()

	<-conn.blocked
	require.NoError(t, o.Stop(context.Background()))
	assert.Equal(t, Snapshot{State: StateInactive, Muted: true}, session.Snapshot())
	close(conn.unblock)

	assert.ErrorIs(t, <-errCh, ErrStartAborted)
	assert.Equal(t, Snapshot{State: StateInactive, Muted: true}, session.Snapshot())
	assert.True(t, conn.Closed())
}

func TestOrchestratorStaleMuteDoesNotReachNextAttempt(t *testing.T) {
	first := newFakeConn()
	first.blockOn = "mute"
	first.blocked = make(chan struct{})
	first.unblock = make(chan struct{})
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: first})

	errCh := make(chan error, 1)
	go func() { errCh <- o.Start(context.Background(), testConfig) }()

	<-first.blocked
	require.NoError(t, o.Stop(context.Background()))

	// A second attempt is connecting when the first one wakes up.
	nextDialer := &fakeDialer{conn: newFakeConn(), release: make(chan struct{}), dialing: make(chan struct{})}
	next := NewOrchestrator(session, staticToken("tok"), nextDialer)
	nextErr := make(chan error, 1)
	go func() { nextErr <- next.Start(context.Background(), testConfig) }()
	require.Eventually(t, func() bool { return session.State() == StateConnecting }, time.Second, 5*time.Millisecond)

	close(first.unblock)
	assert.ErrorIs(t, <-errCh, ErrStartAborted)
	assert.Equal(t, StateConnecting, session.State())
	assert.True(t, session.Snapshot().Muted)

	require.NoError(t, next.Stop(context.Background()))
	close(nextDialer.release)
	assert.ErrorIs(t, <-nextErr, ErrStartAborted)
}

func TestDispatcherBuildsHistory(t *testing.T) {
	conn := newFakeConn()
	session := NewContext()
	var observed []EventKind
	var mu sync.Mutex
	o := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: conn}, WithObservers(func(ev Event) {
		mu.Lock()
		observed = append(observed, ev.Kind)
		mu.Unlock()
	}))
	require.NoError(t, o.Start(context.Background(), testConfig))

	conn.events <- Event{Kind: EventUserStart}
	conn.events <- Event{Kind: EventUserTalkingMessage, Text: "How do I "}
	conn.events <- Event{Kind: EventUserTalkingMessage, Text: "give feedback?"}
	conn.events <- Event{Kind: EventUserEndMessage}
	conn.events <- Event{Kind: EventUserStop}
	conn.events <- Event{Kind: EventAvatarStartTalking, TaskID: "t1"}
	conn.events <- Event{Kind: EventAvatarTalkingMessage, Text: "Start with "}
	conn.events <- Event{Kind: EventAvatarTalkingMessage, Text: "what you saw."}
	conn.events <- Event{Kind: EventAvatarEndMessage}

	require.Eventually(t, func() bool { return len(session.Messages()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := session.Messages()
	assert.Equal(t, SenderClient, msgs[0].Sender)
	assert.Equal(t, "How do I give feedback?", msgs[0].Content)
	assert.Equal(t, SenderAvatar, msgs[1].Sender)
	assert.Equal(t, "Start with what you saw.", msgs[1].Content)
	assert.Less(t, msgs[0].ID, msgs[1].ID)

	require.Eventually(t, func() bool { return session.Snapshot().AvatarTalking }, time.Second, 5*time.Millisecond)

	conn.events <- Event{Kind: EventStreamDisconnected}
	require.Eventually(t, func() bool { return session.State() == StateInactive }, time.Second, 5*time.Millisecond)
	require.Eventually(t, conn.Closed, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, observed, 10)
	assert.Equal(t, EventStreamDisconnected, observed[9])
}

func TestContextMessageIDsIncrease(t *testing.T) {
	session := NewContext()
	fixed := time.UnixMilli(1700000000000)
	session.now = func() time.Time { return fixed }

	var changes int
	session.OnChange(func(Snapshot) { changes++ })

	a := session.AddMessage(SenderClient, "one")
	b := session.AddMessage(SenderAvatar, "two")
	c := session.AddMessage(SenderClient, "three")

	assert.Equal(t, int64(1700000000000), a.ID)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, b.ID+1, c.ID)
	assert.Equal(t, 3, changes)
	assert.Equal(t, 3, session.Snapshot().Messages)
}

func TestEventKindNames(t *testing.T) {
	for k := EventAvatarStartTalking; k <= EventStreamDisconnected; k++ {
		got, ok := ParseEventKind(k.String())
		assert.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseEventKind("avatar_dance")
	assert.False(t, ok)
	assert.Equal(t, "unknown", EventKind(0).String())
}
