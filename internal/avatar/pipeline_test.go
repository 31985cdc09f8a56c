package avatar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedSession(t *testing.T) (*Context, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: conn})
	require.NoError(t, o.Start(context.Background(), testConfig))
	return session, conn
}

func TestPipelineDelay(t *testing.T) {
	p := NewPipeline(NewContext())
	assert.Equal(t, 2500*time.Millisecond, p.Delay(TaskTalk))
	assert.Equal(t, 1500*time.Millisecond, p.Delay(TaskRepeat))

	p = NewPipeline(NewContext(), WithDelays(40*time.Millisecond, 10*time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, p.Delay(TaskTalk))
	assert.Equal(t, 30*time.Millisecond, p.Delay(TaskRepeat))
}

func TestPipelineNotConnected(t *testing.T) {
	p := NewPipeline(NewContext(), WithDelays(0, 0))
	assert.ErrorIs(t, p.Talk(context.Background(), "hello"), ErrNotConnected)
}

func TestPipelineSyncModes(t *testing.T) {
	session, conn := connectedSession(t)
	p := NewPipeline(session, WithDelays(10*time.Millisecond, time.Millisecond))

	start := time.Now()
	require.NoError(t, p.RepeatSync(context.Background(), "verbatim"))
	assert.GreaterOrEqual(t, time.Since(start), 6*time.Millisecond)

	require.NoError(t, p.TalkSync(context.Background(), "answer me"))

	spoken := conn.Spoken()
	require.Len(t, spoken, 2)
	assert.Equal(t, SpeakRequest{Text: "verbatim", Type: TaskRepeat, Mode: TaskSync}, spoken[0])
	assert.Equal(t, SpeakRequest{Text: "answer me", Type: TaskTalk, Mode: TaskSync}, spoken[1])
}

func TestPipelineAsync(t *testing.T) {
	session, conn := connectedSession(t)
	p := NewPipeline(session, WithDelays(time.Millisecond, 0))

	require.NoError(t, p.Talk(context.Background(), "hello"))
	require.NoError(t, p.Repeat(context.Background(), "again"))

	require.Eventually(t, func() bool { return len(conn.Spoken()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []SpeakRequest{
		{Text: "hello", Type: TaskTalk, Mode: TaskAsync},
		{Text: "again", Type: TaskRepeat, Mode: TaskAsync},
	}, conn.Spoken())
}

func TestPipelineConcurrentSends(t *testing.T) {
	session, conn := connectedSession(t)
	p := NewPipeline(session, WithDelays(20*time.Millisecond, 5*time.Millisecond))

	texts := []string{"first question", "second question"}
	var wg sync.WaitGroup
	errs := make([]error, len(texts))
	for i, text := range texts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.TalkSync(context.Background(), text)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	spoken := conn.Spoken()
	require.Len(t, spoken, 2)
	got := []string{spoken[0].Text, spoken[1].Text}
	assert.ElementsMatch(t, texts, got)
}

func TestPipelineCancelledWhileWaiting(t *testing.T) {
	session, conn := connectedSession(t)
	p := NewPipeline(session)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Talk(ctx, "never"), context.Canceled)
	assert.Empty(t, conn.Spoken())
}

func TestPipelineSessionStoppedWhileWaiting(t *testing.T) {
	conn := newFakeConn()
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), &fakeDialer{conn: conn})
	require.NoError(t, o.Start(context.Background(), testConfig))

	p := NewPipeline(session, WithDelays(50*time.Millisecond, 0))
	errCh := make(chan error, 1)
	go func() { errCh <- p.TalkSync(context.Background(), "too late") }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, o.Stop(context.Background()))

	assert.ErrorIs(t, <-errCh, ErrNotConnected)
	assert.Empty(t, conn.Spoken())
}
