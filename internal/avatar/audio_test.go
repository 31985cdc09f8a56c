package avatar

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type audioConn struct {
	*fakeConn
	mu     sync.Mutex
	frames [][]byte
}

func (c *audioConn) SendAudio(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, pcm)
	return nil
}

func TestStreamAudio(t *testing.T) {
	conn := &audioConn{fakeConn: newFakeConn()}
	session := NewContext()
	o := NewOrchestrator(session, staticToken("tok"), connDialer{conn})
	require.NoError(t, o.Start(context.Background(), testConfig))
	defer o.Stop(context.Background())

	input := bytes.Repeat([]byte{7}, 10)
	require.NoError(t, StreamAudio(context.Background(), session, bytes.NewReader(input), 4))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.frames, 3)
	assert.Len(t, conn.frames[0], 4)
	assert.Len(t, conn.frames[2], 2)
}

func TestStreamAudioWithoutConnection(t *testing.T) {
	session := NewContext()
	assert.NoError(t, StreamAudio(context.Background(), session, bytes.NewReader(make([]byte, 100)), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, StreamAudio(ctx, session, bytes.NewReader(make([]byte, 100)), 0), context.Canceled)
}

type connDialer struct{ conn Connection }

func (d connDialer) Dial(ctx context.Context, token string, cfg StartConfig) (Connection, error) {
	return d.conn, nil
}
