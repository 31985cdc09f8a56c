package avatar

import (
	"context"
	"errors"
	"io"
)

// AudioFrameSize is 100ms of 16 kHz, 16-bit mono PCM
const AudioFrameSize = 3200

// AudioSink is implemented by connections that accept microphone audio
type AudioSink interface {
	SendAudio(pcm []byte) error
}

// StreamAudio reads PCM frames from r and hands each one to the session's live
// connection. Frames read while no connection is live, or whose connection is
// not an AudioSink, are dropped. It returns nil at end of input.
func StreamAudio(ctx context.Context, session *Context, r io.Reader, frameSize int) error {
	if frameSize <= 0 {
		frameSize = AudioFrameSize
	}
	buf := make([]byte, frameSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if sink, ok := session.Connection().(AudioSink); ok {
				if serr := sink.SendAudio(append([]byte(nil), buf[:n]...)); serr != nil {
					return serr
				}
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
