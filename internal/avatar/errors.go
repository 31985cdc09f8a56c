package avatar

import "errors"

var (
	// ErrSessionActive is returned by Start when the Context already holds a connecting or connected session
	ErrSessionActive = errors.New("avatar session already active")

	// ErrStartAborted is returned by Start when Stop interrupts the attempt
	ErrStartAborted = errors.New("avatar session start aborted")

	// ErrNotConnected is returned when a message is sent without a live connection
	ErrNotConnected = errors.New("avatar session not connected")
)
