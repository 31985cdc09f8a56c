package avatar

import "time"

// EventKind identifies a connection event
type EventKind int

const (
	EventAvatarStartTalking EventKind = iota + 1
	EventAvatarStopTalking
	EventAvatarTalkingMessage
	EventAvatarEndMessage
	EventUserStart
	EventUserStop
	EventUserTalkingMessage
	EventUserEndMessage
	EventStreamReady
	EventStreamDisconnected
)

var eventKindNames = map[EventKind]string{
	EventAvatarStartTalking:   "avatar_start_talking",
	EventAvatarStopTalking:    "avatar_stop_talking",
	EventAvatarTalkingMessage: "avatar_talking_message",
	EventAvatarEndMessage:     "avatar_end_message",
	EventUserStart:            "user_start",
	EventUserStop:             "user_stop",
	EventUserTalkingMessage:   "user_talking_message",
	EventUserEndMessage:       "user_end_message",
	EventStreamReady:          "stream_ready",
	EventStreamDisconnected:   "stream_disconnected",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEventKind maps a wire event name to its kind
func ParseEventKind(name string) (EventKind, bool) {
	for k, n := range eventKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Event is one notification from a live connection
type Event struct {
	Kind   EventKind
	TaskID string
	Text   string // message chunk for talking-message events
	At     time.Time
}
