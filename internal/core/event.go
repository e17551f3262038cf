package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventHistory delivers the recent message backlog to a session
	// immediately after it joins a course room. Unicast only.
	EventHistory EventKind = iota
	// EventNewMessage notifies room members about a persisted message.
	EventNewMessage
	// EventError notifies the originating session about a failure.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind     EventKind
	CourseID int64
	Message  *Message  // for EventNewMessage
	Messages []Message // for EventHistory
	Error    *CoreError
}
