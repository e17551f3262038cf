package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinCourse subscribes the session to a course room.
	CommandJoinCourse CommandKind = iota
	// CommandSendMessage persists a chat message and fans it out.
	CommandSendMessage
	// CommandLeaveCourse unsubscribes the session from a course room.
	CommandLeaveCourse
)

// Command represents an action requested by a client session.
type Command struct {
	Kind     CommandKind
	CourseID int64
	Content  string
}
