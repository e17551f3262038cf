package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinCourse  = "join-course"
	InboundTypeSendMessage = "send-message"
	InboundTypeLeaveCourse = "leave-course"

	OutboundTypePreviousMessages = "previous-messages"
	OutboundTypeNewMessage       = "new-message"
	OutboundTypeError            = "error"
)

// JoinCourseData requests to join a course's chat room. It doubles as
// the leave-course payload.
type JoinCourseData struct {
	CourseID string `json:"courseId"`
}

// SendMessageData is a chat message from the client. SenderID is
// optional; when present it must match the authenticated user.
type SendMessageData struct {
	CourseID string `json:"courseId"`
	SenderID string `json:"senderId,omitempty"`
	Content  string `json:"content"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// SenderPayload is the resolved identity attached to a message.
type SenderPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// MessagePayload is a single chat message as delivered to clients.
type MessagePayload struct {
	ID        string        `json:"id"`
	CourseID  string        `json:"courseId"`
	Content   string        `json:"content"`
	CreatedAt string        `json:"createdAt"`
	Sender    SenderPayload `json:"sender"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
