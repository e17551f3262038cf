package core

// Error codes for domain errors surfaced to clients.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeCourseNotFound = "course_not_found"
	ErrCodeNotEnrolled    = "not_enrolled"
	ErrCodeNotInCourse    = "not_in_course"
	ErrCodeMessageTooLong = "message_too_long"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodePersistence    = "persistence_failed"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
