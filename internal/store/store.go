package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by implementations when a referenced entity does
// not exist. Callers detect it with errors.Is.
var ErrNotFound = errors.New("not found")

// Role is the platform role of a user.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Course represents a course taught by an instructor.
type Course struct {
	ID           int64
	Title        string
	Description  string
	Category     string
	InstructorID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CourseDetail is a course with its instructor resolved for display.
type CourseDetail struct {
	Course
	InstructorName  string
	InstructorEmail string
}

// Message is a persisted chat message. Messages are append-only: no
// update or delete path exists in the chat subsystem.
type Message struct {
	ID        int64
	CourseID  int64
	SenderID  int64
	Content   string
	CreatedAt time.Time
}

// Sender is the display identity attached to an outbound message.
type Sender struct {
	Name  string
	Email string
	Role  Role
}

// CourseMessage is a message with its sender resolved.
type CourseMessage struct {
	Message
	Sender Sender
}

// Stats aggregates platform counts for the admin console.
type Stats struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalCourses     int64 `json:"totalCourses"`
	TotalMessages    int64 `json:"totalMessages"`
	TotalEnrollments int64 `json:"totalEnrollments"`
	StudentCount     int64 `json:"studentCount"`
	InstructorCount  int64 `json:"instructorCount"`
	AdminCount       int64 `json:"adminCount"`
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new user with a pre-hashed password.
	CreateUser(ctx context.Context, name, email, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// ListUsers returns all users, newest first.
	ListUsers(ctx context.Context) ([]*User, error)

	// UpdateUserRole changes a user's role.
	UpdateUserRole(ctx context.Context, id int64, role Role) error

	// DeleteUser removes a user together with their enrollments.
	DeleteUser(ctx context.Context, id int64) error
}

// CourseStore handles course and enrollment persistence.
type CourseStore interface {
	// CreateCourse creates a new course owned by an instructor.
	CreateCourse(ctx context.Context, title, description, category string, instructorID int64) (*Course, error)

	// GetCourseByID retrieves a course by ID.
	GetCourseByID(ctx context.Context, id int64) (*Course, error)

	// ListCourses returns all courses with instructors resolved, newest first.
	ListCourses(ctx context.Context) ([]*CourseDetail, error)

	// ListCoursesByInstructor returns the courses taught by the given user.
	ListCoursesByInstructor(ctx context.Context, instructorID int64) ([]*Course, error)

	// ListEnrolledCourses returns the courses the user is enrolled in.
	ListEnrolledCourses(ctx context.Context, userID int64) ([]*CourseDetail, error)

	// UpdateCourse replaces a course's mutable fields.
	UpdateCourse(ctx context.Context, id int64, title, description, category string) (*Course, error)

	// DeleteCourse removes a course, its enrollments and its messages.
	DeleteCourse(ctx context.Context, id int64) error

	// Enroll adds a user to a course. Enrolling twice is an error.
	Enroll(ctx context.Context, courseID, userID int64) error

	// IsEnrolled reports whether the user is enrolled in the course.
	IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// AppendMessage persists a new message and returns it with a
	// server-assigned id, timestamp and resolved sender.
	AppendMessage(ctx context.Context, courseID, senderID int64, content string) (*CourseMessage, error)

	// RecentMessages returns up to limit most recent messages for a
	// course, ordered oldest-to-newest, senders resolved. A course with
	// no messages yields an empty slice, not an error.
	RecentMessages(ctx context.Context, courseID int64, limit int) ([]*CourseMessage, error)
}

// AdminStore exposes aggregate platform statistics.
type AdminStore interface {
	// GetStats returns platform-wide counts.
	GetStats(ctx context.Context) (*Stats, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	CourseStore
	MessageStore
	AdminStore

	// Close closes the underlying database connection.
	Close() error
}
