package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/edunexus/server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after
// the schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with a pre-hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, name, email, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, role)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, email, passwordHash, role)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ListUsers returns all users, newest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateUserRole changes a user's role.
func (s *SQLiteStore) UpdateUserRole(ctx context.Context, id int64, role store.Role) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user: %w", store.ErrNotFound)
	}

	return nil
}

// DeleteUser removes a user together with everything they own: courses
// they teach (whose messages and enrollments cascade), messages they sent
// in other courses, and their enrollments.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM courses WHERE instructor_id = ?`, id); err != nil {
		return fmt.Errorf("delete taught courses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE sender_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user: %w", store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ==== CourseStore implementation ====

// CreateCourse creates a new course owned by an instructor.
func (s *SQLiteStore) CreateCourse(ctx context.Context, title, description, category string, instructorID int64) (*store.Course, error) {
	if category == "" {
		category = "General"
	}
	query := `
		INSERT INTO courses (title, description, category, instructor_id)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, title, description, category, instructorID)
	if err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetCourseByID(ctx, id)
}

// GetCourseByID retrieves a course by ID.
func (s *SQLiteStore) GetCourseByID(ctx context.Context, id int64) (*store.Course, error) {
	query := `
		SELECT id, title, description, category, instructor_id, created_at, updated_at
		FROM courses
		WHERE id = ?
	`
	var course store.Course
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Category,
		&course.InstructorID,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("course: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query course: %w", err)
	}

	return &course, nil
}

// ListCourses returns all courses with instructors resolved, newest first.
func (s *SQLiteStore) ListCourses(ctx context.Context) ([]*store.CourseDetail, error) {
	query := `
		SELECT c.id, c.title, c.description, c.category, c.instructor_id,
		       c.created_at, c.updated_at, u.name, u.email
		FROM courses c
		JOIN users u ON u.id = c.instructor_id
		ORDER BY c.created_at DESC, c.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	return scanCourseDetails(rows)
}

// ListCoursesByInstructor returns the courses taught by the given user.
func (s *SQLiteStore) ListCoursesByInstructor(ctx context.Context, instructorID int64) ([]*store.Course, error) {
	query := `
		SELECT id, title, description, category, instructor_id, created_at, updated_at
		FROM courses
		WHERE instructor_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, instructorID)
	if err != nil {
		return nil, fmt.Errorf("query instructor courses: %w", err)
	}
	defer rows.Close()

	courses := make([]*store.Course, 0)
	for rows.Next() {
		var course store.Course
		if err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Description,
			&course.Category,
			&course.InstructorID,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, &course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return courses, nil
}

// ListEnrolledCourses returns the courses the user is enrolled in.
func (s *SQLiteStore) ListEnrolledCourses(ctx context.Context, userID int64) ([]*store.CourseDetail, error) {
	query := `
		SELECT c.id, c.title, c.description, c.category, c.instructor_id,
		       c.created_at, c.updated_at, u.name, u.email
		FROM courses c
		JOIN enrollments e ON e.course_id = c.id
		JOIN users u ON u.id = c.instructor_id
		WHERE e.user_id = ?
		ORDER BY e.enrolled_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query enrolled courses: %w", err)
	}
	defer rows.Close()

	return scanCourseDetails(rows)
}

func scanCourseDetails(rows *sql.Rows) ([]*store.CourseDetail, error) {
	courses := make([]*store.CourseDetail, 0)
	for rows.Next() {
		var c store.CourseDetail
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.Category,
			&c.InstructorID,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.InstructorName,
			&c.InstructorEmail,
		); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate courses: %w", err)
	}

	return courses, nil
}

// UpdateCourse replaces a course's mutable fields.
func (s *SQLiteStore) UpdateCourse(ctx context.Context, id int64, title, description, category string) (*store.Course, error) {
	query := `
		UPDATE courses
		SET title = ?, description = ?, category = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, title, description, category, id)
	if err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("course: %w", store.ErrNotFound)
	}

	return s.GetCourseByID(ctx, id)
}

// DeleteCourse removes a course, its enrollments and its messages.
func (s *SQLiteStore) DeleteCourse(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("course: %w", store.ErrNotFound)
	}

	return nil
}

// Enroll adds a user to a course. Enrolling twice is an error.
func (s *SQLiteStore) Enroll(ctx context.Context, courseID, userID int64) error {
	query := `
		INSERT INTO enrollments (course_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, courseID, userID); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	return nil
}

// IsEnrolled reports whether the user is enrolled in the course.
func (s *SQLiteStore) IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM enrollments
		WHERE course_id = ? AND user_id = ?
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, courseID, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("query enrollment: %w", err)
	}

	return count > 0, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a new message and returns it with a
// server-assigned id, timestamp and resolved sender.
func (s *SQLiteStore) AppendMessage(ctx context.Context, courseID, senderID int64, content string) (*store.CourseMessage, error) {
	// CURRENT_TIMESTAMP has second precision, which is too coarse to
	// order messages within a busy course. Assign the timestamp here.
	createdAt := time.Now().UTC()

	query := `
		INSERT INTO messages (course_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, courseID, senderID, content, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getMessage(ctx, id)
}

func (s *SQLiteStore) getMessage(ctx context.Context, id int64) (*store.CourseMessage, error) {
	query := `
		SELECT m.id, m.course_id, m.sender_id, m.content, m.created_at,
		       u.name, u.email, u.role
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?
	`
	var msg store.CourseMessage
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.CourseID,
		&msg.SenderID,
		&msg.Content,
		&msg.CreatedAt,
		&msg.Sender.Name,
		&msg.Sender.Email,
		&msg.Sender.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	return &msg, nil
}

// RecentMessages returns up to limit most recent messages for a course,
// ordered oldest-to-newest, senders resolved.
func (s *SQLiteStore) RecentMessages(ctx context.Context, courseID int64, limit int) ([]*store.CourseMessage, error) {
	query := `
		SELECT m.id, m.course_id, m.sender_id, m.content, m.created_at,
		       u.name, u.email, u.role
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.course_id = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, courseID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.CourseMessage, 0)
	for rows.Next() {
		var msg store.CourseMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.CourseID,
			&msg.SenderID,
			&msg.Content,
			&msg.CreatedAt,
			&msg.Sender.Name,
			&msg.Sender.Email,
			&msg.Sender.Role,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Query returns newest first for the LIMIT; callers want ascending.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ==== AdminStore implementation ====

// GetStats returns platform-wide counts.
func (s *SQLiteStore) GetStats(ctx context.Context) (*store.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM enrollments),
			(SELECT COUNT(*) FROM users WHERE role = 'student'),
			(SELECT COUNT(*) FROM users WHERE role = 'instructor'),
			(SELECT COUNT(*) FROM users WHERE role = 'admin')
	`
	var stats store.Stats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.TotalCourses,
		&stats.TotalMessages,
		&stats.TotalEnrollments,
		&stats.StudentCount,
		&stats.InstructorCount,
		&stats.AdminCount,
	)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	return &stats, nil
}
