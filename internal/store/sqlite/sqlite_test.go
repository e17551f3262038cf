package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/edunexus/server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func seedUser(t *testing.T, s *SQLiteStore, name string, role store.Role) *store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), name, name+"@example.com", "hash", role)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func seedCourse(t *testing.T, s *SQLiteStore, title string, instructorID int64) *store.Course {
	t.Helper()

	course, err := s.CreateCourse(context.Background(), title, "about "+title, "General", instructorID)
	if err != nil {
		t.Fatalf("failed to create course %s: %v", title, err)
	}
	return course
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := seedUser(t, s, "alice", store.RoleStudent)
	if created.ID == 0 {
		t.Fatal("expected assigned user id")
	}

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.Name != "alice" || byEmail.Role != store.RoleStudent {
		t.Fatalf("unexpected user: %+v", byEmail)
	}

	if _, err := s.GetUserByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "alice", store.RoleStudent)
	if _, err := s.CreateUser(ctx, "other", "alice@example.com", "hash", store.RoleStudent); err == nil {
		t.Fatal("expected duplicate email error")
	}
}

func TestUpdateUserRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", store.RoleStudent)
	if err := s.UpdateUserRole(ctx, alice.ID, store.RoleInstructor); err != nil {
		t.Fatalf("UpdateUserRole failed: %v", err)
	}

	updated, err := s.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if updated.Role != store.RoleInstructor {
		t.Fatalf("expected instructor role, got %s", updated.Role)
	}

	if err := s.UpdateUserRole(ctx, 999, store.RoleAdmin); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnrollment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	student := seedUser(t, s, "alice", store.RoleStudent)
	course := seedCourse(t, s, "Go 101", instructor.ID)

	enrolled, err := s.IsEnrolled(ctx, course.ID, student.ID)
	if err != nil {
		t.Fatalf("IsEnrolled failed: %v", err)
	}
	if enrolled {
		t.Fatal("expected not enrolled before Enroll")
	}

	if err := s.Enroll(ctx, course.ID, student.ID); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	enrolled, err = s.IsEnrolled(ctx, course.ID, student.ID)
	if err != nil {
		t.Fatalf("IsEnrolled failed: %v", err)
	}
	if !enrolled {
		t.Fatal("expected enrolled after Enroll")
	}

	// Double enrollment violates the primary key.
	if err := s.Enroll(ctx, course.ID, student.ID); err == nil {
		t.Fatal("expected duplicate enrollment error")
	}

	courses, err := s.ListEnrolledCourses(ctx, student.ID)
	if err != nil {
		t.Fatalf("ListEnrolledCourses failed: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != course.ID {
		t.Fatalf("unexpected enrolled courses: %+v", courses)
	}
	if courses[0].InstructorName != "bob" {
		t.Fatalf("expected instructor resolved, got %+v", courses[0])
	}
}

func TestAppendMessageResolvesSender(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	course := seedCourse(t, s, "Go 101", instructor.ID)

	msg, err := s.AppendMessage(ctx, course.ID, instructor.ID, "welcome everyone")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if msg.ID == 0 {
		t.Fatal("expected assigned message id")
	}
	if msg.CourseID != course.ID || msg.SenderID != instructor.ID || msg.Content != "welcome everyone" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.CreatedAt.IsZero() {
		t.Fatal("expected assigned timestamp")
	}
	if msg.Sender.Name != "bob" || msg.Sender.Email != "bob@example.com" || msg.Sender.Role != store.RoleInstructor {
		t.Fatalf("unexpected sender: %+v", msg.Sender)
	}
}

func TestAppendMessageUnknownCourse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", store.RoleStudent)
	if _, err := s.AppendMessage(ctx, 999, alice.ID, "hello"); err == nil {
		t.Fatal("expected foreign key error for unknown course")
	}
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	course := seedCourse(t, s, "Go 101", instructor.ID)
	other := seedCourse(t, s, "Go 201", instructor.ID)

	for i := 0; i < 10; i++ {
		if _, err := s.AppendMessage(ctx, course.ID, instructor.ID, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}
	if _, err := s.AppendMessage(ctx, other.ID, instructor.ID, "other course"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	messages, err := s.RecentMessages(ctx, course.ID, 4)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}

	// The 4 most recent, oldest first.
	for i, want := range []string{"msg-6", "msg-7", "msg-8", "msg-9"} {
		if messages[i].Content != want {
			t.Errorf("expected %s at index %d, got %s", want, i, messages[i].Content)
		}
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("messages not ascending at index %d", i)
		}
	}

	// Repeated reads with no intervening writes are identical.
	again, err := s.RecentMessages(ctx, course.ID, 4)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	for i := range messages {
		if messages[i].ID != again[i].ID {
			t.Fatalf("expected identical results on repeat call at index %d", i)
		}
	}
}

func TestRecentMessagesEmptyCourse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	course := seedCourse(t, s, "Go 101", instructor.ID)

	messages, err := s.RecentMessages(ctx, course.ID, 50)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty history, got %d messages", len(messages))
	}
}

func TestDeleteCourseCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	student := seedUser(t, s, "alice", store.RoleStudent)
	course := seedCourse(t, s, "Go 101", instructor.ID)

	if err := s.Enroll(ctx, course.ID, student.ID); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if _, err := s.AppendMessage(ctx, course.ID, student.ID, "hi"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := s.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("DeleteCourse failed: %v", err)
	}

	if _, err := s.GetCourseByID(ctx, course.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalMessages != 0 || stats.TotalEnrollments != 0 {
		t.Fatalf("expected cascaded delete, got %+v", stats)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	student := seedUser(t, s, "alice", store.RoleStudent)
	seedUser(t, s, "admin", store.RoleAdmin)
	course := seedCourse(t, s, "Go 101", instructor.ID)

	if err := s.Enroll(ctx, course.ID, student.ID); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if _, err := s.AppendMessage(ctx, course.ID, student.ID, "hi"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.TotalUsers != 3 || stats.TotalCourses != 1 || stats.TotalMessages != 1 || stats.TotalEnrollments != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.StudentCount != 1 || stats.InstructorCount != 1 || stats.AdminCount != 1 {
		t.Fatalf("unexpected role counts: %+v", stats)
	}
}

func TestDeleteUserRemovesOwnedData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	instructor := seedUser(t, s, "bob", store.RoleInstructor)
	alice := seedUser(t, s, "alice", store.RoleStudent)
	course := seedCourse(t, s, "Go 101", instructor.ID)

	if err := s.Enroll(ctx, course.ID, alice.ID); err != nil {
		t.Fatalf("failed to enroll: %v", err)
	}
	if _, err := s.AppendMessage(ctx, course.ID, alice.ID, "hi from alice"); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}
	if _, err := s.AppendMessage(ctx, course.ID, instructor.ID, "welcome"); err != nil {
		t.Fatalf("failed to append message: %v", err)
	}

	// Deleting a student with sent messages takes their messages and
	// enrollment along, leaving the course and other senders intact.
	if err := s.DeleteUser(ctx, alice.ID); err != nil {
		t.Fatalf("failed to delete user with messages: %v", err)
	}
	if _, err := s.GetUserByID(ctx, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected user gone, got %v", err)
	}
	enrolled, err := s.IsEnrolled(ctx, course.ID, alice.ID)
	if err != nil || enrolled {
		t.Fatalf("expected enrollment gone, got enrolled=%v err=%v", enrolled, err)
	}
	remaining, err := s.RecentMessages(ctx, course.ID, 10)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(remaining) != 1 || remaining[0].SenderID != instructor.ID {
		t.Fatalf("expected only the instructor's message, got %+v", remaining)
	}

	// Deleting an instructor removes their courses and those courses'
	// messages with them.
	if err := s.DeleteUser(ctx, instructor.ID); err != nil {
		t.Fatalf("failed to delete instructor: %v", err)
	}
	if _, err := s.GetCourseByID(ctx, course.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected course gone, got %v", err)
	}
}
