package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/edunexus/server/internal/store"
)

// mustEvent reads events from the channel until one of the wanted kind
// arrives, failing the test on timeout.
func mustEvent(t *testing.T, events chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
			return nil
		}
	}
}

// mustNoEvent asserts that no event arrives within the window.
func mustNoEvent(t *testing.T, events chan *Event) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("expected no event, got kind %d: %+v", ev.Kind, ev)
	case <-time.After(150 * time.Millisecond):
	}
}

// fakeMessageStore is an in-memory store.MessageStore that counts calls.
type fakeMessageStore struct {
	mu          sync.Mutex
	nextID      int64
	messages    map[int64][]*store.CourseMessage
	senders     map[int64]store.Sender
	appendCalls int
	failAppend  bool
	failHistory bool
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		messages: make(map[int64][]*store.CourseMessage),
		senders:  make(map[int64]store.Sender),
	}
}

func (f *fakeMessageStore) AppendMessage(_ context.Context, courseID, senderID int64, content string) (*store.CourseMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.appendCalls++
	if f.failAppend {
		return nil, errors.New("store unavailable")
	}

	f.nextID++
	msg := &store.CourseMessage{
		Message: store.Message{
			ID:        f.nextID,
			CourseID:  courseID,
			SenderID:  senderID,
			Content:   content,
			CreatedAt: time.Now().UTC(),
		},
		Sender: f.senders[senderID],
	}
	f.messages[courseID] = append(f.messages[courseID], msg)
	return msg, nil
}

func (f *fakeMessageStore) RecentMessages(_ context.Context, courseID int64, limit int) ([]*store.CourseMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failHistory {
		return nil, errors.New("store unavailable")
	}

	all := f.messages[courseID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*store.CourseMessage, len(all))
	copy(out, all)
	return out, nil
}

func (f *fakeMessageStore) appendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendCalls
}

// fakeCourseDirectory is an in-memory CourseDirectory. When lookupGate
// is set, GetCourseByID blocks until the gate is closed, simulating a
// slow store call.
type fakeCourseDirectory struct {
	mu         sync.Mutex
	courses    map[int64]*store.Course
	enrolled   map[int64]map[int64]bool
	lookupGate chan struct{}
}

func newFakeCourseDirectory() *fakeCourseDirectory {
	return &fakeCourseDirectory{
		courses:  make(map[int64]*store.Course),
		enrolled: make(map[int64]map[int64]bool),
	}
}

func (f *fakeCourseDirectory) addCourse(id, instructorID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses[id] = &store.Course{
		ID:           id,
		Title:        fmt.Sprintf("course-%d", id),
		InstructorID: instructorID,
	}
}

func (f *fakeCourseDirectory) enroll(courseID, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enrolled[courseID] == nil {
		f.enrolled[courseID] = make(map[int64]bool)
	}
	f.enrolled[courseID][userID] = true
}

func (f *fakeCourseDirectory) setLookupGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupGate = gate
}

func (f *fakeCourseDirectory) GetCourseByID(_ context.Context, id int64) (*store.Course, error) {
	f.mu.Lock()
	gate := f.lookupGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	course, ok := f.courses[id]
	if !ok {
		return nil, fmt.Errorf("course: %w", store.ErrNotFound)
	}
	return course, nil
}

func (f *fakeCourseDirectory) IsEnrolled(_ context.Context, courseID, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enrolled[courseID][userID], nil
}

// testHub wires a hub over fakes with one enrolled course.
func testHub(t *testing.T) (*Hub, *fakeMessageStore, *fakeCourseDirectory) {
	t.Helper()

	messages := newFakeMessageStore()
	courses := newFakeCourseDirectory()
	hub := NewHub(messages, courses, nil, HubConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub, messages, courses
}

func newStudentSession(id string, userID int64, name string) *Session {
	return NewSession(id, userID, name, name+"@example.com", store.RoleStudent)
}
