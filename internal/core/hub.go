package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/edunexus/server/internal/store"
)

const (
	defaultHistoryLimit     = 50
	defaultMaxMessageLength = 2000
)

// CourseDirectory is the slice of course storage the hub needs for
// join-time authorization: existence and enrollment checks.
type CourseDirectory interface {
	GetCourseByID(ctx context.Context, id int64) (*store.Course, error)
	IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
}

// HubConfig carries the chat limits. Zero values fall back to defaults.
type HubConfig struct {
	HistoryLimit     int
	MaxMessageLength int
}

// Hub interprets session commands against the room registry and the
// message store, and emits events back to sessions. Each registered
// session gets its own worker goroutine consuming its commands in order,
// so a stalled store call delays only the session that issued it.
type Hub struct {
	registry *Registry
	messages store.MessageStore
	courses  CourseDirectory
	log      *zerolog.Logger
	cfg      HubConfig

	mu          sync.Mutex
	baseCtx     context.Context
	courseLocks map[int64]*sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub over the given stores.
func NewHub(messages store.MessageStore, courses CourseDirectory, logger *zerolog.Logger, cfg HubConfig) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaultMaxMessageLength
	}

	return &Hub{
		registry:    NewRegistry(),
		messages:    messages,
		courses:     courses,
		log:         logger,
		cfg:         cfg,
		courseLocks: make(map[int64]*sync.Mutex),
		done:        make(chan struct{}),
	}
}

// Registry exposes the hub's room registry for transport-side inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run blocks until the context is cancelled, then stops all session
// workers. In-flight store writes are not cancelled mid-operation by
// session disconnects; only hub shutdown cancels them.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.baseCtx = ctx
	h.mu.Unlock()

	<-ctx.Done()
	h.stopOnce.Do(func() { close(h.done) })
}

// Register starts processing the session's commands. The caller owns the
// Commands channel and must close it (or call Unregister) when the
// underlying transport goes away.
func (h *Hub) Register(s *Session) {
	go h.worker(s)
}

// Unregister removes the session from any room it occupies and stops its
// worker. Idempotent.
func (h *Hub) Unregister(s *Session) {
	h.registry.LeaveAll(s.ID)
	// The transport has stopped reading, so nothing sends into Commands
	// anymore and closing it lets the worker drain and exit.
	s.closeCommands()
}

func (h *Hub) worker(s *Session) {
	// A command in flight during Unregister may re-join the session after
	// LeaveAll ran; this final cleanup is the authoritative one.
	defer h.registry.LeaveAll(s.ID)

	for {
		select {
		case cmd, ok := <-s.Commands:
			if !ok {
				return
			}
			if s.isClosed() {
				// Drain commands buffered before disconnect without
				// acting on them.
				continue
			}
			h.dispatch(s, cmd)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) context() context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.baseCtx != nil {
		return h.baseCtx
	}
	return context.Background()
}

func (h *Hub) dispatch(s *Session, cmd *Command) {
	ctx := h.context()

	switch cmd.Kind {
	case CommandJoinCourse:
		h.joinCourse(ctx, s, cmd.CourseID)
	case CommandSendMessage:
		h.sendMessage(ctx, s, cmd)
	case CommandLeaveCourse:
		h.registry.Leave(s.ID, cmd.CourseID)
	}
}

// joinCourse authorizes the session for the course, records membership
// and replays recent history to the joining session only.
func (h *Hub) joinCourse(ctx context.Context, s *Session, courseID int64) {
	course, err := h.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.deliver(&Event{Kind: EventError, CourseID: courseID, Error: coreError(ErrCodeCourseNotFound, "course not found")})
			return
		}
		h.log.Error().Err(err).Int64("course_id", courseID).Msg("course lookup failed")
		s.deliver(&Event{Kind: EventError, CourseID: courseID, Error: coreError(ErrCodePersistence, "course lookup failed")})
		return
	}

	if !h.mayJoin(ctx, s, course) {
		s.deliver(&Event{Kind: EventError, CourseID: courseID, Error: coreError(ErrCodeNotEnrolled, "not enrolled in this course")})
		return
	}

	h.registry.Join(s, courseID)

	history, err := h.messages.RecentMessages(ctx, courseID, h.cfg.HistoryLimit)
	if err != nil {
		// Membership is already granted; history degrades to empty
		// rather than failing the join.
		h.log.Warn().Err(err).Int64("course_id", courseID).Str("session_id", s.ID).Msg("history fetch failed")
		history = nil
	}

	messages := make([]Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, fromStoreMessage(m))
	}

	s.deliver(&Event{Kind: EventHistory, CourseID: courseID, Messages: messages})
}

func (h *Hub) mayJoin(ctx context.Context, s *Session, course *store.Course) bool {
	if s.Role == store.RoleAdmin || course.InstructorID == s.UserID {
		return true
	}

	enrolled, err := h.courses.IsEnrolled(ctx, course.ID, s.UserID)
	if err != nil {
		h.log.Error().Err(err).Int64("course_id", course.ID).Int64("user_id", s.UserID).Msg("enrollment lookup failed")
		return false
	}
	return enrolled
}

// sendMessage validates, persists and fans out a chat message. A failed
// append is never partially visible: no broadcast happens for it.
func (h *Hub) sendMessage(ctx context.Context, s *Session, cmd *Command) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		s.deliver(&Event{Kind: EventError, CourseID: cmd.CourseID, Error: coreError(ErrCodeBadRequest, "content is required")})
		return
	}
	if utf8.RuneCountInString(content) > h.cfg.MaxMessageLength {
		s.deliver(&Event{Kind: EventError, CourseID: cmd.CourseID, Error: coreError(ErrCodeMessageTooLong, "message exceeds length limit")})
		return
	}

	// Sending requires current membership in the target course room.
	if cur, ok := h.registry.RoomOf(s.ID); !ok || cur != cmd.CourseID {
		s.deliver(&Event{Kind: EventError, CourseID: cmd.CourseID, Error: coreError(ErrCodeNotInCourse, "join the course before sending")})
		return
	}

	// The append and the fan-out happen under a per-course lock so every
	// member observes messages in persistence order. Different courses
	// proceed independently.
	lock := h.courseLock(cmd.CourseID)
	lock.Lock()
	defer lock.Unlock()

	saved, err := h.messages.AppendMessage(ctx, cmd.CourseID, s.UserID, content)
	if err != nil {
		h.log.Error().Err(err).Int64("course_id", cmd.CourseID).Str("session_id", s.ID).Msg("message append failed")
		s.deliver(&Event{Kind: EventError, CourseID: cmd.CourseID, Error: coreError(ErrCodePersistence, "message could not be saved")})
		return
	}

	msg := fromStoreMessage(saved)
	event := &Event{Kind: EventNewMessage, CourseID: cmd.CourseID, Message: &msg}
	for _, member := range h.registry.MembersOf(cmd.CourseID) {
		member.deliver(event)
	}
}

func (h *Hub) courseLock(courseID int64) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.courseLocks[courseID]
	if !ok {
		lock = &sync.Mutex{}
		h.courseLocks[courseID] = lock
	}
	return lock
}
