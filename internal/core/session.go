package core

import (
	"sync"
	"sync/atomic"

	"github.com/edunexus/server/internal/store"
)

// Session is one client's live connection state, independent of the
// underlying transport. Identity is resolved once at connect time and
// never re-verified per message.
type Session struct {
	ID     string
	UserID int64
	Name   string
	Email  string
	Role   store.Role

	Commands chan *Command
	Events   chan *Event

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewSession constructs a session with initialized channels.
func NewSession(id string, userID int64, name, email string, role store.Role) *Session {
	return &Session{
		ID:       id,
		UserID:   userID,
		Name:     name,
		Email:    email,
		Role:     role,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
	}
}

// closeCommands marks the session closed and closes the command channel
// exactly once. A closed session processes no further commands.
func (s *Session) closeCommands() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.Commands)
	})
}

func (s *Session) isClosed() bool {
	return s.closed.Load()
}

func (s *Session) deliver(event *Event) {
	select {
	case s.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
