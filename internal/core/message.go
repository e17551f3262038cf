package core

import (
	"time"

	"github.com/edunexus/server/internal/store"
)

// Sender is the resolved display identity of a message author.
type Sender struct {
	Name  string
	Email string
	Role  store.Role
}

// Message is the composed outbound value for a chat message: the
// persisted fields plus the resolved sender, built once per event.
type Message struct {
	ID        int64
	CourseID  int64
	SenderID  int64
	Content   string
	CreatedAt time.Time
	Sender    Sender
}

func fromStoreMessage(m *store.CourseMessage) Message {
	return Message{
		ID:        m.ID,
		CourseID:  m.CourseID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		Sender: Sender{
			Name:  m.Sender.Name,
			Email: m.Sender.Email,
			Role:  m.Sender.Role,
		},
	}
}
