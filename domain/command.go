package domain

import (
	"time"

	"github.com/google/uuid"
)

// Command is a room mutation routed to the room's single-writer worker.
// Origin identifies the session that issued it, so validation and
// authorization failures can be reported back without any broadcast.
type Command interface {
	RoomID() RoomID
	Origin() string
}

type SendMessageCommand struct {
	Room       RoomID
	SessionID  string
	AuthorID   string
	AuthorName string
	Content    string
	Type       MessageType
	ReplyTo    *uuid.UUID
	At         time.Time
}

func (c SendMessageCommand) RoomID() RoomID { return c.Room }
func (c SendMessageCommand) Origin() string { return c.SessionID }

type EditMessageCommand struct {
	Room      RoomID
	SessionID string
	EditorID  string
	MessageID uuid.UUID
	Content   string
	At        time.Time
}

func (c EditMessageCommand) RoomID() RoomID { return c.Room }
func (c EditMessageCommand) Origin() string { return c.SessionID }

type DeleteMessageCommand struct {
	Room        RoomID
	SessionID   string
	RequesterID string
	MessageID   uuid.UUID
	At          time.Time
}

func (c DeleteMessageCommand) RoomID() RoomID { return c.Room }
func (c DeleteMessageCommand) Origin() string { return c.SessionID }
