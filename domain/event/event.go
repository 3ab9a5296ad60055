// Package event defines the outbound events fanned out to sessions.
// Room-scoped events reach every member of one room; project-scoped
// events reach every session that joined the project. Direct events are
// delivered only to the originating session and never broadcast.
package event

import (
	"chat-relay/domain"

	"github.com/google/uuid"
)

type DomainEvent interface {
	EventName() string
}

// RoomEvent is broadcast to the room's live membership cache.
type RoomEvent interface {
	DomainEvent
	RoomID() domain.RoomID
}

// ProjectEvent is broadcast to every session joined to the project.
type ProjectEvent interface {
	DomainEvent
	ProjectID() domain.ProjectID
}

type NewMessage struct {
	Message domain.Message
}

func (e NewMessage) EventName() string     { return "new_message" }
func (e NewMessage) RoomID() domain.RoomID { return e.Message.Room }

type MessageEdited struct {
	Message domain.Message
}

func (e MessageEdited) EventName() string     { return "message_edited" }
func (e MessageEdited) RoomID() domain.RoomID { return e.Message.Room }

type MessageDeleted struct {
	MessageID uuid.UUID
	Room      domain.RoomID
}

func (e MessageDeleted) EventName() string     { return "message_deleted" }
func (e MessageDeleted) RoomID() domain.RoomID { return e.Room }

type UserTyping struct {
	UserID   string
	Username string
	Room     domain.RoomID
}

func (e UserTyping) EventName() string     { return "user_typing" }
func (e UserTyping) RoomID() domain.RoomID { return e.Room }

type UserStoppedTyping struct {
	UserID string
	Room   domain.RoomID
}

func (e UserStoppedTyping) EventName() string     { return "user_stopped_typing" }
func (e UserStoppedTyping) RoomID() domain.RoomID { return e.Room }

type UserOnline struct {
	User    domain.PresenceUser
	Project domain.ProjectID
}

func (e UserOnline) EventName() string           { return "user_online" }
func (e UserOnline) ProjectID() domain.ProjectID { return e.Project }

type UserOffline struct {
	UserID  string
	Project domain.ProjectID
}

func (e UserOffline) EventName() string           { return "user_offline" }
func (e UserOffline) ProjectID() domain.ProjectID { return e.Project }

type RoomCreated struct {
	Room domain.Room
}

func (e RoomCreated) EventName() string           { return "room_created" }
func (e RoomCreated) ProjectID() domain.ProjectID { return e.Room.Project }

// OnlineUsers is a direct reply to get_online_users.
type OnlineUsers struct {
	Project domain.ProjectID
	Users   []domain.PresenceUser
}

func (e OnlineUsers) EventName() string { return "online_users" }

// RoomsJoined is a direct reply to join_project_rooms.
type RoomsJoined struct {
	Project domain.ProjectID
	Rooms   []domain.Room
}

func (e RoomsJoined) EventName() string { return "rooms_joined" }

// Error is delivered only to the session whose request failed.
type Error struct {
	Code    string
	Message string
}

func (e Error) EventName() string { return "error" }
