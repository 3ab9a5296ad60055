// Package domain contains core concepts of the chat relay.
// This file defines Message records and related rules.
// Messages are owned by the persistence collaborator; the relay coordinates.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type RoomID string

type ProjectID string

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// Message represents one durable chat message.
// ReplyTo is a weak reference: it either resolves to an existing message
// at send time or is dropped to nil, never blocking delivery.
type Message struct {
	ID         uuid.UUID
	Room       RoomID
	AuthorID   string
	AuthorName string
	Content    string
	Type       MessageType
	ReplyTo    *uuid.UUID
	CreatedAt  time.Time
	EditedAt   *time.Time
	DeletedAt  *time.Time
}

// Deleted reports whether the message has been soft-deleted.
// The record is retained so replies referencing it keep resolving.
func (m Message) Deleted() bool {
	return m.DeletedAt != nil
}
