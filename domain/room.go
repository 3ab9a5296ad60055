package domain

import "time"

type RoomType string

const (
	RoomTypeStandard     RoomType = "standard"
	RoomTypeAnnouncement RoomType = "announcement"
)

// Room is a named channel scoped to one project, the unit of broadcast.
// Room existence is sourced from the persistence collaborator; the
// in-memory registry only caches membership.
type Room struct {
	ID          RoomID
	Project     ProjectID
	Name        string
	Description string
	Type        RoomType
	CreatedBy   string
	CreatedAt   time.Time
}
