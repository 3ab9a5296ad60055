package domain

import "time"

// PresenceUser is the externally visible shape of an online user.
// A user is online in a project iff at least one of their sessions is.
type PresenceUser struct {
	UserID      string
	DisplayName string
	OnlineSince time.Time
}

// TypingEntry is purely ephemeral typing state for (room, user).
// It disappears exactly once, via expiry or an explicit stop.
type TypingEntry struct {
	Room      RoomID
	UserID    string
	Username  string
	ExpiresAt time.Time
}
