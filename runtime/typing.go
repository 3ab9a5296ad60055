package runtime

import (
	"sync"
	"time"

	"chat-relay/domain"
)

type typingKey struct {
	room   domain.RoomID
	userID string
}

// TypingRegistry holds the ephemeral per-room, per-user typing flags.
// An entry disappears exactly once: through Stop or through Expire,
// never both. The mutex makes the two paths mutually exclusive.
type TypingRegistry struct {
	mu      sync.Mutex
	quantum time.Duration
	entries map[typingKey]domain.TypingEntry
}

func NewTypingRegistry(quantum time.Duration) *TypingRegistry {
	return &TypingRegistry{
		quantum: quantum,
		entries: make(map[typingKey]domain.TypingEntry),
	}
}

// Start upserts the entry and refreshes its expiry. It reports whether
// the user just started typing; refreshes within the quantum return
// false so repeated keystroke bursts produce a single broadcast.
func (t *TypingRegistry) Start(room domain.RoomID, userID, username string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{room: room, userID: userID}
	_, active := t.entries[key]
	t.entries[key] = domain.TypingEntry{
		Room:      room,
		UserID:    userID,
		Username:  username,
		ExpiresAt: now.Add(t.quantum),
	}
	return !active
}

// Stop removes the entry immediately. It reports whether the user was
// actually typing, so a stray stop produces no broadcast.
func (t *TypingRegistry) Stop(room domain.RoomID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{room: room, userID: userID}
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	return true
}

// Expire removes and returns every entry past its deadline. A stuck
// client that crashed mid-typing is cleaned up here as if it had sent
// an explicit stop.
func (t *TypingRegistry) Expire(now time.Time) []domain.TypingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []domain.TypingEntry
	for key, entry := range t.entries {
		if !entry.ExpiresAt.After(now) {
			expired = append(expired, entry)
			delete(t.entries, key)
		}
	}
	return expired
}
