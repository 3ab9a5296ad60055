package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresenceTracker_SingleSessionTransitions(t *testing.T) {
	req := require.New(t)
	tracker := NewPresenceTracker()

	user, becameOnline := tracker.MarkOnline("project-a", "alice", "Alice", "session-1")
	req.True(becameOnline)
	req.Equal("alice", user.UserID)
	req.Equal("Alice", user.DisplayName)

	req.Len(tracker.OnlineUsers("project-a"), 1)

	wentOffline := tracker.MarkOffline("project-a", "alice", "session-1")
	req.True(wentOffline)
	req.Empty(tracker.OnlineUsers("project-a"))
}

func TestPresenceTracker_MultipleSessionsSameUser(t *testing.T) {
	req := require.New(t)
	tracker := NewPresenceTracker()

	// Two tabs for the same user: exactly one online transition.
	_, first := tracker.MarkOnline("project-a", "alice", "Alice", "session-1")
	_, second := tracker.MarkOnline("project-a", "alice", "Alice", "session-2")
	req.True(first)
	req.False(second)
	req.Len(tracker.OnlineUsers("project-a"), 1)

	// Closing one tab must not report the user offline.
	req.False(tracker.MarkOffline("project-a", "alice", "session-1"))
	req.Len(tracker.OnlineUsers("project-a"), 1)

	// Closing the last one does.
	req.True(tracker.MarkOffline("project-a", "alice", "session-2"))
	req.Empty(tracker.OnlineUsers("project-a"))
}

func TestPresenceTracker_MarkOnlineIsIdempotentPerSession(t *testing.T) {
	req := require.New(t)
	tracker := NewPresenceTracker()

	_, first := tracker.MarkOnline("project-a", "alice", "Alice", "session-1")
	_, again := tracker.MarkOnline("project-a", "alice", "Alice", "session-1")
	req.True(first)
	req.False(again)

	req.True(tracker.MarkOffline("project-a", "alice", "session-1"))
}

func TestPresenceTracker_ProjectsAreIndependent(t *testing.T) {
	req := require.New(t)
	tracker := NewPresenceTracker()

	tracker.MarkOnline("project-a", "alice", "Alice", "session-1")
	req.Empty(tracker.OnlineUsers("project-b"))

	_, becameOnline := tracker.MarkOnline("project-b", "alice", "Alice", "session-1")
	req.True(becameOnline)
}

func TestPresenceTracker_MarkOfflineUnknownSession(t *testing.T) {
	req := require.New(t)
	tracker := NewPresenceTracker()

	req.False(tracker.MarkOffline("project-a", "alice", "session-1"))
}

func TestPresenceTracker_OnlineSinceSurvivesExtraSessions(t *testing.T) {
	req := require.New(t)
	tracker := NewPresenceTracker()

	first, _ := tracker.MarkOnline("project-a", "alice", "Alice", "session-1")
	second, _ := tracker.MarkOnline("project-a", "alice", "Alice", "session-2")
	req.Equal(first.OnlineSince, second.OnlineSince)
}
