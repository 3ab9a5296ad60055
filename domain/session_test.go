package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_LifecycleOnlyMovesForward(t *testing.T) {
	req := require.New(t)
	session := NewSession("alice", "Alice")
	req.Equal(StateConnecting, session.State())

	req.NoError(session.TransitionTo(StateAuthenticating))
	req.NoError(session.TransitionTo(StateConnected))

	// Re-entering the current state is a no-op, going back is illegal.
	req.NoError(session.TransitionTo(StateConnected))
	req.Error(session.TransitionTo(StateAuthenticating))
	req.Equal(StateConnected, session.State())

	req.NoError(session.TransitionTo(StateDisconnecting))
	req.NoError(session.TransitionTo(StateClosed))
	req.Error(session.TransitionTo(StateConnected))
}

func TestSession_DisconnectingReachableFromAnyLiveState(t *testing.T) {
	req := require.New(t)

	fresh := NewSession("alice", "Alice")
	req.NoError(fresh.TransitionTo(StateDisconnecting))

	authenticating := NewSession("bob", "Bob")
	req.NoError(authenticating.TransitionTo(StateAuthenticating))
	req.NoError(authenticating.TransitionTo(StateDisconnecting))
}

func TestSession_SubscriptionsAndProjects(t *testing.T) {
	req := require.New(t)
	session := NewSession("alice", "Alice")

	session.Subscribe("room-1")
	session.Subscribe("room-2")
	session.JoinProject("project-a")

	req.True(session.IsSubscribed("room-1"))
	req.ElementsMatch([]RoomID{"room-1", "room-2"}, session.Rooms())
	req.True(session.InProject("project-a"))
	req.False(session.InProject("project-b"))
	req.ElementsMatch([]ProjectID{"project-a"}, session.Projects())

	session.Unsubscribe("room-1")
	req.False(session.IsSubscribed("room-1"))
}
