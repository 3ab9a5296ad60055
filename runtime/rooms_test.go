package runtime

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"chat-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newJoinedSessionSink(registry *Registry) (*domain.Session, *recordingSink) {
	session := domain.NewSession("alice", "Alice")
	sink := &recordingSink{}
	registry.Register(session.ID.String(), sink)
	return session, sink
}

func TestRoomRegistry_JoinProjectRooms(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	store := mocks.NewMockRoomStore(ctrl)
	authz := mocks.NewMockProjectAuthorizer(ctrl)
	rooms := NewRoomRegistry(slog.Default(), registry, store, authz)

	session, _ := newJoinedSessionSink(registry)
	projectRooms := []domain.Room{
		{ID: "room-1", Project: "project-a", Name: "general"},
		{ID: "room-2", Project: "project-a", Name: "random"},
	}

	authz.EXPECT().IsMember(gomock.Any(), "alice", domain.ProjectID("project-a")).Return(true, nil)
	store.EXPECT().ListByProject(gomock.Any(), domain.ProjectID("project-a")).Return(projectRooms, nil)

	joined, err := rooms.JoinProjectRooms(context.Background(), session, "project-a")
	req.NoError(err)
	req.Equal(projectRooms, joined)

	sessionID := session.ID.String()
	req.True(registry.IsMember("room-1", sessionID))
	req.True(registry.IsMember("room-2", sessionID))
	req.True(session.IsSubscribed("room-1"))
	req.True(session.InProject("project-a"))
}

func TestRoomRegistry_JoinRejectsNonMembers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	store := mocks.NewMockRoomStore(ctrl)
	authz := mocks.NewMockProjectAuthorizer(ctrl)
	rooms := NewRoomRegistry(slog.Default(), registry, store, authz)

	session, _ := newJoinedSessionSink(registry)
	authz.EXPECT().IsMember(gomock.Any(), "alice", domain.ProjectID("project-a")).Return(false, nil)

	_, err := rooms.JoinProjectRooms(context.Background(), session, "project-a")
	req.ErrorIs(err, relayerrors.ErrUnauthorized)
	req.False(session.InProject("project-a"))
}

func TestRoomRegistry_CreateRoomValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	store := mocks.NewMockRoomStore(ctrl)
	authz := mocks.NewMockProjectAuthorizer(ctrl)
	rooms := NewRoomRegistry(slog.Default(), registry, store, authz)
	authz.EXPECT().IsMember(gomock.Any(), "alice", domain.ProjectID("project-a")).Return(true, nil).AnyTimes()

	tests := []struct {
		name string
		req  CreateRoomRequest
	}{
		{"empty name", CreateRoomRequest{Name: ""}},
		{"whitespace name", CreateRoomRequest{Name: "   "}},
		{"name too long", CreateRoomRequest{Name: strings.Repeat("a", 51)}},
		{"description too long", CreateRoomRequest{Name: "general", Description: strings.Repeat("d", 201)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := newJoinedSessionSink(registry)
			_, err := rooms.CreateRoom(context.Background(), session, "project-a", tt.req)
			require.ErrorIs(t, err, relayerrors.ErrValidation)
		})
	}
}

func TestRoomRegistry_CreateRoomSubscribesCreator(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	store := mocks.NewMockRoomStore(ctrl)
	authz := mocks.NewMockProjectAuthorizer(ctrl)
	rooms := NewRoomRegistry(slog.Default(), registry, store, authz)

	session, _ := newJoinedSessionSink(registry)
	authz.EXPECT().IsMember(gomock.Any(), "alice", domain.ProjectID("project-a")).Return(true, nil)
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	room, err := rooms.CreateRoom(context.Background(), session, "project-a", CreateRoomRequest{
		Name:        "general",
		Description: "project talk",
	})
	req.NoError(err)
	req.NotEmpty(room.ID)
	req.Equal(domain.ProjectID("project-a"), room.Project)
	req.Equal("alice", room.CreatedBy)
	req.Equal(domain.RoomTypeStandard, room.Type)

	req.True(registry.IsMember(room.ID, session.ID.String()))
	req.True(session.IsSubscribed(room.ID))
}

func TestRoomRegistry_LeaveAllIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := NewRegistry()
	rooms := NewRoomRegistry(slog.Default(), registry,
		mocks.NewMockRoomStore(ctrl), mocks.NewMockProjectAuthorizer(ctrl))

	session, _ := newJoinedSessionSink(registry)
	registry.Subscribe(session.ID.String(), "room-1")

	rooms.LeaveAll(session)
	req.False(registry.IsMember("room-1", session.ID.String()))
	rooms.LeaveAll(session)
}
