package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	relayerrors "chat-relay/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateRoomRequest carries the validated input of a room creation.
type CreateRoomRequest struct {
	Name        string `validate:"required,max=50"`
	Description string `validate:"max=200"`
	Type        domain.RoomType
}

// RoomRegistry mediates between sessions and the room store. Join and
// leave mutate only the in-memory membership cache; room existence is
// always sourced from the persistence collaborator.
type RoomRegistry struct {
	log      *slog.Logger
	registry contract.IRegistry
	store    contract.RoomStore
	authz    contract.ProjectAuthorizer
	validate *validator.Validate
}

func NewRoomRegistry(log *slog.Logger, registry contract.IRegistry,
	store contract.RoomStore, authz contract.ProjectAuthorizer) *RoomRegistry {
	return &RoomRegistry{
		log:      log,
		registry: registry,
		store:    store,
		authz:    authz,
		validate: validator.New(),
	}
}

// JoinProjectRooms checks project membership with the authorization
// collaborator, loads the project's rooms and subscribes the session to
// each of them.
func (r *RoomRegistry) JoinProjectRooms(ctx context.Context, session *domain.Session, projectID domain.ProjectID) ([]domain.Room, error) {
	member, err := r.authz.IsMember(ctx, session.UserID, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: membership check: %v", relayerrors.ErrPersistence, err)
	}
	if !member {
		return nil, fmt.Errorf("%w: user %s is not a member of project %s",
			relayerrors.ErrUnauthorized, session.UserID, projectID)
	}

	rooms, err := r.store.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading rooms: %v", relayerrors.ErrPersistence, err)
	}

	sessionID := session.ID.String()
	session.JoinProject(projectID)
	r.registry.TrackProject(sessionID, projectID)
	for _, room := range rooms {
		session.Subscribe(room.ID)
		r.registry.Subscribe(sessionID, room.ID)
	}

	r.log.Debug("session joined project rooms",
		"session_id", sessionID, "project_id", projectID, "rooms", len(rooms))
	return rooms, nil
}

// CreateRoom validates and persists a new room, then implicitly
// subscribes the creating session.
func (r *RoomRegistry) CreateRoom(ctx context.Context, session *domain.Session, projectID domain.ProjectID, req CreateRoomRequest) (domain.Room, error) {
	member, err := r.authz.IsMember(ctx, session.UserID, projectID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: membership check: %v", relayerrors.ErrPersistence, err)
	}
	if !member {
		return domain.Room{}, fmt.Errorf("%w: user %s is not a member of project %s",
			relayerrors.ErrUnauthorized, session.UserID, projectID)
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := r.validate.Struct(req); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", relayerrors.ErrValidation, err)
	}
	if req.Type == "" {
		req.Type = domain.RoomTypeStandard
	}

	room := domain.Room{
		ID:          domain.RoomID(uuid.NewString()),
		Project:     projectID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		CreatedBy:   session.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.Create(ctx, room); err != nil {
		return domain.Room{}, fmt.Errorf("%w: storing room: %v", relayerrors.ErrPersistence, err)
	}

	session.Subscribe(room.ID)
	r.registry.Subscribe(session.ID.String(), room.ID)

	r.log.Info("room created", "room_id", room.ID, "project_id", projectID, "created_by", session.UserID)
	return room, nil
}

// LeaveAll removes the session from every room's cache. Idempotent;
// invoked by the connection manager on disconnect.
func (r *RoomRegistry) LeaveAll(session *domain.Session) {
	r.registry.UnsubscribeAll(session.ID.String())
}
