package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"
	"chat-relay/runtime"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	Room    domain.RoomID
	Content string
	Type    domain.MessageType
	ReplyTo *uuid.UUID
}

type EditMessageRequest struct {
	MessageID uuid.UUID
	Content   string
}

// IChatService is the surface the connection manager drives. Message
// mutations are asynchronous: rejections travel back to the origin
// session as error events through its sink, acceptance is observed as
// the broadcast itself (the sender is included in the fan-out).
type IChatService interface {
	Connect(session *domain.Session, sink contract.EventSink)
	Disconnect(ctx context.Context, session *domain.Session)
	JoinProjectRooms(ctx context.Context, session *domain.Session, projectID domain.ProjectID) ([]domain.Room, error)
	CreateRoom(ctx context.Context, session *domain.Session, projectID domain.ProjectID, req runtime.CreateRoomRequest) (domain.Room, error)
	GetOnlineUsers(session *domain.Session, projectID domain.ProjectID) ([]domain.PresenceUser, error)
	SendMessage(ctx context.Context, session *domain.Session, req SendMessageRequest) error
	EditMessage(ctx context.Context, session *domain.Session, req EditMessageRequest) error
	DeleteMessage(ctx context.Context, session *domain.Session, messageID uuid.UUID) error
	TypingStart(ctx context.Context, session *domain.Session, roomID domain.RoomID) error
	TypingStop(ctx context.Context, session *domain.Session, roomID domain.RoomID) error
	ListRooms(ctx context.Context, projectID domain.ProjectID) ([]domain.Room, error)
	History(ctx context.Context, roomID domain.RoomID, cursor *string, limit int) ([]domain.Message, *string, error)
}

type ChatService struct {
	log      *slog.Logger
	relay    *runtime.MessageRelay
	rooms    *runtime.RoomRegistry
	presence *runtime.PresenceTracker
	typing   *runtime.TypingRegistry
	registry contract.IRegistry
	messages contract.MessageStore
	roomsDB  contract.RoomStore
}

func NewChatService(log *slog.Logger, relay *runtime.MessageRelay,
	rooms *runtime.RoomRegistry, presence *runtime.PresenceTracker,
	typing *runtime.TypingRegistry, registry contract.IRegistry,
	messages contract.MessageStore, roomsDB contract.RoomStore) *ChatService {
	return &ChatService{
		log:      log,
		relay:    relay,
		rooms:    rooms,
		presence: presence,
		typing:   typing,
		registry: registry,
		messages: messages,
		roomsDB:  roomsDB,
	}
}

func (s *ChatService) Connect(session *domain.Session, sink contract.EventSink) {
	s.registry.Register(session.ID.String(), sink)
}

// Disconnect performs the mandatory, unconditional cleanup of a closed
// session: presence transitions first (they need the project list),
// then the membership cache. A leaked session is a correctness bug.
func (s *ChatService) Disconnect(ctx context.Context, session *domain.Session) {
	_ = session.TransitionTo(domain.StateDisconnecting)

	sessionID := session.ID.String()
	for _, projectID := range session.Projects() {
		if wentOffline := s.presence.MarkOffline(projectID, session.UserID, sessionID); wentOffline {
			evt := event.UserOffline{UserID: session.UserID, Project: projectID}
			if err := s.relay.Publish(ctx, evt); err != nil {
				s.log.Warn("Dropping user_offline broadcast", "user_id", session.UserID, "error", err)
			}
		}
	}

	s.rooms.LeaveAll(session)
	_ = session.TransitionTo(domain.StateClosed)
	s.log.Info("Session closed", "session_id", sessionID, "user_id", session.UserID)
}

func (s *ChatService) JoinProjectRooms(ctx context.Context, session *domain.Session, projectID domain.ProjectID) ([]domain.Room, error) {
	rooms, err := s.rooms.JoinProjectRooms(ctx, session, projectID)
	if err != nil {
		return nil, err
	}

	user, becameOnline := s.presence.MarkOnline(projectID, session.UserID, session.DisplayName, session.ID.String())
	if becameOnline {
		if err := s.relay.Publish(ctx, event.UserOnline{User: user, Project: projectID}); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

func (s *ChatService) CreateRoom(ctx context.Context, session *domain.Session, projectID domain.ProjectID, req runtime.CreateRoomRequest) (domain.Room, error) {
	room, err := s.rooms.CreateRoom(ctx, session, projectID, req)
	if err != nil {
		return domain.Room{}, err
	}
	if err := s.relay.Publish(ctx, event.RoomCreated{Room: room}); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *ChatService) GetOnlineUsers(session *domain.Session, projectID domain.ProjectID) ([]domain.PresenceUser, error) {
	if !session.InProject(projectID) {
		return nil, fmt.Errorf("%w: session has not joined project %s", relayerrors.ErrUnauthorized, projectID)
	}
	return s.presence.OnlineUsers(projectID), nil
}

func (s *ChatService) SendMessage(ctx context.Context, session *domain.Session, req SendMessageRequest) error {
	session.Touch()
	return s.relay.Dispatch(ctx, domain.SendMessageCommand{
		Room:       req.Room,
		SessionID:  session.ID.String(),
		AuthorID:   session.UserID,
		AuthorName: session.DisplayName,
		Content:    req.Content,
		Type:       req.Type,
		ReplyTo:    req.ReplyTo,
		At:         time.Now().UTC(),
	})
}

// EditMessage resolves the owning room first so the command lands on
// the right single-writer worker; authorization happens inside it.
func (s *ChatService) EditMessage(ctx context.Context, session *domain.Session, req EditMessageRequest) error {
	msg, err := s.messages.Get(ctx, req.MessageID)
	if err != nil {
		return fmt.Errorf("%w: message %s", relayerrors.ErrNotFound, req.MessageID)
	}
	session.Touch()
	return s.relay.Dispatch(ctx, domain.EditMessageCommand{
		Room:      msg.Room,
		SessionID: session.ID.String(),
		EditorID:  session.UserID,
		MessageID: req.MessageID,
		Content:   req.Content,
		At:        time.Now().UTC(),
	})
}

func (s *ChatService) DeleteMessage(ctx context.Context, session *domain.Session, messageID uuid.UUID) error {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return fmt.Errorf("%w: message %s", relayerrors.ErrNotFound, messageID)
	}
	session.Touch()
	return s.relay.Dispatch(ctx, domain.DeleteMessageCommand{
		Room:        msg.Room,
		SessionID:   session.ID.String(),
		RequesterID: session.UserID,
		MessageID:   messageID,
		At:          time.Now().UTC(),
	})
}

// TypingStart refreshes the typing flag; only the first start within
// the quantum broadcasts, repeated keystroke bursts are absorbed.
func (s *ChatService) TypingStart(ctx context.Context, session *domain.Session, roomID domain.RoomID) error {
	if !session.IsSubscribed(roomID) {
		return fmt.Errorf("%w: session not subscribed to room %s", relayerrors.ErrUnauthorized, roomID)
	}
	session.Touch()
	if started := s.typing.Start(roomID, session.UserID, session.DisplayName, time.Now().UTC()); !started {
		return nil
	}
	return s.relay.Publish(ctx, event.UserTyping{
		UserID:   session.UserID,
		Username: session.DisplayName,
		Room:     roomID,
	})
}

func (s *ChatService) TypingStop(ctx context.Context, session *domain.Session, roomID domain.RoomID) error {
	if !session.IsSubscribed(roomID) {
		return fmt.Errorf("%w: session not subscribed to room %s", relayerrors.ErrUnauthorized, roomID)
	}
	if stopped := s.typing.Stop(roomID, session.UserID); !stopped {
		return nil
	}
	return s.relay.Publish(ctx, event.UserStoppedTyping{UserID: session.UserID, Room: roomID})
}

func (s *ChatService) ListRooms(ctx context.Context, projectID domain.ProjectID) ([]domain.Room, error) {
	return s.roomsDB.ListByProject(ctx, projectID)
}

func (s *ChatService) History(ctx context.Context, roomID domain.RoomID, cursor *string, limit int) ([]domain.Message, *string, error) {
	return s.messages.ListByRoom(ctx, roomID, cursor, limit)
}
