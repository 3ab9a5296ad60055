// Package ws is the connection manager: it accepts websocket
// connections, authenticates them, and pumps frames between the wire
// and the chat service.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"

	"github.com/samber/lo"
)

// Frame is the wire envelope, inbound and outbound.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound frame types.
const (
	TypeJoinProjectRooms = "join_project_rooms"
	TypeGetOnlineUsers   = "get_online_users"
	TypeSendMessage      = "send_message"
	TypeEditMessage      = "edit_message"
	TypeDeleteMessage    = "delete_message"
	TypeTypingStart      = "typing_start"
	TypeTypingStop       = "typing_stop"
	TypeCreateRoom       = "create_room"
)

type JoinProjectRoomsPayload struct {
	ProjectID string `json:"projectId" validate:"required"`
}

type GetOnlineUsersPayload struct {
	ProjectID string `json:"projectId" validate:"required"`
}

type SendMessagePayload struct {
	RoomID           string  `json:"roomId" validate:"required"`
	ProjectID        string  `json:"projectId"`
	Content          string  `json:"content"`
	MessageType      string  `json:"messageType"`
	ReplyToMessageID *string `json:"replyToMessageId,omitempty"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
}

type TypingPayload struct {
	RoomID    string `json:"roomId" validate:"required"`
	ProjectID string `json:"projectId"`
}

type CreateRoomPayload struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RoomType    string `json:"roomType"`
}

type messageJSON struct {
	MessageID        string     `json:"messageId"`
	RoomID           string     `json:"roomId"`
	AuthorUserID     string     `json:"authorUserId"`
	AuthorName       string     `json:"authorName"`
	Content          string     `json:"content"`
	MessageType      string     `json:"messageType"`
	ReplyToMessageID *string    `json:"replyToMessageId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	EditedAt         *time.Time `json:"editedAt,omitempty"`
}

type userJSON struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	OnlineSince time.Time `json:"onlineSince"`
}

type roomJSON struct {
	RoomID      string    `json:"roomId"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RoomType    string    `json:"roomType"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toMessageJSON(m domain.Message) messageJSON {
	var replyTo *string
	if m.ReplyTo != nil {
		replyTo = lo.ToPtr(m.ReplyTo.String())
	}
	return messageJSON{
		MessageID:        m.ID.String(),
		RoomID:           string(m.Room),
		AuthorUserID:     m.AuthorID,
		AuthorName:       m.AuthorName,
		Content:          m.Content,
		MessageType:      string(m.Type),
		ReplyToMessageID: replyTo,
		CreatedAt:        m.CreatedAt,
		EditedAt:         m.EditedAt,
	}
}

func toUserJSON(u domain.PresenceUser) userJSON {
	return userJSON{UserID: u.UserID, DisplayName: u.DisplayName, OnlineSince: u.OnlineSince}
}

func toRoomJSON(r domain.Room) roomJSON {
	return roomJSON{
		RoomID:      string(r.ID),
		ProjectID:   string(r.Project),
		Name:        r.Name,
		Description: r.Description,
		RoomType:    string(r.Type),
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
	}
}

// EncodeEvent serializes a domain event into its outbound frame.
func EncodeEvent(evt event.DomainEvent) ([]byte, error) {
	var payload any
	switch e := evt.(type) {
	case event.NewMessage:
		payload = struct {
			Message messageJSON `json:"message"`
			RoomID  string      `json:"roomId"`
		}{toMessageJSON(e.Message), string(e.Message.Room)}
	case event.MessageEdited:
		payload = struct {
			Message messageJSON `json:"message"`
			RoomID  string      `json:"roomId"`
		}{toMessageJSON(e.Message), string(e.Message.Room)}
	case event.MessageDeleted:
		payload = struct {
			MessageID string `json:"messageId"`
			RoomID    string `json:"roomId"`
		}{e.MessageID.String(), string(e.Room)}
	case event.UserTyping:
		payload = struct {
			UserID   string `json:"userId"`
			Username string `json:"username"`
			RoomID   string `json:"roomId"`
		}{e.UserID, e.Username, string(e.Room)}
	case event.UserStoppedTyping:
		payload = struct {
			UserID string `json:"userId"`
			RoomID string `json:"roomId"`
		}{e.UserID, string(e.Room)}
	case event.UserOnline:
		payload = struct {
			User      userJSON `json:"user"`
			ProjectID string   `json:"projectId"`
		}{toUserJSON(e.User), string(e.Project)}
	case event.UserOffline:
		payload = struct {
			UserID    string `json:"userId"`
			ProjectID string `json:"projectId"`
		}{e.UserID, string(e.Project)}
	case event.OnlineUsers:
		payload = struct {
			ProjectID string     `json:"projectId"`
			Users     []userJSON `json:"users"`
		}{string(e.Project), lo.Map(e.Users, func(u domain.PresenceUser, _ int) userJSON {
			return toUserJSON(u)
		})}
	case event.RoomsJoined:
		payload = struct {
			ProjectID string     `json:"projectId"`
			Rooms     []roomJSON `json:"rooms"`
		}{string(e.Project), lo.Map(e.Rooms, func(r domain.Room, _ int) roomJSON {
			return toRoomJSON(r)
		})}
	case event.RoomCreated:
		payload = struct {
			Room roomJSON `json:"room"`
		}{toRoomJSON(e.Room)}
	case event.Error:
		payload = struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}{e.Code, e.Message}
	default:
		return nil, fmt.Errorf("no wire encoding for event %q", evt.EventName())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: evt.EventName(), Payload: raw})
}

// errorFrame builds the error event for a rejected request.
func errorFrame(err error) event.Error {
	return event.Error{Code: relayerrors.CodeOf(err), Message: err.Error()}
}
