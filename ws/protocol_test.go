package ws

import (
	"encoding/json"
	"testing"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func decodeFrame(t *testing.T, raw []byte) (string, map[string]any) {
	t.Helper()
	var frame Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(frame.Payload, &payload))
	return frame.Type, payload
}

func TestEncodeEvent_NewMessage(t *testing.T) {
	req := require.New(t)
	replyTo := uuid.New()
	msg := domain.Message{
		ID:         uuid.New(),
		Room:       "room-1",
		AuthorID:   "alice",
		AuthorName: "Alice",
		Content:    "hello",
		Type:       domain.MessageTypeText,
		ReplyTo:    lo.ToPtr(replyTo),
		CreatedAt:  time.Now().UTC(),
	}

	raw, err := EncodeEvent(event.NewMessage{Message: msg})
	req.NoError(err)

	frameType, payload := decodeFrame(t, raw)
	req.Equal("new_message", frameType)
	req.Equal(string(msg.Room), payload["roomId"])

	wireMsg, ok := payload["message"].(map[string]any)
	req.True(ok)
	req.Equal(msg.ID.String(), wireMsg["messageId"])
	req.Equal("alice", wireMsg["authorUserId"])
	req.Equal("hello", wireMsg["content"])
	req.Equal("text", wireMsg["messageType"])
	req.Equal(replyTo.String(), wireMsg["replyToMessageId"])
	req.NotContains(wireMsg, "editedAt")
}

func TestEncodeEvent_MessageEditedCarriesEditedAt(t *testing.T) {
	req := require.New(t)
	msg := domain.Message{
		ID:        uuid.New(),
		Room:      "room-1",
		AuthorID:  "alice",
		Content:   "revised",
		Type:      domain.MessageTypeText,
		CreatedAt: time.Now().UTC(),
		EditedAt:  lo.ToPtr(time.Now().UTC()),
	}

	raw, err := EncodeEvent(event.MessageEdited{Message: msg})
	req.NoError(err)

	frameType, payload := decodeFrame(t, raw)
	req.Equal("message_edited", frameType)
	wireMsg := payload["message"].(map[string]any)
	req.Contains(wireMsg, "editedAt")
	req.NotContains(wireMsg, "replyToMessageId")
}

func TestEncodeEvent_MessageDeleted(t *testing.T) {
	req := require.New(t)
	id := uuid.New()

	raw, err := EncodeEvent(event.MessageDeleted{MessageID: id, Room: "room-1"})
	req.NoError(err)

	frameType, payload := decodeFrame(t, raw)
	req.Equal("message_deleted", frameType)
	req.Equal(id.String(), payload["messageId"])
	req.Equal("room-1", payload["roomId"])
}

func TestEncodeEvent_TypingAndPresence(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		evt      event.DomainEvent
		wantType string
		wantKeys []string
	}{
		{event.UserTyping{UserID: "alice", Username: "Alice", Room: "room-1"},
			"user_typing", []string{"userId", "username", "roomId"}},
		{event.UserStoppedTyping{UserID: "alice", Room: "room-1"},
			"user_stopped_typing", []string{"userId", "roomId"}},
		{event.UserOnline{User: domain.PresenceUser{UserID: "alice", DisplayName: "Alice", OnlineSince: time.Now().UTC()}, Project: "project-a"},
			"user_online", []string{"user", "projectId"}},
		{event.UserOffline{UserID: "alice", Project: "project-a"},
			"user_offline", []string{"userId", "projectId"}},
	}

	for _, tt := range tests {
		raw, err := EncodeEvent(tt.evt)
		req.NoError(err)
		frameType, payload := decodeFrame(t, raw)
		req.Equal(tt.wantType, frameType)
		for _, key := range tt.wantKeys {
			req.Contains(payload, key)
		}
	}
}

func TestEncodeEvent_DirectReplies(t *testing.T) {
	req := require.New(t)

	raw, err := EncodeEvent(event.OnlineUsers{
		Project: "project-a",
		Users:   []domain.PresenceUser{{UserID: "alice", DisplayName: "Alice", OnlineSince: time.Now().UTC()}},
	})
	req.NoError(err)
	frameType, payload := decodeFrame(t, raw)
	req.Equal("online_users", frameType)
	req.Equal("project-a", payload["projectId"])
	req.Len(payload["users"], 1)

	raw, err = EncodeEvent(event.RoomsJoined{
		Project: "project-a",
		Rooms:   []domain.Room{{ID: "room-1", Project: "project-a", Name: "general", Type: domain.RoomTypeStandard}},
	})
	req.NoError(err)
	frameType, payload = decodeFrame(t, raw)
	req.Equal("rooms_joined", frameType)
	rooms := payload["rooms"].([]any)
	req.Len(rooms, 1)
	req.Equal("general", rooms[0].(map[string]any)["name"])
}

func TestEncodeEvent_ErrorFrameCodes(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		err  error
		code string
	}{
		{relayerrors.ErrUnauthorized, "unauthorized"},
		{relayerrors.ErrForbidden, "forbidden"},
		{relayerrors.ErrNotFound, "not_found"},
		{relayerrors.ErrValidation, "validation_error"},
		{relayerrors.ErrPersistence, "persistence_failure"},
	}

	for _, tt := range tests {
		raw, err := EncodeEvent(errorFrame(tt.err))
		req.NoError(err)
		frameType, payload := decodeFrame(t, raw)
		req.Equal("error", frameType)
		req.Equal(tt.code, payload["code"])
		req.NotEmpty(payload["message"])
	}
}
