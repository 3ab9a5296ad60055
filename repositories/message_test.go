package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newMessageRepo(t *testing.T) *MessageRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMessageRepository(db, slog.Default())
}

func newTestMessage(room domain.RoomID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		Room:       room,
		AuthorID:   "alice",
		AuthorName: "Alice",
		Content:    content,
		Type:       domain.MessageTypeText,
		CreatedAt:  at,
	}
}

func TestMessageRepository_AppendAndGet(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	ctx := context.Background()

	replyTarget := newTestMessage("room-1", "first", time.Now().UTC())
	req.NoError(repo.Append(ctx, replyTarget))

	original := newTestMessage("room-1", "  spaces preserved  ", time.Now().UTC())
	original.ReplyTo = lo.ToPtr(replyTarget.ID)
	req.NoError(repo.Append(ctx, original))

	stored, err := repo.Get(ctx, original.ID)
	req.NoError(err)
	req.Equal(original.ID, stored.ID)
	req.Equal(original.Room, stored.Room)
	req.Equal(original.Content, stored.Content)
	req.Equal(original.CreatedAt.UnixNano(), stored.CreatedAt.UnixNano())
	req.NotNil(stored.ReplyTo)
	req.Equal(replyTarget.ID, *stored.ReplyTo)
	req.Nil(stored.EditedAt)
	req.Nil(stored.DeletedAt)
}

func TestMessageRepository_GetUnknownID(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)

	_, err := repo.Get(context.Background(), uuid.New())
	req.ErrorIs(err, relayerrors.ErrNotFound)
}

func TestMessageRepository_UpdateKeepsTimelinePosition(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	first := newTestMessage("room-1", "first", base)
	second := newTestMessage("room-1", "second", base.Add(time.Second))
	req.NoError(repo.Append(ctx, first))
	req.NoError(repo.Append(ctx, second))

	first.Content = "first, revised"
	first.EditedAt = lo.ToPtr(base.Add(time.Minute))
	req.NoError(repo.Update(ctx, first))

	messages, cursor, err := repo.ListByRoom(ctx, "room-1", nil, 10)
	req.NoError(err)
	req.Nil(cursor)
	req.Len(messages, 2)
	// Newest first; the edit did not move the message.
	req.Equal("second", messages[0].Content)
	req.Equal("first, revised", messages[1].Content)
	req.NotNil(messages[1].EditedAt)
}

func TestMessageRepository_UpdateUnknownID(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)

	ghost := newTestMessage("room-1", "ghost", time.Now().UTC())
	err := repo.Update(context.Background(), ghost)
	req.ErrorIs(err, relayerrors.ErrNotFound)
}

func TestMessageRepository_SoftDeletedStillResolvesByID(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	ctx := context.Background()

	msg := newTestMessage("room-1", "about to vanish", time.Now().UTC())
	req.NoError(repo.Append(ctx, msg))

	msg.DeletedAt = lo.ToPtr(time.Now().UTC())
	req.NoError(repo.Update(ctx, msg))

	// Excluded from listings but still addressable for reply rendering.
	messages, _, err := repo.ListByRoom(ctx, "room-1", nil, 10)
	req.NoError(err)
	req.Empty(messages)

	stored, err := repo.Get(ctx, msg.ID)
	req.NoError(err)
	req.True(stored.Deleted())
}

func TestMessageRepository_ListByRoomPagination(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	const total = 7
	for i := 0; i < total; i++ {
		msg := newTestMessage("room-1", fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second))
		req.NoError(repo.Append(ctx, msg))
	}
	// Another room's messages must never leak into the scan.
	req.NoError(repo.Append(ctx, newTestMessage("room-2", "elsewhere", base)))

	var collected []string
	var cursor *string
	pages := 0
	for {
		messages, next, err := repo.ListByRoom(ctx, "room-1", cursor, 3)
		req.NoError(err)
		for _, msg := range messages {
			collected = append(collected, msg.Content)
		}
		pages++
		if next == nil {
			break
		}
		cursor = next
	}

	req.Equal(3, pages)
	req.Len(collected, total)
	// Newest first across page boundaries.
	for i := 0; i < total; i++ {
		req.Equal(fmt.Sprintf("message %d", total-1-i), collected[i])
	}
}

func TestMessageRepository_ListByRoomEmpty(t *testing.T) {
	req := require.New(t)
	repo := newMessageRepo(t)

	messages, cursor, err := repo.ListByRoom(context.Background(), "room-without-history", nil, 50)
	req.NoError(err)
	req.Nil(cursor)
	req.Empty(messages)
}
