package workers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"

	"github.com/google/uuid"
)

// RoomWorker is the single writer for one room. Every send, edit and
// delete for the room passes through its command channel, so two
// concurrent mutations of the same message can never interleave into an
// inconsistent broadcast order. Broadcasts happen strictly after the
// persist succeeds; a failed persist is a no-op for every other client.
type RoomWorker struct {
	room     domain.RoomID
	commands chan domain.Command
	events   chan<- event.DomainEvent
	store    contract.MessageStore
	registry contract.IRegistry
	log      *slog.Logger
}

func NewRoomWorker(room domain.RoomID, commands chan domain.Command,
	events chan<- event.DomainEvent, store contract.MessageStore,
	registry contract.IRegistry, log *slog.Logger) *RoomWorker {
	return &RoomWorker{
		room:     room,
		commands: commands,
		events:   events,
		store:    store,
		registry: registry,
		log:      log,
	}
}

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping room worker", "room_id", w.room)
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				return nil
			}
			w.handle(ctx, cmd)
		}
	}
}

func (w *RoomWorker) handle(ctx context.Context, cmd domain.Command) {
	var err error
	switch c := cmd.(type) {
	case domain.SendMessageCommand:
		err = w.handleSend(ctx, c)
	case domain.EditMessageCommand:
		err = w.handleEdit(ctx, c)
	case domain.DeleteMessageCommand:
		err = w.handleDelete(ctx, c)
	default:
		w.log.Warn("Unknown command type", "room_id", w.room)
		return
	}
	if err != nil {
		w.reportError(ctx, cmd.Origin(), err)
	}
}

func (w *RoomWorker) handleSend(ctx context.Context, cmd domain.SendMessageCommand) error {
	if !w.registry.IsMember(w.room, cmd.SessionID) {
		return fmt.Errorf("%w: session not subscribed to room %s", relayerrors.ErrUnauthorized, w.room)
	}

	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return fmt.Errorf("%w: message content is empty", relayerrors.ErrValidation)
	}

	msgType := cmd.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	msg := domain.Message{
		ID:         uuid.New(),
		Room:       w.room,
		AuthorID:   cmd.AuthorID,
		AuthorName: cmd.AuthorName,
		Content:    content,
		Type:       msgType,
		ReplyTo:    w.resolveReply(ctx, cmd.ReplyTo),
		CreatedAt:  cmd.At,
	}

	if err := w.store.Append(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", relayerrors.ErrPersistence, err)
	}
	return w.emit(ctx, event.NewMessage{Message: msg})
}

func (w *RoomWorker) handleEdit(ctx context.Context, cmd domain.EditMessageCommand) error {
	if !w.registry.IsMember(w.room, cmd.SessionID) {
		return fmt.Errorf("%w: session not subscribed to room %s", relayerrors.ErrUnauthorized, w.room)
	}

	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return fmt.Errorf("%w: message content is empty", relayerrors.ErrValidation)
	}

	msg, err := w.store.Get(ctx, cmd.MessageID)
	if err != nil || msg.Deleted() {
		return fmt.Errorf("%w: message %s", relayerrors.ErrNotFound, cmd.MessageID)
	}
	if msg.AuthorID != cmd.EditorID {
		return fmt.Errorf("%w: only the author may edit a message", relayerrors.ErrForbidden)
	}

	msg.Content = content
	at := cmd.At
	msg.EditedAt = &at

	if err := w.store.Update(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", relayerrors.ErrPersistence, err)
	}
	return w.emit(ctx, event.MessageEdited{Message: msg})
}

func (w *RoomWorker) handleDelete(ctx context.Context, cmd domain.DeleteMessageCommand) error {
	if !w.registry.IsMember(w.room, cmd.SessionID) {
		return fmt.Errorf("%w: session not subscribed to room %s", relayerrors.ErrUnauthorized, w.room)
	}

	msg, err := w.store.Get(ctx, cmd.MessageID)
	if err != nil || msg.Deleted() {
		return fmt.Errorf("%w: message %s", relayerrors.ErrNotFound, cmd.MessageID)
	}
	if msg.AuthorID != cmd.RequesterID {
		return fmt.Errorf("%w: only the author may delete a message", relayerrors.ErrForbidden)
	}

	// Soft delete: the row is retained for reply integrity.
	at := cmd.At
	msg.DeletedAt = &at

	if err := w.store.Update(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", relayerrors.ErrPersistence, err)
	}
	return w.emit(ctx, event.MessageDeleted{MessageID: msg.ID, Room: w.room})
}

// resolveReply resolves a reply reference optimistically: quoting must
// never block delivery, so a reference that does not resolve is stored
// as null instead of failing the send.
func (w *RoomWorker) resolveReply(ctx context.Context, replyTo *uuid.UUID) *uuid.UUID {
	if replyTo == nil {
		return nil
	}
	referenced, err := w.store.Get(ctx, *replyTo)
	if err != nil || referenced.Room != w.room {
		w.log.Debug("Dropping unresolvable reply reference",
			"room_id", w.room, "reply_to", *replyTo)
		return nil
	}
	return replyTo
}

func (w *RoomWorker) emit(ctx context.Context, evt event.DomainEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case w.events <- evt:
		return nil
	}
}

// reportError delivers the failure to the originating session only.
// Rejections are never broadcast.
func (w *RoomWorker) reportError(ctx context.Context, sessionID string, err error) {
	w.log.Debug("Command rejected", "room_id", w.room, "session_id", sessionID, "error", err)
	sink, ok := w.registry.GetSink(sessionID)
	if !ok {
		return
	}
	evt := event.Error{Code: relayerrors.CodeOf(err), Message: err.Error()}
	if consumeErr := sink.Consume(ctx, evt); consumeErr != nil {
		w.log.Warn("Failed to deliver error event", "session_id", sessionID, "error", consumeErr)
	}
}
