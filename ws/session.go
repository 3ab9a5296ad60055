package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"
	"chat-relay/runtime"
	"chat-relay/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client binds one Session to its websocket connection: one goroutine
// reads and dispatches inbound frames, one drains the send queue.
// Client is the session's EventSink; Consume only enqueues, so fan-out
// never blocks on a slow connection — a full queue tears the session
// down instead.
type Client struct {
	session  *domain.Session
	conn     *websocket.Conn
	svc      services.IChatService
	validate *validator.Validate
	log      *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(session *domain.Session, conn *websocket.Conn,
	svc services.IChatService, validate *validator.Validate,
	queueSize int, log *slog.Logger) *Client {
	return &Client{
		session:  session,
		conn:     conn,
		svc:      svc,
		validate: validate,
		log:      log.With("session_id", session.ID.String(), "user_id", session.UserID),
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// Consume implements contract.EventSink.
func (c *Client) Consume(_ context.Context, evt event.DomainEvent) error {
	data, err := EncodeEvent(evt)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return relayerrors.ErrSessionClosed
	case c.send <- data:
		return nil
	default:
		// Outstanding sends to a session that cannot keep up are
		// abandoned, not retried.
		c.beginDisconnect("send queue full")
		return relayerrors.ErrQueueFull
	}
}

// Serve runs the pumps and blocks until the connection dies. Cleanup is
// unconditional: the session leaves every registry before Serve returns.
func (c *Client) Serve(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)

	c.beginDisconnect("connection closed")

	// The read pump is gone; use a bounded background context so
	// cleanup still completes when the parent context is canceled.
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.svc.Disconnect(cleanupCtx, c.session)
	_ = c.conn.Close()
}

func (c *Client) beginDisconnect(reason string) {
	c.closeOnce.Do(func() {
		_ = c.session.TransitionTo(domain.StateDisconnecting)
		c.log.Debug("Disconnecting session", "reason", reason)
		close(c.done)
	})
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Abnormal connection closure", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			// Malformed frames terminate the session, not the process.
			c.log.Warn("Malformed frame, closing session", "error", err)
			return
		}
		if err := c.dispatch(ctx, frame); err != nil {
			c.log.Warn("Unrecoverable dispatch failure, closing session", "error", err)
			return
		}
	}
}

// dispatch routes one inbound frame. Domain rejections are replied to
// this session only; a returned error means the session must close.
func (c *Client) dispatch(ctx context.Context, frame Frame) error {
	c.session.Touch()

	switch frame.Type {
	case TypeJoinProjectRooms:
		var p JoinProjectRoomsPayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		projectID := domain.ProjectID(p.ProjectID)
		rooms, err := c.svc.JoinProjectRooms(ctx, c.session, projectID)
		if err != nil {
			c.reply(errorFrame(err))
			return nil
		}
		c.reply(event.RoomsJoined{Project: projectID, Rooms: rooms})

	case TypeGetOnlineUsers:
		var p GetOnlineUsersPayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		projectID := domain.ProjectID(p.ProjectID)
		users, err := c.svc.GetOnlineUsers(c.session, projectID)
		if err != nil {
			c.reply(errorFrame(err))
			return nil
		}
		c.reply(event.OnlineUsers{Project: projectID, Users: users})

	case TypeSendMessage:
		var p SendMessagePayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		var replyTo *uuid.UUID
		if p.ReplyToMessageID != nil {
			parsed, err := uuid.Parse(*p.ReplyToMessageID)
			if err == nil {
				// An unparsable reference degrades like a broken one.
				replyTo = &parsed
			}
		}
		if err := c.svc.SendMessage(ctx, c.session, services.SendMessageRequest{
			Room:    domain.RoomID(p.RoomID),
			Content: p.Content,
			Type:    domain.MessageType(p.MessageType),
			ReplyTo: replyTo,
		}); err != nil {
			c.reply(errorFrame(err))
		}

	case TypeEditMessage:
		var p EditMessagePayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		messageID, _ := uuid.Parse(p.MessageID)
		if err := c.svc.EditMessage(ctx, c.session, services.EditMessageRequest{
			MessageID: messageID,
			Content:   p.Content,
		}); err != nil {
			c.reply(errorFrame(err))
		}

	case TypeDeleteMessage:
		var p DeleteMessagePayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		messageID, _ := uuid.Parse(p.MessageID)
		if err := c.svc.DeleteMessage(ctx, c.session, messageID); err != nil {
			c.reply(errorFrame(err))
		}

	case TypeTypingStart:
		var p TypingPayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		if err := c.svc.TypingStart(ctx, c.session, domain.RoomID(p.RoomID)); err != nil {
			c.reply(errorFrame(err))
		}

	case TypeTypingStop:
		var p TypingPayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		if err := c.svc.TypingStop(ctx, c.session, domain.RoomID(p.RoomID)); err != nil {
			c.reply(errorFrame(err))
		}

	case TypeCreateRoom:
		var p CreateRoomPayload
		if err := c.decode(frame.Payload, &p); err != nil {
			return err
		}
		_, err := c.svc.CreateRoom(ctx, c.session, domain.ProjectID(p.ProjectID), runtime.CreateRoomRequest{
			Name:        p.Name,
			Description: p.Description,
			Type:        domain.RoomType(p.RoomType),
		})
		if err != nil {
			c.reply(errorFrame(err))
		}

	default:
		// An unknown frame type is a protocol violation.
		return fmt.Errorf("unknown frame type %q", frame.Type)
	}
	return nil
}

// decode unmarshals and validates a payload. A payload that fails
// structural validation is a protocol violation and closes the session.
func (c *Client) decode(raw json.RawMessage, payload any) error {
	if err := json.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	if err := c.validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// reply delivers a direct event to this session only.
func (c *Client) reply(evt event.DomainEvent) {
	data, err := EncodeEvent(evt)
	if err != nil {
		c.log.Error("Failed to encode reply", "event", evt.EventName(), "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.beginDisconnect("send queue full")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			// Unblocks the read pump so Serve can run its cleanup.
			_ = c.conn.Close()
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.beginDisconnect("write failure")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.beginDisconnect("ping failure")
				return
			}
		}
	}
}
