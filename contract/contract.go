//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"chat-relay/domain"
	"chat-relay/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one session's delivery endpoint. Consume must be cheap
// and non-blocking; a sink that cannot keep up returns an error and the
// connection manager tears the session down.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the live membership cache: sessions, per-room member
// sets, and per-project session sets. It is the only cross-session
// shared mutable state besides the presence map, and is accessed
// exclusively through this API.
type IRegistry interface {
	Register(sessionID string, sink EventSink)
	Subscribe(sessionID string, roomID domain.RoomID)
	Unsubscribe(sessionID string, roomID domain.RoomID)
	UnsubscribeAll(sessionID string)
	TrackProject(sessionID string, projectID domain.ProjectID)
	IsMember(roomID domain.RoomID, sessionID string) bool
	GetSink(sessionID string) (EventSink, bool)
	GetSinksForRoom(roomID domain.RoomID) []EventSink
	GetSinksForProject(projectID domain.ProjectID) []EventSink
}

// MessageStore is the durable message collaborator. Append and Update
// must be atomic: a failed persist is a no-op from every other
// client's perspective.
type MessageStore interface {
	Append(ctx context.Context, msg domain.Message) error
	Get(ctx context.Context, id uuid.UUID) (domain.Message, error)
	Update(ctx context.Context, msg domain.Message) error
	ListByRoom(ctx context.Context, roomID domain.RoomID, cursor *string, limit int) ([]domain.Message, *string, error)
}

// RoomStore is the durable room collaborator.
type RoomStore interface {
	Create(ctx context.Context, room domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (domain.Room, error)
	ListByProject(ctx context.Context, projectID domain.ProjectID) ([]domain.Room, error)
}

// ProjectAuthorizer answers whether a user belongs to a project. It
// stands for the external authorization collaborator; no user input is
// ever trusted to determine membership.
type ProjectAuthorizer interface {
	IsMember(ctx context.Context, userID string, projectID domain.ProjectID) (bool, error)
}

// ITypingRegistry is the ephemeral typing state consumed by the sweep
// worker; expired entries behave exactly as if the client had stopped.
type ITypingRegistry interface {
	Expire(now time.Time) []domain.TypingEntry
}
