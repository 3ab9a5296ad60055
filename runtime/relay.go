package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/runtime/workers"
)

// MessageRelay routes room mutations to per-room single-writer workers
// and owns the event bus they all publish into. One worker per active
// room serializes send/edit/delete for that room; the single fanout
// consumer preserves the resulting per-room broadcast order end to end.
// Operations on different rooms proceed fully in parallel.
type MessageRelay struct {
	mu          sync.Mutex
	log         *slog.Logger
	supervisor  contract.ISupervisor
	registry    contract.IRegistry
	store       contract.MessageStore
	bufferSize  int
	sinkTimeout time.Duration
	events      chan event.DomainEvent
	roomChans   map[domain.RoomID]chan domain.Command
	runCtx      context.Context
}

func NewMessageRelay(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, store contract.MessageStore,
	bufferSize int, sinkTimeout time.Duration) *MessageRelay {
	return &MessageRelay{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		store:       store,
		bufferSize:  bufferSize,
		sinkTimeout: sinkTimeout,
		events:      make(chan event.DomainEvent, bufferSize),
		roomChans:   make(map[domain.RoomID]chan domain.Command),
	}
}

// Start registers the fanout worker and keeps the run context under
// which room workers are later spawned on demand. The supervisor itself
// is run by the caller.
func (r *MessageRelay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runCtx = ctx
	fanout := workers.NewEventFanout(r.log, r.registry, r.events, r.sinkTimeout)
	r.supervisor.Add(fanout)
}

// Dispatch hands a command to its room's worker, creating the worker on
// first activity. Blocks with the caller's context rather than dropping
// a durable mutation on backpressure.
func (r *MessageRelay) Dispatch(ctx context.Context, cmd domain.Command) error {
	ch := r.roomChannel(cmd.RoomID())
	select {
	case ch <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish pushes a broadcast event straight onto the bus, used for
// presence, typing and room lifecycle events that carry no durable
// mutation of their own.
func (r *MessageRelay) Publish(ctx context.Context, evt event.DomainEvent) error {
	select {
	case r.events <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bus exposes the broadcast channel for workers that publish directly,
// such as the typing sweep.
func (r *MessageRelay) Bus() chan<- event.DomainEvent {
	return r.events
}

func (r *MessageRelay) roomChannel(roomID domain.RoomID) chan domain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.roomChans[roomID]
	if !ok {
		ch = make(chan domain.Command, r.bufferSize)
		r.roomChans[roomID] = ch
		worker := workers.NewRoomWorker(roomID, ch, r.events, r.store, r.registry, r.log)
		r.supervisor.Start(r.runCtx, worker)
		r.log.Debug("room worker started", "room_id", roomID)
	}
	return ch
}
