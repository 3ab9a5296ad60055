package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// EventFanout delivers each event of the bus to every subscribed
// session sink. It is the bus's only consumer and delivers
// synchronously, so the per-room FIFO established by the room workers
// is preserved all the way to each session's send queue. Cross-room
// order is unspecified.
//
// Sinks only enqueue; a sink that cannot keep up fails fast and its
// session is torn down by the connection manager, never stalling the
// fanout for everyone else.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	events      <-chan event.DomainEvent
	sinkTimeout time.Duration
	permanent   []contract.EventSink
}

func NewEventFanout(log *slog.Logger, registry contract.IRegistry,
	events <-chan event.DomainEvent, sinkTimeout time.Duration,
	permanent ...contract.EventSink) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		events:      events,
		sinkTimeout: sinkTimeout,
		permanent:   permanent,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return ctx.Err()
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout resolves the event's audience and delivers to each sink.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	var sinks []contract.EventSink
	switch e := evt.(type) {
	case event.RoomEvent:
		sinks = w.registry.GetSinksForRoom(e.RoomID())
	case event.ProjectEvent:
		sinks = w.registry.GetSinksForProject(e.ProjectID())
	default:
		w.log.Warn("Unroutable event on broadcast bus", "event", evt.EventName())
		return
	}

	for _, sink := range append(sinks, w.permanent...) {
		w.deliver(ctx, sink, evt)
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	deliverCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(deliverCtx, evt); err != nil {
		w.log.Debug("Sink rejected event", "event", evt.EventName(), "error", err)
	}
}
