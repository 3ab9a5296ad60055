package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain/event"
)

// TypingSweep periodically expires stale typing entries and broadcasts
// user_stopped_typing exactly as if the client had sent a stop. This
// guarantees a crashed client, or one whose stop frame was lost, cannot
// leave a permanent typing indicator behind.
type TypingSweep struct {
	typing   contract.ITypingRegistry
	events   chan<- event.DomainEvent
	interval time.Duration
	log      *slog.Logger
}

func NewTypingSweep(typing contract.ITypingRegistry, events chan<- event.DomainEvent,
	interval time.Duration, log *slog.Logger) *TypingSweep {
	return &TypingSweep{typing: typing, events: events, interval: interval, log: log}
}

func (w *TypingSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping typing sweep")
			return ctx.Err()
		case now := <-ticker.C:
			for _, entry := range w.typing.Expire(now) {
				evt := event.UserStoppedTyping{UserID: entry.UserID, Room: entry.Room}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case w.events <- evt:
				}
			}
		}
	}
}
