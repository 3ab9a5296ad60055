package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_RoomEventReachesRoomSinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)
	roomSinks := []contract.EventSink{mockSink, mockSink}

	events := make(chan event.DomainEvent)
	fanout := NewEventFanout(log, mockRegistry, events, 10*time.Second)

	evt := event.NewMessage{Message: domain.Message{Room: "room-1"}}

	// Given two subscribed sinks for the room
	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("room-1")).Return(roomSinks).Times(1)
	delivered := 0
	mockSink.EXPECT().Consume(gomock.Any(), evt).Do(
		func(ctx context.Context, e event.DomainEvent) {
			delivered++
		}).Return(nil).
		Times(2)

	// When the event is fanned out
	fanout.Fanout(context.Background(), evt)

	// Then both sinks consumed it synchronously
	req.Equal(2, delivered)
}

func TestEventFanout_ProjectEventReachesProjectSinks(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent)
	fanout := NewEventFanout(log, mockRegistry, events, 10*time.Second)

	evt := event.UserOnline{User: domain.PresenceUser{UserID: "alice"}, Project: "project-a"}

	mockRegistry.EXPECT().GetSinksForProject(domain.ProjectID("project-a")).
		Return([]contract.EventSink{mockSink}).Times(1)
	mockSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	events := make(chan event.DomainEvent)
	fanout := NewEventFanout(log, mockRegistry, events, sinkTimeout)

	evt := event.NewMessage{Message: domain.Message{Room: "room-1"}}

	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("room-1")).
		Return([]contract.EventSink{mockSink}).Times(1)
	// Given a sink stalling until its delivery context expires
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(
			func(ctx context.Context, e event.DomainEvent) error {
				<-ctx.Done()     // Waiting for timeout to trigger cancellation
				return ctx.Err() // Sending back "context deadline exceeded"
			},
		).
		Times(1)

	// When the event is fanned out, the stalled sink cannot block forever
	start := time.Now()
	fanout.Fanout(context.Background(), evt)
	require.Less(t, time.Since(start), time.Second)
}

func TestEventFanout_PermanentSinkReceivesEverything(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	permanent := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent)
	fanout := NewEventFanout(log, mockRegistry, events, time.Second, permanent)

	roomEvt := event.NewMessage{Message: domain.Message{Room: "room-1"}}
	projectEvt := event.UserOffline{UserID: "alice", Project: "project-a"}

	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("room-1")).Return(nil).Times(1)
	mockRegistry.EXPECT().GetSinksForProject(domain.ProjectID("project-a")).Return(nil).Times(1)
	permanent.EXPECT().Consume(gomock.Any(), roomEvt).Return(nil).Times(1)
	permanent.EXPECT().Consume(gomock.Any(), projectEvt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), roomEvt)
	fanout.Fanout(context.Background(), projectEvt)
}
