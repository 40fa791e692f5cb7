package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubegenie/kubegenie/pkg/channels/gochannel"
	"github.com/kubegenie/kubegenie/pkg/eventbus"
	"github.com/kubegenie/kubegenie/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.WorkflowExecutionStartedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	published := events.WorkflowExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.WorkflowExecutionStartedEvent, "wf-1"),
		Name:         "Bus Test Workflow",
		TotalActions: 3,
	}
	require.NoError(t, bus.Publish(ctx, "wf-1", published))

	select {
	case event := <-received:
		started, ok := event.(*events.WorkflowExecutionStarted)
		require.True(t, ok)
		assert.Equal(t, "wf-1", started.WorkflowID)
		assert.Equal(t, "Bus Test Workflow", started.Name)
		assert.Equal(t, 3, started.TotalActions)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan any, 2)

	// Only action.finished has a handler; the workflow event must not block
	// the stream.
	require.NoError(t, bus.Handle(events.ActionFinishedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "wf-1", events.WorkflowExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionStartedEvent, "wf-1"),
	}))
	require.NoError(t, bus.Publish(ctx, "wf-1", events.ActionFinished{
		BaseEvent: events.NewBaseEvent(events.ActionFinishedEvent, "wf-1"),
		ActionID:  "a1",
	}))

	select {
	case event := <-received:
		finished, ok := event.(*events.ActionFinished)
		require.True(t, ok)
		assert.Equal(t, "a1", finished.ActionID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
