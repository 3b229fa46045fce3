package eventbus_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/pkg/channels/gochannel"
	"github.com/canvasflow/canvasflow/pkg/eventbus"
	"github.com/canvasflow/canvasflow/pkg/events"
	"github.com/canvasflow/canvasflow/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	pub, sub, err := gochannel.CreateTestChannel(logger)
	require.NoError(t, err)

	return eventbus.NewWatermillEventBus(pub, sub)
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	var mu sync.Mutex

	var received []*events.RunFinished

	require.NoError(t, bus.Handle(events.RunCompletedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.RunFinished)
		require.True(t, ok)

		mu.Lock()
		defer mu.Unlock()
		received = append(received, finished)

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	published := events.RunFinished{
		BaseEvent: events.BaseEvent{
			ID:        bus.GenerateID(),
			Type:      events.RunCompletedEvent,
			Timestamp: time.Now().UTC(),
			RunID:     "run-42",
		},
		Status:  models.RunStatusCompleted,
		Outputs: map[string]any{"workflow_output": "done"},
	}

	require.NoError(t, bus.Publish(ctx, "run-42", published))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "run-42", received[0].RunID)
	assert.Equal(t, models.RunStatusCompleted, received[0].Status)
	assert.Equal(t, events.RunCompletedEvent, received[0].GetType())
}

func TestUnhandledEventTypesAreAcked(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	var count int

	var mu sync.Mutex

	require.NoError(t, bus.Handle(events.ModuleStartedEvent, func(_ context.Context, _ any) error {
		mu.Lock()
		defer mu.Unlock()
		count++

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler is registered for run.started; the message must still be
	// acknowledged so the stream keeps flowing.
	started := events.RunStarted{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.RunStartedEvent, RunID: "run-1"},
	}
	require.NoError(t, bus.Publish(ctx, "run-1", started))

	moduleStarted := events.ModuleStarted{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.ModuleStartedEvent, RunID: "run-1"},
		ModuleID:  "a",
	}
	require.NoError(t, bus.Publish(ctx, "run-1", moduleStarted))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerateIDIsUnique(t *testing.T) {
	t.Parallel()

	bus := newTestBus(t)

	seen := make(map[string]struct{})
	for range 100 {
		id := bus.GenerateID()
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
