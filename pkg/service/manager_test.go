package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/pkg/eventbus"
	"github.com/canvasflow/canvasflow/pkg/events"
	"github.com/canvasflow/canvasflow/pkg/graph"
	"github.com/canvasflow/canvasflow/pkg/handlers/echo"
	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/persistence"
	"github.com/canvasflow/canvasflow/pkg/persistence/memory"
	"github.com/canvasflow/canvasflow/pkg/protocol"
	"github.com/canvasflow/canvasflow/pkg/registry"
	"github.com/canvasflow/canvasflow/pkg/service"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingFactory struct{}

func (f *failingFactory) ID() string             { return "boom" }
func (f *failingFactory) Schema() map[string]any { return nil }

func (f *failingFactory) Create(_ *slog.Logger) (protocol.Handler, error) {
	return failingHandler{}, nil
}

type failingHandler struct{}

func (failingHandler) Execute(_ context.Context, _ models.HandlerInput) (models.HandlerResult, error) {
	return models.HandlerResult{}, errors.New("boom")
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return nil
}

func (p *capturingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]events.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.GetType())
	}

	return types
}

func newTestManager(t *testing.T, bus eventbus.EventPublisher) *service.Manager {
	t.Helper()

	reg := registry.NewRegistry(newTestLogger())
	reg.RegisterHandler(echo.NewFactory())
	reg.RegisterHandler(&failingFactory{})

	return service.NewManager(reg, memory.NewRepository(), bus, newTestLogger())
}

func echoWorkflow() *models.WorkflowConfig {
	set := models.NewModuleSet()
	set.Add(&models.Module{ID: "a", Identifier: "echo", UserConfig: map[string]any{"v": "one"}})
	set.Add(&models.Module{ID: "b", Identifier: "echo", UserConfig: map[string]any{
		"in": map[string]any{"module_id": "a", "output_key": "v"},
	}})

	return &models.WorkflowConfig{CanvasName: "svc-test", Modules: set}
}

func waitForRun(t *testing.T, manager *service.Manager, runID string) *models.WorkflowRun {
	t.Helper()

	updates, err := manager.Watch(context.Background(), runID)
	require.NoError(t, err)

	var final *models.WorkflowRun

	done := make(chan struct{})

	go func() {
		defer close(done)

		for run := range updates {
			final = run
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}

	require.NotNil(t, final)

	return final
}

func TestSubmitRunsWorkflowToCompletion(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	runID, err := manager.Submit(context.Background(), echoWorkflow())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	final := waitForRun(t, manager, runID)

	assert.Equal(t, models.RunStatusCompleted, final.Status)
	assert.Equal(t, "svc-test", final.WorkflowName)
	assert.Equal(t, models.ModuleStatusCompleted, final.Modules["a"].Status)
	assert.Equal(t, models.ModuleStatusCompleted, final.Modules["b"].Status)
	assert.Equal(t, map[string]any{"in": "one"}, final.Modules["b"].Output)
	assert.Equal(t, map[string]any{"workflow_output": map[string]any{"in": "one"}}, final.Outputs)
	assert.NotNil(t, final.FinishedAt)

	// The terminal snapshot is also readable through Status.
	status, err := manager.Status(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, status.Status)
}

func TestSubmitRejectsInvalidWorkflow(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	_, err := manager.Submit(context.Background(), &models.WorkflowConfig{Modules: models.NewModuleSet()})
	assert.ErrorIs(t, err, graph.ErrNoModules)
}

func TestSubmitRecordsFailedRun(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	set := models.NewModuleSet()
	set.Add(&models.Module{ID: "bad", Identifier: "boom"})
	set.Add(&models.Module{ID: "dep", Identifier: "echo", UserConfig: map[string]any{
		"in": map[string]any{"module_id": "bad", "output_key": "x"},
	}})

	runID, err := manager.Submit(context.Background(), &models.WorkflowConfig{CanvasName: "failing", Modules: set})
	require.NoError(t, err)

	final := waitForRun(t, manager, runID)

	assert.Equal(t, models.RunStatusFailed, final.Status)
	assert.Equal(t, models.ModuleStatusFailed, final.Modules["bad"].Status)
	assert.Equal(t, models.ModuleStatusSkipped, final.Modules["dep"].Status)
}

func TestSubmitPublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	bus := &capturingPublisher{}
	manager := newTestManager(t, bus)

	runID, err := manager.Submit(context.Background(), echoWorkflow())
	require.NoError(t, err)

	final := waitForRun(t, manager, runID)
	require.Equal(t, models.RunStatusCompleted, final.Status)

	types := bus.types()
	assert.Equal(t, events.RunStartedEvent, types[0])
	assert.Equal(t, events.RunCompletedEvent, types[len(types)-1])
	assert.Contains(t, types, events.ModuleStartedEvent)
	assert.Contains(t, types, events.ModuleCompletedEvent)
}

func TestStatusUnknownRun(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	_, err := manager.Status(context.Background(), "missing")
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestCancelUnknownRun(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	err := manager.Cancel("missing")
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestWatchLaggingWatcherGetsTerminalSnapshot(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	// Enough modules to overflow a watcher buffer that is never drained
	// while the run executes.
	set := models.NewModuleSet()
	for i := range 30 {
		set.Add(&models.Module{
			ID:         fmt.Sprintf("m%02d", i),
			Identifier: "echo",
			UserConfig: map[string]any{"v": i},
		})
	}

	runID, err := manager.Submit(context.Background(), &models.WorkflowConfig{CanvasName: "lagging", Modules: set})
	require.NoError(t, err)

	lagging, err := manager.Watch(context.Background(), runID)
	require.NoError(t, err)

	// Wait for the run to finish without touching the lagging channel.
	final := waitForRun(t, manager, runID)
	require.Equal(t, models.RunStatusCompleted, final.Status)

	var last *models.WorkflowRun
	for run := range lagging {
		last = run
	}

	require.NotNil(t, last)
	assert.Equal(t, models.RunStatusCompleted, last.Status)
	assert.NotNil(t, last.FinishedAt)
}

func TestWatchFinishedRunClosesImmediately(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil)

	runID, err := manager.Submit(context.Background(), echoWorkflow())
	require.NoError(t, err)

	waitForRun(t, manager, runID)

	updates, err := manager.Watch(context.Background(), runID)
	require.NoError(t, err)

	snapshot, ok := <-updates
	require.True(t, ok)
	assert.Equal(t, models.RunStatusCompleted, snapshot.Status)

	_, ok = <-updates
	assert.False(t, ok)
}
