// Package service coordinates workflow submissions: it builds the dependency
// graph, runs the executor in the background, persists run snapshots, and
// publishes lifecycle events.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canvasflow/canvasflow/pkg/engine"
	"github.com/canvasflow/canvasflow/pkg/eventbus"
	"github.com/canvasflow/canvasflow/pkg/events"
	"github.com/canvasflow/canvasflow/pkg/graph"
	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/persistence"
	"github.com/canvasflow/canvasflow/pkg/registry"
)

// Manager owns the lifecycle of workflow runs. Submissions are validated
// synchronously and executed asynchronously; status queries read the latest
// persisted snapshot.
type Manager struct {
	builder    *graph.Builder
	registry   *registry.Registry
	repository persistence.RunRepository
	bus        eventbus.EventPublisher
	logger     *slog.Logger
	engineOpts []engine.Option

	mu       sync.RWMutex
	runs     map[string]*models.WorkflowRun
	cancels  map[string]context.CancelFunc
	watchers map[string][]chan *models.WorkflowRun
}

func NewManager(
	reg *registry.Registry,
	repository persistence.RunRepository,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
	engineOpts ...engine.Option,
) *Manager {
	return &Manager{
		builder:    graph.NewBuilder(reg, logger),
		registry:   reg,
		repository: repository,
		bus:        bus,
		logger:     logger.With("module", "workflow_manager"),
		engineOpts: engineOpts,
		runs:       make(map[string]*models.WorkflowRun),
		cancels:    make(map[string]context.CancelFunc),
		watchers:   make(map[string][]chan *models.WorkflowRun),
	}
}

// Submit validates the workflow configuration, starts its execution in the
// background, and returns the run id. Build errors are returned synchronously
// so callers can reject invalid workflows before a run exists.
func (m *Manager) Submit(ctx context.Context, config *models.WorkflowConfig) (string, error) {
	definition, err := m.builder.Build(config)
	if err != nil {
		return "", err
	}

	runID := "run-" + uuid.New().String()[:8]
	now := time.Now().UTC()

	run := &models.WorkflowRun{
		ID:           runID,
		WorkflowName: definition.Name,
		Status:       models.RunStatusPending,
		Modules:      make(map[string]*models.ModuleRun, definition.Modules.Len()),
		StartedAt:    now,
	}

	for _, id := range definition.ExecutionOrder {
		run.Modules[id] = &models.ModuleRun{ModuleID: id, Status: models.ModuleStatusWaiting}
	}

	// The run outlives the submission request, so execution detaches from
	// the caller's context and is cancelled through Cancel.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.runs[runID] = run
	m.cancels[runID] = cancel
	m.mu.Unlock()

	m.saveSnapshot(runCtx, runID)
	m.publish(runCtx, runID, events.RunStarted{
		BaseEvent:    m.baseEvent(events.RunStartedEvent, runID),
		WorkflowName: definition.Name,
	})

	go m.execute(runCtx, runID, definition)

	m.logger.Info("Submitted workflow", "workflow", definition.Name, "run_id", runID)

	return runID, nil
}

func (m *Manager) execute(ctx context.Context, runID string, definition *models.WorkflowDefinition) {
	defer func() {
		m.mu.Lock()
		if cancel, ok := m.cancels[runID]; ok {
			cancel()
			delete(m.cancels, runID)
		}
		m.mu.Unlock()
	}()

	m.updateRun(ctx, runID, func(run *models.WorkflowRun) {
		run.Status = models.RunStatusRunning
	})

	opts := append([]engine.Option{engine.WithObserver(m)}, m.engineOpts...)
	executor := engine.NewExecutor(m.registry, m.logger, opts...)

	result, err := executor.RunWithID(ctx, definition, runID)
	if err != nil {
		m.logger.Error("Run aborted", "run_id", runID, "error", err)
		m.finishRun(ctx, runID, models.RunStatusFailed, nil, err.Error())

		return
	}

	m.finishRun(ctx, runID, result.Status, result.Outputs, result.Error)
}

func (m *Manager) finishRun(ctx context.Context, runID string, status models.RunStatus, outputs map[string]any, errorMessage string) {
	m.updateRun(ctx, runID, func(run *models.WorkflowRun) {
		now := time.Now().UTC()
		run.Status = status
		run.Outputs = outputs
		run.Error = errorMessage
		run.FinishedAt = &now
	})

	eventType := events.RunCompletedEvent

	switch status {
	case models.RunStatusFailed:
		eventType = events.RunFailedEvent
	case models.RunStatusCancelled:
		eventType = events.RunCancelledEvent
	}

	m.publish(ctx, runID, events.RunFinished{
		BaseEvent: m.baseEvent(eventType, runID),
		Status:    status,
		Outputs:   outputs,
		Error:     errorMessage,
	})

	m.closeWatchers(runID)
}

// Status returns the latest snapshot of a run. In-flight runs are served from
// memory; finished runs survive restarts through the repository.
func (m *Manager) Status(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	m.mu.RLock()
	run, ok := m.runs[runID]

	if ok {
		snapshot := cloneRun(run)
		m.mu.RUnlock()

		return snapshot, nil
	}
	m.mu.RUnlock()

	return m.repository.RunByID(ctx, runID)
}

// Watch returns a channel that receives a snapshot after every run update.
// The channel is closed once the run reaches a terminal state. Watching an
// already finished run yields its final snapshot and closes immediately.
func (m *Manager) Watch(ctx context.Context, runID string) (<-chan *models.WorkflowRun, error) {
	ch := make(chan *models.WorkflowRun, 16)

	// The terminal check and watcher registration happen under one lock,
	// so a run finishing concurrently cannot strand the channel unclosed.
	m.mu.Lock()
	if run, ok := m.runs[runID]; ok {
		snapshot := cloneRun(run)
		ch <- snapshot

		if !isTerminal(snapshot.Status) {
			m.watchers[runID] = append(m.watchers[runID], ch)
			m.mu.Unlock()

			return ch, nil
		}

		m.mu.Unlock()
		close(ch)

		return ch, nil
	}
	m.mu.Unlock()

	snapshot, err := m.repository.RunByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	ch <- snapshot
	close(ch)

	return ch, nil
}

// Cancel stops an in-flight run. Modules already dispatched finish; waiting
// modules are marked cancelled.
func (m *Manager) Cancel(runID string) error {
	m.mu.RLock()
	cancel, ok := m.cancels[runID]
	m.mu.RUnlock()

	if !ok {
		return persistence.ErrRunNotFound
	}

	m.logger.Info("Cancelling run", "run_id", runID)
	cancel()

	return nil
}

// OnModuleStart implements engine.Observer.
func (m *Manager) OnModuleStart(ctx context.Context, runID, moduleID string) {
	m.updateModule(ctx, runID, moduleID, func(moduleRun *models.ModuleRun) {
		now := time.Now().UTC()
		moduleRun.Status = models.ModuleStatusRunning
		moduleRun.StartedAt = &now
	})

	m.publish(ctx, runID, events.ModuleStarted{
		BaseEvent: m.baseEvent(events.ModuleStartedEvent, runID),
		ModuleID:  moduleID,
	})
}

// OnModuleComplete implements engine.Observer.
func (m *Manager) OnModuleComplete(ctx context.Context, runID, moduleID string, output map[string]any) {
	m.updateModule(ctx, runID, moduleID, func(moduleRun *models.ModuleRun) {
		now := time.Now().UTC()
		moduleRun.Status = models.ModuleStatusCompleted
		moduleRun.Output = output
		moduleRun.FinishedAt = &now
	})

	m.publish(ctx, runID, events.ModuleCompleted{
		BaseEvent: m.baseEvent(events.ModuleCompletedEvent, runID),
		ModuleID:  moduleID,
		Output:    output,
	})
}

// OnModuleError implements engine.Observer.
func (m *Manager) OnModuleError(ctx context.Context, runID, moduleID, message string) {
	m.updateModule(ctx, runID, moduleID, func(moduleRun *models.ModuleRun) {
		now := time.Now().UTC()
		moduleRun.Status = models.ModuleStatusFailed
		moduleRun.Error = message
		moduleRun.FinishedAt = &now
	})

	m.publish(ctx, runID, events.ModuleFailed{
		BaseEvent: m.baseEvent(events.ModuleFailedEvent, runID),
		ModuleID:  moduleID,
		Error:     message,
	})
}

// OnModuleSkipped implements engine.Observer.
func (m *Manager) OnModuleSkipped(ctx context.Context, runID, moduleID, reason string) {
	m.updateModule(ctx, runID, moduleID, func(moduleRun *models.ModuleRun) {
		moduleRun.Status = models.ModuleStatusSkipped
		moduleRun.Error = reason
	})

	m.publish(ctx, runID, events.ModuleSkipped{
		BaseEvent: m.baseEvent(events.ModuleSkippedEvent, runID),
		ModuleID:  moduleID,
		Reason:    reason,
	})
}

func (m *Manager) updateRun(ctx context.Context, runID string, apply func(*models.WorkflowRun)) {
	m.mu.Lock()
	run, ok := m.runs[runID]
	if ok {
		apply(run)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	m.saveSnapshot(ctx, runID)
	m.notifyWatchers(runID)
}

func (m *Manager) updateModule(ctx context.Context, runID, moduleID string, apply func(*models.ModuleRun)) {
	m.updateRun(ctx, runID, func(run *models.WorkflowRun) {
		if moduleRun, ok := run.Modules[moduleID]; ok {
			apply(moduleRun)
		}
	})
}

// saveSnapshot persists the current run state. Persistence failures degrade
// status durability but never abort the run.
func (m *Manager) saveSnapshot(ctx context.Context, runID string) {
	m.mu.RLock()
	run, ok := m.runs[runID]

	var snapshot *models.WorkflowRun
	if ok {
		snapshot = cloneRun(run)
	}
	m.mu.RUnlock()

	if !ok {
		return
	}

	if err := m.repository.SaveRun(ctx, snapshot); err != nil {
		m.logger.Error("Failed to persist run snapshot", "run_id", runID, "error", err)
	}
}

func (m *Manager) notifyWatchers(runID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return
	}

	for _, ch := range m.watchers[runID] {
		select {
		case ch <- cloneRun(run):
		default:
			// Slow watcher; it will catch up on the next update.
		}
	}
}

// closeWatchers delivers the terminal snapshot to every watcher and closes
// their channels. A lagging watcher may have a full buffer of stale updates;
// those are dropped until the terminal snapshot lands, so no watcher ever
// ends on a non-terminal state.
func (m *Manager) closeWatchers(runID string) {
	m.mu.Lock()
	channels := m.watchers[runID]
	delete(m.watchers, runID)

	var final *models.WorkflowRun
	if run, ok := m.runs[runID]; ok {
		final = cloneRun(run)
	}
	m.mu.Unlock()

	for _, ch := range channels {
		for delivered := final == nil; !delivered; {
			select {
			case ch <- final:
				delivered = true
			default:
				select {
				case <-ch:
				default:
				}
			}
		}

		close(ch)
	}
}

func (m *Manager) publish(ctx context.Context, runID string, event eventbus.Event) {
	if m.bus == nil {
		return
	}

	if err := m.bus.Publish(ctx, runID, event); err != nil {
		m.logger.Error("Failed to publish event", "run_id", runID, "event", event.GetType(), "error", err)
	}
}

func (m *Manager) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}

func isTerminal(status models.RunStatus) bool {
	switch status {
	case models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCancelled:
		return true
	default:
		return false
	}
}

// cloneRun copies a run so readers never share mutable state with the
// executing goroutine. Module outputs are not mutated after completion, so a
// per-module value copy is sufficient.
func cloneRun(run *models.WorkflowRun) *models.WorkflowRun {
	clone := *run
	clone.Modules = make(map[string]*models.ModuleRun, len(run.Modules))

	for id, moduleRun := range run.Modules {
		copied := *moduleRun
		clone.Modules[id] = &copied
	}

	return &clone
}
