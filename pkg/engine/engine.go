// Package engine walks a workflow definition in execution order, resolves
// each module's input against the run's state store, dispatches the external
// handler capability, and aggregates the final workflow output.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/otelhelper"
	"github.com/canvasflow/canvasflow/pkg/reference"
	"github.com/canvasflow/canvasflow/pkg/registry"
	"github.com/canvasflow/canvasflow/pkg/state"
)

const defaultOutputKey = "workflow_output"

// Result aggregates the terminal state of one run.
type Result struct {
	RunID   string
	Status  models.RunStatus
	Modules map[string]*models.ModuleRun
	Outputs map[string]any
	Error   string
}

type Executor struct {
	registry  *registry.Registry
	logger    *slog.Logger
	policy    Policy
	tracer    trace.Tracer
	observers []Observer
}

type Option func(*Executor)

func WithPolicy(policy Policy) Option {
	return func(e *Executor) { e.policy = policy }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

func WithObserver(observer Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, observer) }
}

func NewExecutor(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Executor {
	executor := &Executor{
		registry: reg,
		logger:   logger.With("module", "workflow_executor"),
		policy:   ContinueIndependent,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Run executes a workflow definition. Each run owns a fresh state store. A
// module is dispatched only after every module in its predecessor set has
// reached a terminal state; per-module failures are recorded, not returned.
// The returned error is reserved for run-level faults.
func (e *Executor) Run(ctx context.Context, def *models.WorkflowDefinition) (*Result, error) {
	return e.RunWithID(ctx, def, generateRunID())
}

// RunWithID executes a workflow definition under a caller-supplied run id, so
// callers that track runs can hand out the id before execution starts.
func (e *Executor) RunWithID(ctx context.Context, def *models.WorkflowDefinition, runID string) (*Result, error) {
	logger := e.logger.With("workflow", def.Name, "run_id", runID)
	logger.Info("Starting execution of workflow", "execution_order", def.ExecutionOrder)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
			attribute.String(otelhelper.WorkflowNameKey, def.Name),
			attribute.String(otelhelper.RunIDKey, runID),
		)
		defer span.End()
	}

	store := state.NewMemoryStore()
	result := &Result{
		RunID:   runID,
		Status:  models.RunStatusRunning,
		Modules: make(map[string]*models.ModuleRun, def.Modules.Len()),
	}

	for _, id := range def.ExecutionOrder {
		result.Modules[id] = &models.ModuleRun{ModuleID: id, Status: models.ModuleStatusWaiting}
	}

	blocked := make(map[string]bool, def.Modules.Len())
	failures := 0

	for _, id := range def.ExecutionOrder {
		if ctx.Err() != nil {
			logger.Warn("Run cancelled, remaining modules will not be dispatched")
			e.cancelRemaining(result)
			result.Status = models.RunStatusCancelled
			result.Error = ctx.Err().Error()

			return result, nil
		}

		if e.policy == AbortAll && failures > 0 {
			e.cancelRemaining(result)

			break
		}

		module, _ := def.Modules.Get(id)
		moduleRun := result.Modules[id]

		if by := blockedBy(def.Predecessors(id), blocked); by != "" {
			reason := fmt.Sprintf("upstream module %s did not complete", by)
			logger.Info("Skipping module", "module_id", id, "reason", reason)
			moduleRun.Status = models.ModuleStatusSkipped
			moduleRun.Error = reason
			blocked[id] = true
			e.notifySkipped(ctx, runID, id, reason)

			continue
		}

		e.executeModule(ctx, runID, module, moduleRun, store, logger)

		if moduleRun.Status == models.ModuleStatusFailed {
			blocked[id] = true
			failures++
		}
	}

	e.resolveOutputs(def, store, result, logger)

	if result.Status == models.RunStatusRunning {
		if failures > 0 {
			result.Status = models.RunStatusFailed
		} else {
			result.Status = models.RunStatusCompleted
		}
	}

	logger.Info("Completed execution of workflow", "status", result.Status)

	return result, nil
}

func (e *Executor) executeModule(
	ctx context.Context,
	runID string,
	module *models.Module,
	moduleRun *models.ModuleRun,
	store state.Store,
	logger *slog.Logger,
) {
	logger = logger.With("module_id", module.ID, "identifier", module.Identifier)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "module.execute",
			attribute.String(otelhelper.ModuleIDKey, module.ID),
			attribute.String(otelhelper.IdentifierKey, module.Identifier),
		)
		defer span.End()
	}

	now := time.Now().UTC()
	moduleRun.Status = models.ModuleStatusRunning
	moduleRun.StartedAt = &now

	e.notifyStart(ctx, runID, module.ID)
	logger.Info("Dispatching module")

	output, err := e.dispatch(ctx, module, store)

	finished := time.Now().UTC()
	moduleRun.FinishedAt = &finished

	if err != nil {
		logger.Error("Module failed", "error", err)
		store.SetError(module.ID, err.Error())
		moduleRun.Status = models.ModuleStatusFailed
		moduleRun.Error = err.Error()
		e.notifyError(ctx, runID, module.ID, err.Error())

		return
	}

	store.SetOutput(module.ID, output)
	moduleRun.Status = models.ModuleStatusCompleted
	moduleRun.Output = output
	e.notifyComplete(ctx, runID, module.ID, output)
	logger.Info("Module completed")
}

// dispatch resolves the module's input and invokes its handler. Resolution
// errors, handler faults, and FAILED results are all module failures.
func (e *Executor) dispatch(ctx context.Context, module *models.Module, store state.Store) (map[string]any, error) {
	input, err := reference.ResolveInput(module, storeLookup{store})
	if err != nil {
		return nil, err
	}

	handler, err := e.registry.CreateHandler(module.Identifier)
	if err != nil {
		return nil, err
	}

	result, err := handler.Execute(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("handler %s failed: %w", module.Identifier, err)
	}

	if result.Failed() {
		return nil, fmt.Errorf("handler %s failed: %s", module.Identifier, result.ErrorMessage())
	}

	return result.Output, nil
}

// resolveOutputs produces the final workflow output. Declared outputs are
// reference expressions resolved against the final state; without an output
// mapping the last module's full output is surfaced.
func (e *Executor) resolveOutputs(def *models.WorkflowDefinition, store state.Store, result *Result, logger *slog.Logger) {
	if len(def.Outputs) == 0 {
		if len(def.ExecutionOrder) > 0 {
			last := def.ExecutionOrder[len(def.ExecutionOrder)-1]
			if output, ok := store.Output(last); ok {
				result.Outputs = map[string]any{defaultOutputKey: output}
			}
		}

		return
	}

	outputs := make(map[string]any, len(def.Outputs))

	for name, expr := range def.Outputs {
		value, err := reference.Resolve(expr, storeLookup{store})
		if err != nil {
			logger.Error("Failed to resolve workflow output", "output", name, "error", err)
			result.Status = models.RunStatusFailed
			result.Error = fmt.Sprintf("failed to resolve output %s: %v", name, err)

			return
		}

		outputs[name] = value
	}

	result.Outputs = outputs
}

func (e *Executor) cancelRemaining(result *Result) {
	for _, moduleRun := range result.Modules {
		if moduleRun.Status == models.ModuleStatusWaiting {
			moduleRun.Status = models.ModuleStatusCancelled
		}
	}
}

// blockedBy returns the first predecessor that failed or was skipped.
// Skipped status propagates, so checking direct predecessors covers
// transitive dependencies.
func blockedBy(predecessors []string, blocked map[string]bool) string {
	for _, dep := range predecessors {
		if blocked[dep] {
			return dep
		}
	}

	return ""
}

func (e *Executor) notifyStart(ctx context.Context, runID, moduleID string) {
	for _, observer := range e.observers {
		observer.OnModuleStart(ctx, runID, moduleID)
	}
}

func (e *Executor) notifyComplete(ctx context.Context, runID, moduleID string, output map[string]any) {
	for _, observer := range e.observers {
		observer.OnModuleComplete(ctx, runID, moduleID, output)
	}
}

func (e *Executor) notifyError(ctx context.Context, runID, moduleID, message string) {
	for _, observer := range e.observers {
		observer.OnModuleError(ctx, runID, moduleID, message)
	}
}

func (e *Executor) notifySkipped(ctx context.Context, runID, moduleID, reason string) {
	for _, observer := range e.observers {
		observer.OnModuleSkipped(ctx, runID, moduleID, reason)
	}
}

// storeLookup adapts a state store to the resolver's read-only view.
type storeLookup struct {
	store state.Store
}

func (l storeLookup) Output(moduleID string) (map[string]any, bool) {
	return l.store.Output(moduleID)
}

func generateRunID() string {
	return "run-" + uuid.New().String()[:8]
}
