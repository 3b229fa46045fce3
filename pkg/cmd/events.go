package cmd

import (
	"context"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/eventbus"
	"github.com/canvasflow/canvasflow/pkg/events"
)

// SubscribeRunEventLogging registers a handler for every run lifecycle event
// type and starts consuming the bus, so every published event surfaces in the
// process log as an audit trail.
func SubscribeRunEventLogging(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	consumer := &runEventLogger{logger: logger.With("module", "run_event_log")}

	handlers := map[events.EventType]eventbus.EventHandler{
		events.RunStartedEvent:      consumer.handleRunStarted,
		events.RunCompletedEvent:    consumer.handleRunFinished,
		events.RunFailedEvent:       consumer.handleRunFinished,
		events.RunCancelledEvent:    consumer.handleRunFinished,
		events.ModuleStartedEvent:   consumer.handleModuleStarted,
		events.ModuleCompletedEvent: consumer.handleModuleCompleted,
		events.ModuleFailedEvent:    consumer.handleModuleFailed,
		events.ModuleSkippedEvent:   consumer.handleModuleSkipped,
	}

	for eventType, handler := range handlers {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return bus.Subscribe(ctx)
}

type runEventLogger struct {
	logger *slog.Logger
}

func (l *runEventLogger) handleRunStarted(ctx context.Context, event any) error {
	started, ok := event.(*events.RunStarted)
	if !ok {
		l.logger.ErrorContext(ctx, "Invalid event type for RunStarted")

		return nil
	}

	l.logger.InfoContext(ctx, "Run started", "run_id", started.RunID, "workflow", started.WorkflowName)

	return nil
}

func (l *runEventLogger) handleRunFinished(ctx context.Context, event any) error {
	finished, ok := event.(*events.RunFinished)
	if !ok {
		l.logger.ErrorContext(ctx, "Invalid event type for RunFinished")

		return nil
	}

	logger := l.logger.With("run_id", finished.RunID, "status", finished.Status)

	if finished.Error != "" {
		logger.WarnContext(ctx, "Run finished with error", "error", finished.Error)

		return nil
	}

	logger.InfoContext(ctx, "Run finished")

	return nil
}

func (l *runEventLogger) handleModuleStarted(ctx context.Context, event any) error {
	started, ok := event.(*events.ModuleStarted)
	if !ok {
		l.logger.ErrorContext(ctx, "Invalid event type for ModuleStarted")

		return nil
	}

	l.logger.InfoContext(ctx, "Module started", "run_id", started.RunID, "module_id", started.ModuleID)

	return nil
}

func (l *runEventLogger) handleModuleCompleted(ctx context.Context, event any) error {
	completed, ok := event.(*events.ModuleCompleted)
	if !ok {
		l.logger.ErrorContext(ctx, "Invalid event type for ModuleCompleted")

		return nil
	}

	l.logger.InfoContext(ctx, "Module completed", "run_id", completed.RunID, "module_id", completed.ModuleID)

	return nil
}

func (l *runEventLogger) handleModuleFailed(ctx context.Context, event any) error {
	failed, ok := event.(*events.ModuleFailed)
	if !ok {
		l.logger.ErrorContext(ctx, "Invalid event type for ModuleFailed")

		return nil
	}

	l.logger.WarnContext(ctx, "Module failed", "run_id", failed.RunID, "module_id", failed.ModuleID, "error", failed.Error)

	return nil
}

func (l *runEventLogger) handleModuleSkipped(ctx context.Context, event any) error {
	skipped, ok := event.(*events.ModuleSkipped)
	if !ok {
		l.logger.ErrorContext(ctx, "Invalid event type for ModuleSkipped")

		return nil
	}

	l.logger.InfoContext(ctx, "Module skipped", "run_id", skipped.RunID, "module_id", skipped.ModuleID, "reason", skipped.Reason)

	return nil
}
