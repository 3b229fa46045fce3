package engine

import "context"

// Observer is notified of module lifecycle transitions during a run. All
// callbacks run on the executor goroutine; observers should hand work off
// instead of blocking.
type Observer interface {
	OnModuleStart(ctx context.Context, runID, moduleID string)
	OnModuleComplete(ctx context.Context, runID, moduleID string, output map[string]any)
	OnModuleError(ctx context.Context, runID, moduleID, errorMessage string)
	OnModuleSkipped(ctx context.Context, runID, moduleID, reason string)
}
