package protocol

import (
	"context"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/models"
)

// TriggerCallback receives exactly one event per firing. No return value is
// consumed by the trigger beyond logging.
type TriggerCallback func(ctx context.Context, event models.TriggerEvent) error

// Trigger is an asynchronous event source with an Idle -> Running -> Idle
// lifecycle. Stop must be idempotent and must prevent further callback
// invocations after it returns; an in-flight check may still complete.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}

// TriggerFactory creates trigger instances for a trigger_type tag.
type TriggerFactory interface {
	ID() string
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)
}
