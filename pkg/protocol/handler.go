// Package protocol defines the interfaces and contracts for pluggable task
// handlers and event triggers.
package protocol

import (
	"context"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/models"
)

// Handler is the external unit of work a module's identifier resolves to.
// Given a fully resolved input, it returns a COMPLETED or FAILED result.
// A returned error is treated as that module's failure, never as a process
// fault.
type Handler interface {
	Execute(ctx context.Context, input models.HandlerInput) (models.HandlerResult, error)
}

// HandlerFactory creates handler instances and describes their configuration.
type HandlerFactory interface {
	// ID returns the identifier tag this factory serves.
	ID() string

	// Schema returns a JSON Schema for the module's user_config. A nil
	// schema means no required fields are enforced at build time.
	Schema() map[string]any

	Create(logger *slog.Logger) (Handler, error)
}
