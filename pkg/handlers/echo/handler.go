// Package echo provides a built-in handler that returns its resolved
// user_config as output. Useful for wiring tests and self-contained example
// workflows.
package echo

import (
	"context"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/protocol"
)

type Handler struct {
	logger *slog.Logger
}

func (h *Handler) Execute(_ context.Context, input models.HandlerInput) (models.HandlerResult, error) {
	h.logger.Debug("Echoing module config", "module_id", input.ModuleID)

	output := make(map[string]any, len(input.UserConfig))
	for key, value := range input.UserConfig {
		output[key] = value
	}

	return models.HandlerResult{
		Status: models.HandlerStatusCompleted,
		Output: output,
	}, nil
}

func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

type Factory struct{}

func (f *Factory) ID() string {
	return "echo"
}

func (f *Factory) Schema() map[string]any {
	return nil
}

func (f *Factory) Create(logger *slog.Logger) (protocol.Handler, error) {
	return &Handler{logger: logger}, nil
}
