// Package log provides a built-in handler that logs a resolved message.
package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/protocol"
)

type Handler struct {
	logger *slog.Logger
}

func (h *Handler) Execute(_ context.Context, input models.HandlerInput) (models.HandlerResult, error) {
	message := fmt.Sprintf("%v", input.UserConfig["message"])

	h.logger.Info(message, "module_id", input.ModuleID)

	return models.HandlerResult{
		Status: models.HandlerStatusCompleted,
		Output: map[string]any{"logged": true, "message": message},
	}, nil
}

func NewFactory() protocol.HandlerFactory {
	return &Factory{}
}

type Factory struct{}

func (f *Factory) ID() string {
	return "log"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"message"},
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log; may reference upstream outputs",
			},
		},
	}
}

func (f *Factory) Create(logger *slog.Logger) (protocol.Handler, error) {
	return &Handler{logger: logger}, nil
}
