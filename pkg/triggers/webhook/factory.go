package webhook

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

func NewFactory(manager *ServerManager) protocol.TriggerFactory {
	return &Factory{manager: manager}
}

type Factory struct {
	manager *ServerManager
}

func (f *Factory) ID() string {
	return "webhook"
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, f.manager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook trigger: %w", err)
	}

	return trigger, nil
}
