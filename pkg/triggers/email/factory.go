package email

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

// NewFactory creates email triggers backed by the given source. A nil source
// falls back to the placeholder mailbox.
func NewFactory(source Source) protocol.TriggerFactory {
	return &Factory{source: source}
}

type Factory struct {
	source Source
}

func (f *Factory) ID() string {
	return "email"
}

func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, f.source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create email trigger: %w", err)
	}

	return trigger, nil
}
