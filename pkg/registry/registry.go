// Package registry maps identifier tags to handler and trigger factories.
// Factories are registered at process start; lookups fail fast on unknown
// tags.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/canvasflow/canvasflow/pkg/protocol"
)

var (
	// ErrUnknownHandlerType indicates a module identifier with no
	// registered handler factory.
	ErrUnknownHandlerType = errors.New("unknown handler type")

	// ErrUnknownTriggerType indicates a trigger_type with no registered
	// trigger factory.
	ErrUnknownTriggerType = errors.New("unknown trigger type")
)

type Registry struct {
	logger           *slog.Logger
	handlerFactories map[string]protocol.HandlerFactory
	triggerFactories map[string]protocol.TriggerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:           logger,
		handlerFactories: make(map[string]protocol.HandlerFactory),
		triggerFactories: make(map[string]protocol.TriggerFactory),
	}
}

func (r *Registry) RegisterHandler(factory protocol.HandlerFactory) {
	r.handlerFactories[factory.ID()] = factory
	r.logger.Debug("Registered handler factory", "identifier", factory.ID())
}

func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.triggerFactories[factory.ID()] = factory
	r.logger.Debug("Registered trigger factory", "trigger_type", factory.ID())
}

// HandlerFactory looks up the factory for an identifier tag.
func (r *Registry) HandlerFactory(identifier string) (protocol.HandlerFactory, error) {
	factory, ok := r.handlerFactories[identifier]
	if !ok {
		return nil, fmt.Errorf("handler type %q not registered: %w", identifier, ErrUnknownHandlerType)
	}

	return factory, nil
}

func (r *Registry) CreateHandler(identifier string) (protocol.Handler, error) {
	factory, err := r.HandlerFactory(identifier)
	if err != nil {
		return nil, err
	}

	return factory.Create(r.logger.With("handler", identifier))
}

func (r *Registry) CreateTrigger(triggerType string, config map[string]any) (protocol.Trigger, error) {
	factory, ok := r.triggerFactories[triggerType]
	if !ok {
		return nil, fmt.Errorf("trigger type %q not registered: %w", triggerType, ErrUnknownTriggerType)
	}

	return factory.Create(config, r.logger.With("trigger_type", triggerType))
}

// HandlerTypes returns all registered handler identifiers.
func (r *Registry) HandlerTypes() []string {
	types := make([]string, 0, len(r.handlerFactories))
	for identifier := range r.handlerFactories {
		types = append(types, identifier)
	}

	return types
}
