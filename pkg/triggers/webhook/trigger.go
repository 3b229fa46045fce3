// Package webhook provides the inbound-signal trigger with a shared HTTP
// server manager as its transport.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/protocol"
)

// Trigger forwards inbound webhook signals to its callback while running.
// Unlike the polling triggers it owns no loop; Start and Stop only govern
// whether signals are forwarded.
type Trigger struct {
	Path   string
	Method string

	manager  *ServerManager
	mu       sync.RWMutex
	running  bool
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, manager *ServerManager, logger *slog.Logger) (*Trigger, error) {
	path, ok := config["path"].(string)
	if !ok {
		path = "/webhook"
	}

	method, ok := config["method"].(string)
	if !ok {
		method = "POST"
	}

	trigger := &Trigger{
		Path:    path,
		Method:  method,
		manager: manager,
		logger:  logger.With("module", "webhook_trigger", "path", path, "method", method),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Path == "" {
		return errors.New("webhook trigger path is required")
	}

	if t.Path[0] != '/' {
		return errors.New("webhook trigger path must start with '/'")
	}

	if t.manager == nil {
		return errors.New("webhook trigger requires a server manager")
	}

	return nil
}

func (t *Trigger) Start(_ context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	if err := t.manager.Register(t.Path, t); err != nil {
		return err
	}

	t.logger.Info("Starting webhook trigger")
	t.callback = callback
	t.running = true

	return nil
}

// Deliver forwards one inbound signal. Signals arriving after Stop returns
// are dropped.
func (t *Trigger) Deliver(ctx context.Context, data map[string]any) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.running || t.callback == nil {
		return
	}

	event := models.TriggerEvent{
		Type:      models.TriggerEventWebhook,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	if err := t.callback(ctx, event); err != nil {
		t.logger.Error("Webhook trigger callback failed", "error", err)
	}
}

func (t *Trigger) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	t.logger.Info("Stopping webhook trigger")
	t.manager.Unregister(t.Path)
	t.running = false

	return nil
}
