// Package email provides the mailbox-polling trigger. The mailbox itself is
// an external collaborator behind the Source interface.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/protocol"
)

const defaultPollInterval = 30 * time.Second

// Source is a mailbox-like event source polled on the trigger's interval.
type Source interface {
	Poll(ctx context.Context) ([]map[string]any, error)
}

// placeholderSource yields one empty message per poll, so a configured email
// trigger fires once per interval in the absence of a real mailbox.
type placeholderSource struct{}

func (placeholderSource) Poll(_ context.Context) ([]map[string]any, error) {
	return []map[string]any{{}}, nil
}

// Trigger polls a mailbox source and fires one event per received message.
// Poll errors are logged and swallowed; the loop continues on its interval.
type Trigger struct {
	Interval time.Duration

	source   Source
	mu       sync.RWMutex
	running  bool
	stop     chan struct{}
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, source Source, logger *slog.Logger) (*Trigger, error) {
	interval := defaultPollInterval

	if raw, ok := config["poll_interval"].(string); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval %q: %w", raw, err)
		}

		interval = parsed
	}

	if source == nil {
		source = placeholderSource{}
	}

	trigger := &Trigger{
		Interval: interval,
		source:   source,
		logger:   logger.With("module", "email_trigger", "poll_interval", interval),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Interval <= 0 {
		return errors.New("email trigger poll interval must be positive")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	t.logger.Info("Starting email trigger")
	t.callback = callback
	t.running = true
	t.stop = make(chan struct{})

	go t.loop(ctx, t.stop)

	return nil
}

func (t *Trigger) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

func (t *Trigger) poll(ctx context.Context) {
	messages, err := t.source.Poll(ctx)
	if err != nil {
		// A misbehaving mailbox must not crash the loop.
		t.logger.Error("Mailbox poll failed", "error", err)

		return
	}

	for _, message := range messages {
		t.fire(ctx, message)
	}
}

func (t *Trigger) fire(ctx context.Context, data map[string]any) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.running || t.callback == nil {
		return
	}

	event := models.TriggerEvent{
		Type:      models.TriggerEventEmail,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	if err := t.callback(ctx, event); err != nil {
		t.logger.Error("Email trigger callback failed", "error", err)
	}
}

func (t *Trigger) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	t.logger.Info("Stopping email trigger")
	t.running = false
	close(t.stop)

	return nil
}
