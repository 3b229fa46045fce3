// Package schedule provides the interval and cron based trigger.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/protocol"
)

const defaultInterval = time.Minute

// Trigger fires on a fixed interval, or on a cron schedule when a cron
// expression is configured.
type Trigger struct {
	Interval time.Duration
	CronExpr string

	mu       sync.RWMutex
	running  bool
	stop     chan struct{}
	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	interval, err := parseInterval(config["interval"])
	if err != nil {
		return nil, err
	}

	cronExpr, _ := config["cron"].(string)

	trigger := &Trigger{
		Interval: interval,
		CronExpr: cronExpr,
		logger: logger.With(
			"module", "schedule_trigger",
			"interval", interval,
			"cron", cronExpr,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func parseInterval(raw any) (time.Duration, error) {
	switch value := raw.(type) {
	case nil:
		return defaultInterval, nil
	case string:
		interval, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid interval %q: %w", value, err)
		}

		return interval, nil
	case float64:
		return time.Duration(value * float64(time.Second)), nil
	case int:
		return time.Duration(value) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid interval type %T", raw)
	}
}

func (t *Trigger) Validate() error {
	if t.CronExpr != "" {
		if _, err := cron.ParseStandard(t.CronExpr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}

		return nil
	}

	if t.Interval <= 0 {
		return errors.New("schedule trigger interval must be positive")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	t.logger.Info("Starting schedule trigger")
	t.callback = callback
	t.running = true
	t.stop = make(chan struct{})

	if t.CronExpr != "" {
		t.cron = cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		))

		if _, err := t.cron.AddFunc(t.CronExpr, func() { t.fire(ctx) }); err != nil {
			t.running = false

			return fmt.Errorf("failed to add cron job: %w", err)
		}

		t.cron.Start()

		return nil
	}

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
			t.fire(ctx)
		}
	}
}

// fire delivers one event. Holding the read lock during delivery makes Stop
// wait for in-flight callbacks, so no event arrives after Stop returns.
func (t *Trigger) fire(ctx context.Context) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.running {
		return
	}

	event := models.TriggerEvent{
		Type:      models.TriggerEventSchedule,
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"interval": t.Interval.String()},
	}

	if err := t.callback(ctx, event); err != nil {
		t.logger.Error("Schedule trigger callback failed", "error", err)
	}
}

// Stop is idempotent. After it returns no further events are delivered.
func (t *Trigger) Stop(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	t.logger.Info("Stopping schedule trigger")
	t.running = false
	close(t.stop)

	if t.cron != nil {
		t.cron.Stop()
		t.cron = nil
	}

	return nil
}
