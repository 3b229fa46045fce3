// Package events defines event types for workflow run lifecycle
// notifications.
package events

import (
	"time"

	"github.com/canvasflow/canvasflow/pkg/models"
)

type EventType string

// Topic carries all run lifecycle events.
const Topic = "canvasflow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunCancelledEvent EventType = "run.cancelled"

	ModuleStartedEvent   EventType = "module.started"
	ModuleCompletedEvent EventType = "module.completed"
	ModuleFailedEvent    EventType = "module.failed"
	ModuleSkippedEvent   EventType = "module.skipped"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
}

type RunStarted struct {
	BaseEvent

	WorkflowName string `json:"workflow_name"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunFinished struct {
	BaseEvent

	Status  models.RunStatus `json:"status"`
	Outputs map[string]any   `json:"outputs,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (e RunFinished) GetType() EventType {
	return e.Type
}

type ModuleStarted struct {
	BaseEvent

	ModuleID string `json:"module_id"`
}

func (e ModuleStarted) GetType() EventType {
	return ModuleStartedEvent
}

type ModuleCompleted struct {
	BaseEvent

	ModuleID string         `json:"module_id"`
	Output   map[string]any `json:"output,omitempty"`
}

func (e ModuleCompleted) GetType() EventType {
	return ModuleCompletedEvent
}

type ModuleFailed struct {
	BaseEvent

	ModuleID string `json:"module_id"`
	Error    string `json:"error"`
}

func (e ModuleFailed) GetType() EventType {
	return ModuleFailedEvent
}

type ModuleSkipped struct {
	BaseEvent

	ModuleID string `json:"module_id"`
	Reason   string `json:"reason"`
}

func (e ModuleSkipped) GetType() EventType {
	return ModuleSkippedEvent
}
