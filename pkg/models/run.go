package models

import "time"

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ModuleStatus defines the possible states of a module within a run.
type ModuleStatus string

const (
	ModuleStatusWaiting   ModuleStatus = "waiting"
	ModuleStatusRunning   ModuleStatus = "running"
	ModuleStatusCompleted ModuleStatus = "completed"
	ModuleStatusFailed    ModuleStatus = "failed"
	// ModuleStatusSkipped marks modules that were not dispatched because a
	// module they transitively depend on failed.
	ModuleStatusSkipped   ModuleStatus = "skipped"
	ModuleStatusCancelled ModuleStatus = "cancelled"
)

// ModuleRun is the recorded terminal (or in-flight) state of one module.
type ModuleRun struct {
	ModuleID   string         `json:"module_id"`
	Status     ModuleStatus   `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// WorkflowRun aggregates the state of one workflow execution for status and
// stream queries.
type WorkflowRun struct {
	ID           string                `json:"id"`
	WorkflowName string                `json:"workflow_name"`
	Status       RunStatus             `json:"status"`
	Modules      map[string]*ModuleRun `json:"modules"`
	Outputs      map[string]any        `json:"outputs,omitempty"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   *time.Time            `json:"finished_at,omitempty"`
}
