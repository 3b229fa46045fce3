// Package persistence provides the storage abstraction for workflow run
// status, backing the status and stream queries.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/canvasflow/canvasflow/pkg/models"
)

// ErrRunNotFound indicates a run was not found by the given identifier.
var ErrRunNotFound = errors.New("workflow run not found")

// RunRepository stores workflow run snapshots. Implementations persist a
// consistent snapshot per save; readers never observe partial updates.
type RunRepository interface {
	SaveRun(ctx context.Context, run *models.WorkflowRun) error
	RunByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RunError wraps run persistence failures with operation context.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsRunNotFound checks if an error indicates a run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
