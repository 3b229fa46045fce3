// Package memory provides the in-process run repository used for tests and
// single-binary deployments without an external store.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/persistence"
)

// Repository keeps JSON snapshots of runs in memory, mirroring the external
// key-value backend's semantics so the two are interchangeable.
type Repository struct {
	mu   sync.RWMutex
	runs map[string][]byte
}

func NewRepository() *Repository {
	return &Repository{runs: make(map[string][]byte)}
}

func (r *Repository) SaveRun(_ context.Context, run *models.WorkflowRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return &persistence.RunError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = payload

	return nil
}

func (r *Repository) RunByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	r.mu.RLock()
	payload, ok := r.runs[id]
	r.mu.RUnlock()

	if !ok {
		return nil, &persistence.RunError{Op: "RunByID", RunID: id, Err: persistence.ErrRunNotFound}
	}

	var run models.WorkflowRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, &persistence.RunError{Op: "RunByID", RunID: id, Err: err}
	}

	return &run, nil
}

func (r *Repository) HealthCheck(_ context.Context) error {
	return nil
}

func (r *Repository) Close(_ context.Context) error {
	return nil
}
