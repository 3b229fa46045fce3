// Package redis provides the Redis-backed run repository for deployments
// where status queries outlive the orchestrating process.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/canvasflow/canvasflow/pkg/models"
	"github.com/canvasflow/canvasflow/pkg/persistence"
)

const keyPrefix = "canvasflow:run:"

// defaultTTL bounds how long finished run snapshots linger.
const defaultTTL = 24 * time.Hour

type Repository struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRepository(redisURL string) (*Repository, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Repository{
		client: goredis.NewClient(opts),
		ttl:    defaultTTL,
	}, nil
}

func (r *Repository) SaveRun(ctx context.Context, run *models.WorkflowRun) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return &persistence.RunError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	if err := r.client.Set(ctx, keyPrefix+run.ID, payload, r.ttl).Err(); err != nil {
		return &persistence.RunError{Op: "SaveRun", RunID: run.ID, Err: err}
	}

	return nil
}

func (r *Repository) RunByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	payload, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, &persistence.RunError{Op: "RunByID", RunID: id, Err: persistence.ErrRunNotFound}
		}

		return nil, &persistence.RunError{Op: "RunByID", RunID: id, Err: err}
	}

	var run models.WorkflowRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, &persistence.RunError{Op: "RunByID", RunID: id, Err: err}
	}

	return &run, nil
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Repository) Close(_ context.Context) error {
	return r.client.Close()
}
