// Package redis provides Redis-backed persistence for workflow records.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kubegenie/kubegenie/pkg/models"
	"github.com/kubegenie/kubegenie/pkg/persistence"
)

const keyPrefix = "kubegenie:workflow:"

// Persistence implements the persistence.Persistence interface on Redis. Each
// workflow is one JSON value keyed by id; records have no TTL.
type Persistence struct {
	client goredis.UniversalClient
}

// NewPersistence creates a Redis persistence from a redis:// connection URL.
func NewPersistence(databaseURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return &Persistence{client: goredis.NewClient(opts)}, nil
}

func (rp *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	if err := rp.client.Set(ctx, keyPrefix+workflow.ID, data, 0).Err(); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (rp *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := rp.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("corrupt workflow record: %w", err))
	}

	return &workflow, nil
}

func (rp *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	var workflows []*models.Workflow

	iter := rp.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		id := iter.Val()[len(keyPrefix):]

		workflow, err := rp.WorkflowByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				// Deleted between scan and fetch.
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan workflow keys: %w", err)
	}

	return workflows, nil
}

func (rp *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	deleted, err := rp.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	if deleted == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}
