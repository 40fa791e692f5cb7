// Package persistence provides the data storage abstraction for durable
// workflow records. The engine's in-memory store stays authoritative during a
// run; persistence holds the record written at creation and finalization.
package persistence

import (
	"context"

	"github.com/kubegenie/kubegenie/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
