// Package services composes the execution engine with durable persistence,
// exposing the operations the API and runner binaries build on.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kubegenie/kubegenie/pkg/engine"
	"github.com/kubegenie/kubegenie/pkg/models"
	"github.com/kubegenie/kubegenie/pkg/persistence"
)

// WorkflowService creates, executes, and inspects workflows. The engine owns
// the live objects; the persistence layer keeps durable records so finished
// workflows survive a restart.
type WorkflowService struct {
	store       *engine.WorkflowStore
	engine      *engine.Engine
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewWorkflowService(
	store *engine.WorkflowStore,
	eng *engine.Engine,
	persist persistence.Persistence,
	logger *slog.Logger,
) *WorkflowService {
	return &WorkflowService{
		store:       store,
		engine:      eng,
		persistence: persist,
		logger:      logger.With("module", "workflow_service"),
	}
}

// Create builds a pending workflow from an action plan and persists its
// initial record.
func (s *WorkflowService) Create(ctx context.Context, plan models.ActionPlan) (*models.WorkflowSnapshot, error) {
	workflow, err := s.engine.CreateWorkflow(ctx, plan)
	if err != nil {
		return nil, err
	}

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist workflow", "workflow_id", workflow.ID, "error", err)
	}

	return workflow.Snapshot(), nil
}

// Execute runs a previously created workflow to completion and persists the
// final record. Executing an unknown id fails with ErrWorkflowNotFound;
// executing a workflow that already ran fails with ErrInvalidState.
func (s *WorkflowService) Execute(ctx context.Context, workflowID string) (*engine.ExecutionSummary, error) {
	workflow, ok := s.store.Get(workflowID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}

	summary, err := s.engine.ExecuteWorkflow(ctx, workflow)
	if err != nil {
		return nil, err
	}

	// The workflow is terminal now; persist with a fresh context so a
	// cancelled request still records the outcome.
	if err := s.persistence.SaveWorkflow(context.WithoutCancel(ctx), workflow); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist workflow result", "workflow_id", workflowID, "error", err)
	}

	return summary, nil
}

// Run is Create followed by Execute, the one-shot path the runner uses.
func (s *WorkflowService) Run(ctx context.Context, plan models.ActionPlan) (*engine.ExecutionSummary, error) {
	snapshot, err := s.Create(ctx, plan)
	if err != nil {
		return nil, err
	}

	return s.Execute(ctx, snapshot.ID)
}

// Status returns the snapshot for a workflow id, consulting the engine first
// and falling back to durable records for workflows from earlier runs.
func (s *WorkflowService) Status(ctx context.Context, workflowID string) (*models.WorkflowSnapshot, error) {
	snapshot, err := s.engine.WorkflowStatus(workflowID)
	if err == nil {
		return snapshot, nil
	}

	if !IsNotFound(err) {
		return nil, err
	}

	workflow, perr := s.persistence.WorkflowByID(ctx, workflowID)
	if perr != nil {
		if persistence.IsWorkflowNotFound(perr) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}

		return nil, perr
	}

	return workflow.Snapshot(), nil
}

// List returns snapshots of every workflow the engine knows about.
func (s *WorkflowService) List(_ context.Context) []*models.WorkflowSnapshot {
	return s.engine.Workflows()
}

// Cancel aborts a running workflow.
func (s *WorkflowService) Cancel(_ context.Context, workflowID string) error {
	return s.engine.Cancel(workflowID)
}

// HealthCheck reports on the persistence backend.
func (s *WorkflowService) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}
