package engine

import (
	"fmt"
	"time"

	"github.com/kubegenie/kubegenie/pkg/models"
)

// ExecutionSummary is the structured result returned by ExecuteWorkflow.
// Callers always receive one, even when the workflow failed or deadlocked.
type ExecutionSummary struct {
	WorkflowID       string                  `json:"workflow_id"`
	Status           models.WorkflowStatus   `json:"status"`
	TotalActions     int                     `json:"total_actions"`
	CompletedActions int                     `json:"completed_actions"`
	FailedActions    int                     `json:"failed_actions"`
	SkippedActions   int                     `json:"skipped_actions"`
	FailureReason    string                  `json:"failure_reason,omitempty"`
	ExecutionTime    time.Duration           `json:"execution_time"`
	Actions          []models.ActionSnapshot `json:"actions"`
}

func newExecutionSummary(snapshot *models.WorkflowSnapshot) *ExecutionSummary {
	var elapsed time.Duration
	if snapshot.StartedAt != nil && snapshot.CompletedAt != nil {
		elapsed = snapshot.CompletedAt.Sub(*snapshot.StartedAt)
	}

	return &ExecutionSummary{
		WorkflowID:       snapshot.ID,
		Status:           snapshot.Status,
		TotalActions:     snapshot.TotalActions,
		CompletedActions: snapshot.CompletedActions,
		FailedActions:    snapshot.FailedActions,
		SkippedActions:   snapshot.SkippedActions,
		FailureReason:    snapshot.FailureReason,
		ExecutionTime:    elapsed,
		Actions:          snapshot.Actions,
	}
}

func (s *ExecutionSummary) failureMessage() string {
	if s.FailureReason != "" {
		return s.FailureReason
	}

	return fmt.Sprintf("%d of %d actions failed", s.FailedActions, s.TotalActions)
}
