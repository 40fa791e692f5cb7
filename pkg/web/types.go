// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/kubegenie/kubegenie/pkg/engine"
	"github.com/kubegenie/kubegenie/pkg/models"
)

// ExecuteWorkflowResponse is the terminal execution report returned once a
// workflow settles.
type ExecuteWorkflowResponse struct {
	WorkflowID       string                  `json:"workflow_id"`
	Status           string                  `json:"status"`
	TotalActions     int                     `json:"total_actions"`
	CompletedActions int                     `json:"completed_actions"`
	FailedActions    int                     `json:"failed_actions"`
	SkippedActions   int                     `json:"skipped_actions"`
	FailureReason    string                  `json:"failure_reason,omitempty"`
	ExecutionTimeMs  int64                   `json:"execution_time_ms"`
	Actions          []models.ActionSnapshot `json:"actions"`
}

// TransformSummaryResponse converts an engine summary into the wire shape.
func TransformSummaryResponse(summary *engine.ExecutionSummary) ExecuteWorkflowResponse {
	return ExecuteWorkflowResponse{
		WorkflowID:       summary.WorkflowID,
		Status:           string(summary.Status),
		TotalActions:     summary.TotalActions,
		CompletedActions: summary.CompletedActions,
		FailedActions:    summary.FailedActions,
		SkippedActions:   summary.SkippedActions,
		FailureReason:    summary.FailureReason,
		ExecutionTimeMs:  summary.ExecutionTime.Milliseconds(),
		Actions:          summary.Actions,
	}
}

// HealthResponse reports service and dependency health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
