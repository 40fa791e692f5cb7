// Package engine implements the dependency-aware workflow execution engine:
// workflow construction from proposed-action batches, the ready-queue
// scheduler, and the status query surface.
package engine

import (
	"errors"
	"fmt"
)

// Standard engine error types. Per-action failures are captured on the action
// itself and never escape the scheduler loop; only API misuse raises.
var (
	// ErrInvalidState indicates ExecuteWorkflow was called on a workflow that is
	// not pending, or Cancel on a workflow that is not running.
	ErrInvalidState = errors.New("workflow is not in a valid state for this operation")

	// ErrWorkflowNotFound indicates a status query for an unknown workflow id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrDeadlocked indicates the scheduler found no ready candidates while
	// actions were still waiting. Recorded as the workflow's failure reason,
	// never raised past the engine boundary.
	ErrDeadlocked = errors.New("workflow deadlocked: no waiting action can become ready")

	// ErrTimeoutExceeded indicates an action exceeded its wall-clock budget.
	ErrTimeoutExceeded = errors.New("action timeout exceeded")

	// ErrActionExecutionFailed indicates the executor returned failure or panicked.
	ErrActionExecutionFailed = errors.New("action execution failed")
)

// IsNotFound checks if an error indicates an unknown workflow id.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsInvalidState checks if an error indicates an illegal lifecycle transition.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// ActionError wraps a per-action failure with the action it belongs to.
type ActionError struct {
	ActionID string
	Kind     string // action kind, for log context
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s (%s): %v", e.ActionID, e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func (e *ActionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}
