package models

import (
	"time"
)

// ActionStatus defines the possible states of an action within a workflow.
type ActionStatus string

const (
	ActionStatusWaiting   ActionStatus = "waiting"   // Dependencies not yet satisfied
	ActionStatusReady     ActionStatus = "ready"     // Eligible for dispatch
	ActionStatusExecuting ActionStatus = "executing" // Handed to the executor
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped" // Reached only through workflow cancellation
)

// DefaultActionTimeout is the wall-clock budget for a single action execution
// when the producer does not specify one.
const DefaultActionTimeout = 300 * time.Second

// WorkflowAction represents one unit of remediation or optimization work.
// The engine does not interpret Kind beyond dependency-rule matching; Parameters
// are passed through to the executor unmodified.
type WorkflowAction struct {
	ID           string         `json:"id"           validate:"required"`
	SourceID     string         `json:"source_id"    validate:"required"`
	Kind         string         `json:"kind"         validate:"required"`
	Description  string         `json:"description"`
	Parameters   map[string]any `json:"parameters"`
	Dependencies []string       `json:"dependencies"`
	Timeout      time.Duration  `json:"timeout"`
	Status       ActionStatus   `json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	EndedAt      *time.Time     `json:"ended_at,omitempty"`
	Result       map[string]any `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// IsTerminal reports whether the action has reached a final state.
func (a *WorkflowAction) IsTerminal() bool {
	return a.Status == ActionStatusCompleted ||
		a.Status == ActionStatusFailed ||
		a.Status == ActionStatusSkipped
}

// DependsOn reports whether the action declares a dependency on the given id.
func (a *WorkflowAction) DependsOn(id string) bool {
	for _, dep := range a.Dependencies {
		if dep == id {
			return true
		}
	}

	return false
}

// Elapsed returns the execution duration of the action, or zero while it has
// not started. For in-flight actions it measures against the current time.
func (a *WorkflowAction) Elapsed() time.Duration {
	if a.StartedAt == nil {
		return 0
	}

	if a.EndedAt == nil {
		return time.Since(*a.StartedAt)
	}

	return a.EndedAt.Sub(*a.StartedAt)
}

// ActionSnapshot is the read-only view of an action returned by status queries.
type ActionSnapshot struct {
	ID           string       `json:"id"`
	SourceID     string       `json:"source_id"`
	Kind         string       `json:"kind"`
	Status       ActionStatus `json:"status"`
	Description  string       `json:"description"`
	Dependencies []string     `json:"dependencies"`
	Error        string       `json:"error,omitempty"`
	ElapsedMs    int64        `json:"elapsed_ms"`
}

func (a *WorkflowAction) snapshot() ActionSnapshot {
	deps := make([]string, len(a.Dependencies))
	copy(deps, a.Dependencies)

	return ActionSnapshot{
		ID:           a.ID,
		SourceID:     a.SourceID,
		Kind:         a.Kind,
		Status:       a.Status,
		Description:  a.Description,
		Dependencies: deps,
		Error:        a.Error,
		ElapsedMs:    a.Elapsed().Milliseconds(),
	}
}
