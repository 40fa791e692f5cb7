// Package models defines the core domain models for dependency-aware workflow automation.
package models

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusRunning   WorkflowStatus = "running"
	WorkflowStatusCompleted WorkflowStatus = "completed"
	WorkflowStatusFailed    WorkflowStatus = "failed"
)

var (
	// ErrActionAlreadyExists indicates an action with the same id was already added.
	ErrActionAlreadyExists = errors.New("action already exists in workflow")

	// ErrSelfDependency indicates an action listed its own id as a dependency.
	ErrSelfDependency = errors.New("action cannot depend on itself")

	// ErrWorkflowSealed indicates an attempt to change action membership after
	// execution started.
	ErrWorkflowSealed = errors.New("workflow is sealed against modification")
)

// Workflow is a named batch of actions executed as one scheduling unit.
// Counters are maintained incrementally as actions terminate so that the
// termination check is O(1). All state mutation goes through methods holding
// the workflow's lock; actions in the same dispatch batch terminate at
// overlapping times.
type Workflow struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"        validate:"required,min=3"`
	Description   string                     `json:"description"`
	Actions       map[string]*WorkflowAction `json:"actions"`
	Status        WorkflowStatus             `json:"status"`
	FailureReason string                     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	StartedAt     *time.Time                 `json:"started_at,omitempty"`
	CompletedAt   *time.Time                 `json:"completed_at,omitempty"`

	TotalActions     int `json:"total_actions"`
	CompletedActions int `json:"completed_actions"`
	FailedActions    int `json:"failed_actions"`
	SkippedActions   int `json:"skipped_actions"`

	mu sync.Mutex
}

// NewWorkflow creates an empty workflow in pending state.
func NewWorkflow(id, name, description string) *Workflow {
	return &Workflow{
		ID:          id,
		Name:        name,
		Description: description,
		Actions:     make(map[string]*WorkflowAction),
		Status:      WorkflowStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// AddAction registers an action with the workflow. Membership is frozen once
// the workflow leaves pending state.
func (w *Workflow) AddAction(action *WorkflowAction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Status != WorkflowStatusPending {
		return ErrWorkflowSealed
	}

	if _, exists := w.Actions[action.ID]; exists {
		return ErrActionAlreadyExists
	}

	if action.DependsOn(action.ID) {
		return ErrSelfDependency
	}

	if action.Status == "" {
		action.Status = ActionStatusWaiting
	}

	if action.Timeout <= 0 {
		action.Timeout = DefaultActionTimeout
	}

	w.Actions[action.ID] = action
	w.TotalActions++

	return nil
}

// Start transitions the workflow from pending to running. It reports whether
// the transition happened, which makes execute-once enforceable by the caller.
func (w *Workflow) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Status != WorkflowStatusPending {
		return false
	}

	now := time.Now().UTC()
	w.Status = WorkflowStatusRunning
	w.StartedAt = &now

	return true
}

// ReadyActions promotes every waiting action whose dependencies are all
// completed to ready and returns the promoted batch in deterministic order.
// A dependency on an id outside the workflow can never be satisfied, so such
// actions stay waiting.
func (w *Workflow) ReadyActions() []*WorkflowAction {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []*WorkflowAction

	for _, action := range w.Actions {
		if action.Status != ActionStatusWaiting {
			continue
		}

		satisfied := true

		for _, depID := range action.Dependencies {
			dep, exists := w.Actions[depID]
			if !exists || dep.Status != ActionStatusCompleted {
				satisfied = false

				break
			}
		}

		if satisfied {
			action.Status = ActionStatusReady
			ready = append(ready, action)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })

	return ready
}

// WaitingCount returns the number of actions still waiting on dependencies.
func (w *Workflow) WaitingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	count := 0

	for _, action := range w.Actions {
		if action.Status == ActionStatusWaiting {
			count++
		}
	}

	return count
}

// BlockedByFailure reports whether any waiting action depends, directly or
// transitively, on a failed action. Used to distinguish a failure cascade from
// a genuine dependency cycle when the scheduler stalls.
func (w *Workflow) BlockedByFailure() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, action := range w.Actions {
		if action.Status == ActionStatusWaiting && w.hasFailedAncestor(action, map[string]bool{}) {
			return true
		}
	}

	return false
}

func (w *Workflow) hasFailedAncestor(action *WorkflowAction, seen map[string]bool) bool {
	if seen[action.ID] {
		return false
	}

	seen[action.ID] = true

	for _, depID := range action.Dependencies {
		dep, exists := w.Actions[depID]
		if !exists {
			continue
		}

		if dep.Status == ActionStatusFailed || w.hasFailedAncestor(dep, seen) {
			return true
		}
	}

	return false
}

// BeginAction marks an action as executing and stamps its start time.
func (w *Workflow) BeginAction(actionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, exists := w.Actions[actionID]
	if !exists {
		return
	}

	now := time.Now().UTC()
	action.Status = ActionStatusExecuting
	action.StartedAt = &now
}

// CompleteAction records a successful terminal state for an action.
func (w *Workflow) CompleteAction(actionID string, result map[string]any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, exists := w.Actions[actionID]
	if !exists || action.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	action.Status = ActionStatusCompleted
	action.Result = result
	action.EndedAt = &now
	w.CompletedActions++
}

// FailAction records a failed terminal state for an action.
func (w *Workflow) FailAction(actionID, errorMessage string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, exists := w.Actions[actionID]
	if !exists || action.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	action.Status = ActionStatusFailed
	action.Error = errorMessage
	action.EndedAt = &now
	w.FailedActions++
}

// SkipPending marks every non-terminal, non-executing action as skipped and
// returns how many were skipped. Used by workflow cancellation.
func (w *Workflow) SkipPending() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	skipped := 0

	for _, action := range w.Actions {
		if action.Status == ActionStatusWaiting || action.Status == ActionStatusReady {
			action.Status = ActionStatusSkipped
			w.SkippedActions++
			skipped++
		}
	}

	return skipped
}

// Settled reports whether every action has terminated.
func (w *Workflow) Settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.CompletedActions+w.FailedActions+w.SkippedActions >= w.TotalActions
}

// Finalize moves the workflow to its terminal state. An empty reason with zero
// failures yields completed; anything else yields failed.
func (w *Workflow) Finalize(reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Status == WorkflowStatusCompleted || w.Status == WorkflowStatusFailed {
		return
	}

	now := time.Now().UTC()
	w.CompletedAt = &now

	if reason == "" && w.FailedActions == 0 && w.SkippedActions == 0 {
		w.Status = WorkflowStatusCompleted
	} else {
		w.Status = WorkflowStatusFailed
		w.FailureReason = reason
	}
}

// WorkflowSnapshot is the immutable status view handed to callers. Callers
// never receive mutable references to engine-owned state.
type WorkflowSnapshot struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Status           WorkflowStatus   `json:"status"`
	FailureReason    string           `json:"failure_reason,omitempty"`
	TotalActions     int              `json:"total_actions"`
	CompletedActions int              `json:"completed_actions"`
	FailedActions    int              `json:"failed_actions"`
	SkippedActions   int              `json:"skipped_actions"`
	CreatedAt        time.Time        `json:"created_at"`
	StartedAt        *time.Time       `json:"started_at,omitempty"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	Actions          []ActionSnapshot `json:"actions"`
}

// Snapshot returns a deep, read-only copy of the workflow's current state.
func (w *Workflow) Snapshot() *WorkflowSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	actions := make([]ActionSnapshot, 0, len(w.Actions))
	for _, action := range w.Actions {
		actions = append(actions, action.snapshot())
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].ID < actions[j].ID })

	return &WorkflowSnapshot{
		ID:               w.ID,
		Name:             w.Name,
		Status:           w.Status,
		FailureReason:    w.FailureReason,
		TotalActions:     w.TotalActions,
		CompletedActions: w.CompletedActions,
		FailedActions:    w.FailedActions,
		SkippedActions:   w.SkippedActions,
		CreatedAt:        w.CreatedAt,
		StartedAt:        w.StartedAt,
		CompletedAt:      w.CompletedAt,
		Actions:          actions,
	}
}
