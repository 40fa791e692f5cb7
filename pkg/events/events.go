// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the event stream every workflow lifecycle event is published to.
const Topic = "kubegenie.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow execution lifecycle events.
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
	WorkflowExecutionCancelledEvent EventType = "workflow.execution.cancelled"
	WorkflowDeadlockedEvent         EventType = "workflow.deadlocked"

	// Per-action events.
	ActionStartedEvent  EventType = "action.started"
	ActionFinishedEvent EventType = "action.finished"
	ActionFailedEvent   EventType = "action.failed"
	ActionTimeoutEvent  EventType = "action.timeout"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowExecutionStarted struct {
	BaseEvent

	Name         string `json:"name"`
	TotalActions int    `json:"total_actions"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	CompletedActions int           `json:"completed_actions"`
	Duration         time.Duration `json:"duration"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	FailedActions int           `json:"failed_actions"`
	Reason        string        `json:"reason,omitempty"`
	Duration      time.Duration `json:"duration"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}

type WorkflowExecutionCancelled struct {
	BaseEvent

	SkippedActions int `json:"skipped_actions"`
}

func (w WorkflowExecutionCancelled) GetType() EventType {
	return WorkflowExecutionCancelledEvent
}

// WorkflowDeadlocked is published when the scheduler stalls with actions still
// waiting on unsatisfiable dependencies.
type WorkflowDeadlocked struct {
	BaseEvent

	WaitingActions int `json:"waiting_actions"`
}

func (w WorkflowDeadlocked) GetType() EventType {
	return WorkflowDeadlockedEvent
}

type ActionStarted struct {
	BaseEvent

	ActionID   string `json:"action_id"`
	ActionKind string `json:"action_kind"`
	SourceID   string `json:"source_id"`
}

func (a ActionStarted) GetType() EventType {
	return ActionStartedEvent
}

type ActionFinished struct {
	BaseEvent

	ActionID   string         `json:"action_id"`
	ActionKind string         `json:"action_kind"`
	Result     map[string]any `json:"result,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (a ActionFinished) GetType() EventType {
	return ActionFinishedEvent
}

type ActionFailed struct {
	BaseEvent

	ActionID   string `json:"action_id"`
	ActionKind string `json:"action_kind"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (a ActionFailed) GetType() EventType {
	return ActionFailedEvent
}

// ActionTimeout is published when an action exceeds its wall-clock budget.
// The action is recorded as failed; sibling actions keep running.
type ActionTimeout struct {
	BaseEvent

	ActionID   string        `json:"action_id"`
	ActionKind string        `json:"action_kind"`
	Timeout    time.Duration `json:"timeout"`
}

func (a ActionTimeout) GetType() EventType {
	return ActionTimeoutEvent
}
