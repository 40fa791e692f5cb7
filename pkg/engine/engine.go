package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kubegenie/kubegenie/pkg/eventbus"
	"github.com/kubegenie/kubegenie/pkg/events"
	"github.com/kubegenie/kubegenie/pkg/models"
	"github.com/kubegenie/kubegenie/pkg/otelhelper"
	"github.com/kubegenie/kubegenie/pkg/protocol"
)

const (
	// defaultMaxConcurrent bounds in-flight actions per workflow so a wide
	// ready batch cannot overwhelm the downstream executor.
	defaultMaxConcurrent = 8

	// defaultBatchInterval is the pause between scheduler iterations.
	defaultBatchInterval = 500 * time.Millisecond
)

// Engine executes workflows with dependency management. It is the sole mutator
// of the workflows it owns; callers interact through plans, summaries, and
// snapshots.
type Engine struct {
	store         *WorkflowStore
	executor      protocol.ActionExecutor
	eventBus      eventbus.EventBus
	logger        *slog.Logger
	tracer        trace.Tracer
	validate      *validator.Validate
	rules         []DependencyRule
	maxConcurrent int
	batchInterval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

type Option func(*Engine)

// WithEventBus attaches an event bus; lifecycle events are published best-effort.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(e *Engine) { e.eventBus = bus }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRules replaces the built-in dependency-inference rule table.
func WithRules(rules []DependencyRule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithMaxConcurrent caps in-flight actions per workflow execution.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

// WithBatchInterval sets the pause between scheduler iterations.
func WithBatchInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.batchInterval = d
		}
	}
}

func New(store *WorkflowStore, executor protocol.ActionExecutor, opts ...Option) *Engine {
	engine := &Engine{
		store:         store,
		executor:      executor,
		logger:        slog.Default(),
		tracer:        otel.Tracer("kubegenie/engine"),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		rules:         DefaultRules(),
		maxConcurrent: defaultMaxConcurrent,
		batchInterval: defaultBatchInterval,
		cancels:       make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// CreateWorkflow builds a pending workflow from a proposed-action batch, with
// dependency edges populated by the inference rules. The workflow is
// registered in the store but not started.
func (e *Engine) CreateWorkflow(ctx context.Context, plan models.ActionPlan) (*models.Workflow, error) {
	if err := e.validate.Struct(plan); err != nil {
		return nil, fmt.Errorf("invalid action plan: %w", err)
	}

	workflow := models.NewWorkflow(uuid.New().String(), plan.Name, plan.Description)
	inferred := InferDependencies(e.rules, plan.Actions)

	for _, proposed := range plan.Actions {
		timeout := models.DefaultActionTimeout
		if proposed.TimeoutSecs > 0 {
			timeout = time.Duration(proposed.TimeoutSecs) * time.Second
		}

		action := &models.WorkflowAction{
			ID:           proposed.ID,
			SourceID:     proposed.AgentID,
			Kind:         proposed.ActionType,
			Description:  proposed.Description,
			Parameters:   proposed.Parameters,
			Dependencies: inferred[proposed.ID],
			Timeout:      timeout,
		}

		if err := workflow.AddAction(action); err != nil {
			return nil, fmt.Errorf("action %s: %w", proposed.ID, err)
		}
	}

	e.store.Add(workflow)

	e.logger.InfoContext(ctx, "Created workflow",
		"workflow_id", workflow.ID,
		"name", workflow.Name,
		"total_actions", workflow.TotalActions)

	return workflow, nil
}

// ExecuteWorkflow drives the ready-queue loop to completion and returns a
// structured summary. It is callable once per workflow; a second call, or a
// call on a workflow the engine did not leave pending, fails with
// ErrInvalidState. Action failures and deadlock never raise out of the loop;
// they are reflected in the summary.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflow *models.Workflow) (*ExecutionSummary, error) {
	if !workflow.Start() {
		return nil, fmt.Errorf("%w: workflow %s already started", ErrInvalidState, workflow.ID)
	}

	e.store.Add(workflow)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.registerCancel(workflow.ID, cancel)
	defer e.unregisterCancel(workflow.ID)

	runCtx, span := e.tracer.Start(runCtx, "workflow.execute", trace.WithAttributes(
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
	))
	defer span.End()

	logger := e.logger.With("workflow_id", workflow.ID)
	logger.InfoContext(ctx, "Starting workflow execution", "total_actions", workflow.TotalActions)

	e.publish(ctx, workflow.ID, events.WorkflowExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.WorkflowExecutionStartedEvent, workflow.ID),
		Name:         workflow.Name,
		TotalActions: workflow.TotalActions,
	})

	slots := make(chan struct{}, e.maxConcurrent)

	var reason string

	for !workflow.Settled() {
		if runCtx.Err() != nil {
			break
		}

		ready := workflow.ReadyActions()
		if len(ready) == 0 {
			waiting := workflow.WaitingCount()
			if waiting == 0 {
				break
			}

			if workflow.BlockedByFailure() {
				reason = fmt.Sprintf("%d waiting actions blocked by failed dependencies", waiting)
			} else {
				reason = fmt.Sprintf("deadlocked: %d waiting actions can never become ready", waiting)
				e.publish(ctx, workflow.ID, events.WorkflowDeadlocked{
					BaseEvent:      events.NewBaseEvent(events.WorkflowDeadlockedEvent, workflow.ID),
					WaitingActions: waiting,
				})
			}

			logger.ErrorContext(ctx, "Workflow unable to progress", "reason", reason)

			break
		}

		e.runBatch(runCtx, workflow, ready, slots)

		if e.batchInterval > 0 && !workflow.Settled() {
			select {
			case <-time.After(e.batchInterval):
			case <-runCtx.Done():
			}
		}
	}

	if runCtx.Err() != nil && !workflow.Settled() {
		skipped := workflow.SkipPending()
		if reason == "" {
			reason = "cancelled"
		}

		logger.InfoContext(ctx, "Workflow cancelled", "skipped_actions", skipped)
		e.publish(ctx, workflow.ID, events.WorkflowExecutionCancelled{
			BaseEvent:      events.NewBaseEvent(events.WorkflowExecutionCancelledEvent, workflow.ID),
			SkippedActions: skipped,
		})
	}

	workflow.Finalize(reason)
	e.store.Retire(workflow.ID)

	snapshot := workflow.Snapshot()
	summary := newExecutionSummary(snapshot)

	if snapshot.Status == models.WorkflowStatusCompleted {
		e.publish(ctx, workflow.ID, events.WorkflowExecutionCompleted{
			BaseEvent:        events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, workflow.ID),
			CompletedActions: snapshot.CompletedActions,
			Duration:         summary.ExecutionTime,
		})
	} else {
		otelhelper.SetError(span, errors.New(summary.failureMessage()))
		e.publish(ctx, workflow.ID, events.WorkflowExecutionFailed{
			BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionFailedEvent, workflow.ID),
			FailedActions: snapshot.FailedActions,
			Reason:        snapshot.FailureReason,
			Duration:      summary.ExecutionTime,
		})
	}

	logger.InfoContext(ctx, "Workflow execution finished",
		"status", snapshot.Status,
		"completed_actions", snapshot.CompletedActions,
		"failed_actions", snapshot.FailedActions,
		"duration", summary.ExecutionTime)

	return summary, nil
}

// WorkflowStatus returns an immutable snapshot for the given id, or
// ErrWorkflowNotFound if the id is unknown to both registries.
func (e *Engine) WorkflowStatus(workflowID string) (*models.WorkflowSnapshot, error) {
	return e.store.Status(workflowID)
}

// Workflows returns snapshots of every known workflow.
func (e *Engine) Workflows() []*models.WorkflowSnapshot {
	return e.store.List()
}

// Cancel aborts a running workflow: remaining waiting and ready actions are
// skipped and the workflow finalizes as failed. In-flight actions have their
// contexts cancelled.
func (e *Engine) Cancel(workflowID string) error {
	e.mu.Lock()
	cancel, running := e.cancels[workflowID]
	e.mu.Unlock()

	if running {
		cancel()

		return nil
	}

	if _, ok := e.store.Get(workflowID); ok {
		return fmt.Errorf("%w: workflow %s is not running", ErrInvalidState, workflowID)
	}

	return fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
}

// runBatch dispatches every ready action of one scheduler iteration and waits
// for the whole batch to settle. Actions in a batch share no unresolved
// dependency, so they may execute concurrently; the slot channel bounds how
// many are in flight at once.
func (e *Engine) runBatch(ctx context.Context, workflow *models.Workflow, batch []*models.WorkflowAction, slots chan struct{}) {
	var wg sync.WaitGroup

	for _, action := range batch {
		wg.Add(1)

		go func(action *models.WorkflowAction) {
			defer wg.Done()

			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				// Never dispatched; stays ready so cancellation can skip it.
				return
			}
			defer func() { <-slots }()

			e.runAction(ctx, workflow, action)
		}(action)
	}

	wg.Wait()
}

func (e *Engine) runAction(ctx context.Context, workflow *models.Workflow, action *models.WorkflowAction) {
	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"action_id", action.ID,
		"action_kind", action.Kind,
	)

	actionCtx, span := e.tracer.Start(ctx, "action.execute", trace.WithAttributes(
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionKindKey, action.Kind),
		attribute.String(otelhelper.SourceIDKey, action.SourceID),
	))
	defer span.End()

	workflow.BeginAction(action.ID)
	logger.InfoContext(ctx, "Executing action", "description", action.Description)

	e.publish(ctx, workflow.ID, events.ActionStarted{
		BaseEvent:  events.NewBaseEvent(events.ActionStartedEvent, workflow.ID),
		ActionID:   action.ID,
		ActionKind: action.Kind,
		SourceID:   action.SourceID,
	})

	timeoutCtx, cancel := context.WithTimeout(actionCtx, action.Timeout)
	defer cancel()

	result, err := e.invokeExecutor(timeoutCtx, action)
	if err != nil {
		var failure error

		if errors.Is(err, context.DeadlineExceeded) {
			failure = fmt.Errorf("%w after %s", ErrTimeoutExceeded, action.Timeout)
		} else {
			failure = fmt.Errorf("%w: %w", ErrActionExecutionFailed, err)
		}

		actionErr := &ActionError{ActionID: action.ID, Kind: action.Kind, Err: failure}
		workflow.FailAction(action.ID, actionErr.Error())
		otelhelper.SetError(span, actionErr)
		logger.ErrorContext(ctx, "Action failed", "error", actionErr)

		if errors.Is(failure, ErrTimeoutExceeded) {
			e.publish(ctx, workflow.ID, events.ActionTimeout{
				BaseEvent:  events.NewBaseEvent(events.ActionTimeoutEvent, workflow.ID),
				ActionID:   action.ID,
				ActionKind: action.Kind,
				Timeout:    action.Timeout,
			})
		} else {
			e.publish(ctx, workflow.ID, events.ActionFailed{
				BaseEvent:  events.NewBaseEvent(events.ActionFailedEvent, workflow.ID),
				ActionID:   action.ID,
				ActionKind: action.Kind,
				Error:      actionErr.Error(),
				DurationMs: action.Elapsed().Milliseconds(),
			})
		}

		return
	}

	workflow.CompleteAction(action.ID, result)
	logger.InfoContext(ctx, "Action completed")

	e.publish(ctx, workflow.ID, events.ActionFinished{
		BaseEvent:  events.NewBaseEvent(events.ActionFinishedEvent, workflow.ID),
		ActionID:   action.ID,
		ActionKind: action.Kind,
		Result:     result,
		DurationMs: action.Elapsed().Milliseconds(),
	})
}

// invokeExecutor runs the injected executor with panic containment and
// engine-side timeout enforcement, so a misbehaving executor that ignores its
// context cannot wedge the scheduler.
func (e *Engine) invokeExecutor(ctx context.Context, action *models.WorkflowAction) (map[string]any, error) {
	type outcome struct {
		result map[string]any
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("executor panic: %v", r)}
			}
		}()

		result, err := e.executor.Execute(ctx, action.Kind, action.Parameters)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Engine) registerCancel(workflowID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancels[workflowID] = cancel
}

func (e *Engine) unregisterCancel(workflowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.cancels, workflowID)
}
