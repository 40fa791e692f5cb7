package engine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubegenie/kubegenie/pkg/engine"
	"github.com/kubegenie/kubegenie/pkg/eventbus"
	"github.com/kubegenie/kubegenie/pkg/events"
	"github.com/kubegenie/kubegenie/pkg/executors/simulated"
	"github.com/kubegenie/kubegenie/pkg/models"
	"github.com/kubegenie/kubegenie/pkg/protocol"
)

type executorFunc func(ctx context.Context, kind string, parameters map[string]any) (map[string]any, error)

func (f executorFunc) Execute(ctx context.Context, kind string, parameters map[string]any) (map[string]any, error) {
	return f(ctx, kind, parameters)
}

// recordingBus captures published event types for assertions.
type recordingBus struct {
	mu    sync.Mutex
	types []events.EventType
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.types = append(b.types, event.GetType())

	return nil
}

func (b *recordingBus) Subscribe(_ context.Context) error { return nil }

func (b *recordingBus) Handle(_ events.EventType, _ eventbus.EventHandler) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) GenerateID() string { return "test" }

func (b *recordingBus) recorded() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()

	recorded := make([]events.EventType, len(b.types))
	copy(recorded, b.types)

	return recorded
}

func newTestEngine(executor protocol.ActionExecutor, opts ...engine.Option) (*engine.Engine, *engine.WorkflowStore) {
	store := engine.NewWorkflowStore()
	opts = append([]engine.Option{engine.WithBatchInterval(0)}, opts...)

	return engine.New(store, executor, opts...), store
}

func proposed(id, agentID, actionType string) models.ProposedAction {
	return models.ProposedAction{
		ID:         id,
		AgentID:    agentID,
		ActionType: actionType,
	}
}

func TestCreateWorkflow_InfersDependencies(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	plan := models.ActionPlan{
		Name: "Cluster Remediation",
		Actions: []models.ProposedAction{
			proposed("sec-1", "security-agent", "security_hardening"),
			proposed("rem-1", "remediation-agent", "restart_pod"),
			proposed("cost-1", "cost-agent", "right_size"),
		},
	}

	workflow, err := eng.CreateWorkflow(context.Background(), plan)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusPending, workflow.Status)
	assert.Equal(t, 3, workflow.TotalActions)

	assert.ElementsMatch(t, []string{"sec-1", "rem-1"}, workflow.Actions["cost-1"].Dependencies)
	assert.Empty(t, workflow.Actions["sec-1"].Dependencies)
	assert.Empty(t, workflow.Actions["rem-1"].Dependencies)
}

func TestCreateWorkflow_SecurityRuleMatchesHardeningOnly(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	plan := models.ActionPlan{
		Name: "Scan And Optimize",
		Actions: []models.ProposedAction{
			proposed("sec-scan", "security-agent", "vulnerability_scan"),
			proposed("cost-1", "cost-agent", "right_size"),
		},
	}

	workflow, err := eng.CreateWorkflow(context.Background(), plan)
	require.NoError(t, err)

	// Only security_hardening gates cost actions; a scan does not.
	assert.Empty(t, workflow.Actions["cost-1"].Dependencies)
}

func TestCreateWorkflow_InvalidPlan(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	_, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{Name: "No Actions"})
	require.Error(t, err)

	_, err = eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "ab",
		Actions: []models.ProposedAction{proposed("a", "remediation-agent", "restart_pod")},
	})
	require.Error(t, err)
}

func TestCreateWorkflow_DuplicateActionID(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	_, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name: "Duplicate Batch",
		Actions: []models.ProposedAction{
			proposed("a1", "remediation-agent", "restart_pod"),
			proposed("a1", "remediation-agent", "scale_deployment"),
		},
	})
	require.ErrorIs(t, err, models.ErrActionAlreadyExists)
}

func TestExecuteWorkflow_IndependentActionsComplete(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name: "Flat Batch",
		Actions: []models.ProposedAction{
			proposed("a1", "remediation-agent", "restart_pod"),
			proposed("a2", "remediation-agent", "scale_deployment"),
			proposed("a3", "security-agent", "rotate_secret"),
		},
	})
	require.NoError(t, err)

	summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusCompleted, summary.Status)
	assert.Equal(t, 3, summary.TotalActions)
	assert.Equal(t, 3, summary.CompletedActions)
	assert.Zero(t, summary.FailedActions)
	assert.Zero(t, summary.SkippedActions)
	assert.Empty(t, summary.FailureReason)

	for _, action := range summary.Actions {
		assert.Equal(t, models.ActionStatusCompleted, action.Status)
	}

	snapshot, err := eng.WorkflowStatus(workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusCompleted, snapshot.Status)
}

func TestExecuteWorkflow_CostRunsAfterPrerequisites(t *testing.T) {
	var mu sync.Mutex

	var order []string

	executor := executorFunc(func(_ context.Context, kind string, _ map[string]any) (map[string]any, error) {
		mu.Lock()
		order = append(order, kind)
		mu.Unlock()

		return map[string]any{"success": true}, nil
	})

	eng, _ := newTestEngine(executor)

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name: "Ordered Batch",
		Actions: []models.ProposedAction{
			proposed("cost-1", "cost-agent", "right_size"),
			proposed("sec-1", "security-agent", "security_hardening"),
			proposed("rem-1", "remediation-agent", "restart_pod"),
		},
	})
	require.NoError(t, err)

	summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)
	require.Equal(t, models.WorkflowStatusCompleted, summary.Status)

	require.Len(t, order, 3)
	assert.Equal(t, "right_size", order[2])
}

func TestExecuteWorkflow_FailureCascade(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	plan := models.ActionPlan{
		Name: "Cascade Batch",
		Actions: []models.ProposedAction{
			{
				ID:         "rem-1",
				AgentID:    "remediation-agent",
				ActionType: "restart_pod",
				Parameters: map[string]any{"simulate_failure": true},
			},
			proposed("cost-1", "cost-agent", "right_size"),
		},
	}

	workflow, err := eng.CreateWorkflow(context.Background(), plan)
	require.NoError(t, err)

	summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err, "action failures must not raise out of the scheduler")

	assert.Equal(t, models.WorkflowStatusFailed, summary.Status)
	assert.Equal(t, 1, summary.FailedActions)
	assert.Zero(t, summary.CompletedActions)
	assert.Contains(t, summary.FailureReason, "blocked by failed dependencies")

	for _, action := range summary.Actions {
		switch action.ID {
		case "rem-1":
			assert.Equal(t, models.ActionStatusFailed, action.Status)
			assert.Contains(t, action.Error, "simulated failure")
		case "cost-1":
			// The dependent never becomes ready and never executes.
			assert.Equal(t, models.ActionStatusWaiting, action.Status)
		}
	}
}

func TestExecuteWorkflow_DeadlockDetected(t *testing.T) {
	bus := &recordingBus{}
	eng, _ := newTestEngine(simulated.New(), engine.WithEventBus(bus))

	workflow := models.NewWorkflow("wf-cycle", "Cyclic Workflow", "")
	require.NoError(t, workflow.AddAction(&models.WorkflowAction{
		ID: "a", SourceID: "remediation-agent", Kind: "restart_pod", Dependencies: []string{"b"},
	}))
	require.NoError(t, workflow.AddAction(&models.WorkflowAction{
		ID: "b", SourceID: "remediation-agent", Kind: "scale_deployment", Dependencies: []string{"c"},
	}))
	require.NoError(t, workflow.AddAction(&models.WorkflowAction{
		ID: "c", SourceID: "remediation-agent", Kind: "rotate_secret", Dependencies: []string{"a"},
	}))

	done := make(chan struct{})

	var summary *engine.ExecutionSummary

	var err error

	go func() {
		summary, err = eng.ExecuteWorkflow(context.Background(), workflow)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlocked workflow did not settle")
	}

	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, summary.Status)
	assert.Contains(t, summary.FailureReason, "deadlocked")
	assert.Contains(t, bus.recorded(), events.WorkflowDeadlockedEvent)
}

func TestExecuteWorkflow_Twice(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Run Once",
		Actions: []models.ProposedAction{proposed("a1", "remediation-agent", "restart_pod")},
	})
	require.NoError(t, err)

	_, err = eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)

	_, err = eng.ExecuteWorkflow(context.Background(), workflow)
	require.Error(t, err)
	assert.True(t, engine.IsInvalidState(err))
}

func TestExecuteWorkflow_ActionTimeout(t *testing.T) {
	bus := &recordingBus{}
	executor := simulated.New(simulated.WithDelay("slow_restore", 500*time.Millisecond))
	eng, _ := newTestEngine(executor, engine.WithEventBus(bus))

	workflow := models.NewWorkflow("wf-timeout", "Timeout Workflow", "")
	require.NoError(t, workflow.AddAction(&models.WorkflowAction{
		ID:       "a",
		SourceID: "remediation-agent",
		Kind:     "slow_restore",
		Timeout:  20 * time.Millisecond,
	}))

	summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusFailed, summary.Status)
	require.Len(t, summary.Actions, 1)
	assert.Equal(t, models.ActionStatusFailed, summary.Actions[0].Status)
	assert.Contains(t, summary.Actions[0].Error, "timeout exceeded")
	assert.Contains(t, bus.recorded(), events.ActionTimeoutEvent)
}

func TestExecuteWorkflow_PanickingExecutor(t *testing.T) {
	executor := executorFunc(func(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
		panic("executor blew up")
	})

	eng, _ := newTestEngine(executor)

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Panic Batch",
		Actions: []models.ProposedAction{proposed("a1", "remediation-agent", "restart_pod")},
	})
	require.NoError(t, err)

	summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusFailed, summary.Status)
	assert.Contains(t, summary.Actions[0].Error, "executor panic")
}

func TestExecuteWorkflow_MaxConcurrent(t *testing.T) {
	var inFlight, peak atomic.Int32

	executor := executorFunc(func(ctx context.Context, _ string, _ map[string]any) (map[string]any, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}

		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return map[string]any{"success": true}, nil
	})

	eng, _ := newTestEngine(executor, engine.WithMaxConcurrent(2))

	actions := make([]models.ProposedAction, 0, 6)
	for _, id := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		actions = append(actions, proposed(id, "remediation-agent", "restart_pod"))
	}

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Wide Batch",
		Actions: actions,
	})
	require.NoError(t, err)

	summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusCompleted, summary.Status)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCancel_RunningWorkflow(t *testing.T) {
	executor := simulated.New(simulated.WithDelay("slow_restore", 300*time.Millisecond))
	eng, _ := newTestEngine(executor)

	workflow := models.NewWorkflow("wf-cancel", "Cancel Workflow", "")
	require.NoError(t, workflow.AddAction(&models.WorkflowAction{
		ID: "a", SourceID: "remediation-agent", Kind: "slow_restore",
	}))
	require.NoError(t, workflow.AddAction(&models.WorkflowAction{
		ID: "b", SourceID: "remediation-agent", Kind: "restart_pod", Dependencies: []string{"a"},
	}))

	type result struct {
		summary *engine.ExecutionSummary
		err     error
	}

	done := make(chan result, 1)

	go func() {
		summary, err := eng.ExecuteWorkflow(context.Background(), workflow)
		done <- result{summary: summary, err: err}
	}()

	// Give the first action time to start before cancelling.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, eng.Cancel("wf-cancel"))

	res := <-done
	require.NoError(t, res.err)

	assert.Equal(t, models.WorkflowStatusFailed, res.summary.Status)
	assert.Equal(t, "cancelled", res.summary.FailureReason)
	assert.GreaterOrEqual(t, res.summary.SkippedActions, 1)

	for _, action := range res.summary.Actions {
		if action.ID == "b" {
			assert.Equal(t, models.ActionStatusSkipped, action.Status)
		}
	}

	// The workflow is terminal now; a second cancel is a state error.
	err := eng.Cancel("wf-cancel")
	require.Error(t, err)
	assert.True(t, engine.IsInvalidState(err))
}

func TestCancel_NotRunning(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Pending Workflow",
		Actions: []models.ProposedAction{proposed("a1", "remediation-agent", "restart_pod")},
	})
	require.NoError(t, err)

	err = eng.Cancel(workflow.ID)
	require.Error(t, err)
	assert.True(t, engine.IsInvalidState(err))
}

func TestCancel_NotFound(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	err := eng.Cancel("missing")
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestWorkflowStatus_NotFound(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	_, err := eng.WorkflowStatus("missing")
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestWorkflows_ListsActiveAndCompleted(t *testing.T) {
	eng, _ := newTestEngine(simulated.New())

	pending, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Pending Workflow",
		Actions: []models.ProposedAction{proposed("a1", "remediation-agent", "restart_pod")},
	})
	require.NoError(t, err)

	finished, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Finished Workflow",
		Actions: []models.ProposedAction{proposed("a1", "remediation-agent", "restart_pod")},
	})
	require.NoError(t, err)

	_, err = eng.ExecuteWorkflow(context.Background(), finished)
	require.NoError(t, err)

	snapshots := eng.Workflows()
	require.Len(t, snapshots, 2)

	statuses := map[string]models.WorkflowStatus{}
	for _, snapshot := range snapshots {
		statuses[snapshot.ID] = snapshot.Status
	}

	assert.Equal(t, models.WorkflowStatusPending, statuses[pending.ID])
	assert.Equal(t, models.WorkflowStatusCompleted, statuses[finished.ID])
}

func TestExecuteWorkflow_EventSequence(t *testing.T) {
	bus := &recordingBus{}
	eng, _ := newTestEngine(simulated.New(), engine.WithEventBus(bus))

	workflow, err := eng.CreateWorkflow(context.Background(), models.ActionPlan{
		Name:    "Event Batch",
		Actions: []models.ProposedAction{proposed("a1", "remediation-agent", "restart_pod")},
	})
	require.NoError(t, err)

	_, err = eng.ExecuteWorkflow(context.Background(), workflow)
	require.NoError(t, err)

	recorded := bus.recorded()
	assert.Equal(t, []events.EventType{
		events.WorkflowExecutionStartedEvent,
		events.ActionStartedEvent,
		events.ActionFinishedEvent,
		events.WorkflowExecutionCompletedEvent,
	}, recorded)
}
