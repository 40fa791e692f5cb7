package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubegenie/kubegenie/pkg/models"
)

func action(id string, deps ...string) *models.WorkflowAction {
	return &models.WorkflowAction{
		ID:           id,
		SourceID:     "remediation-agent",
		Kind:         "restart_pod",
		Dependencies: deps,
	}
}

func TestAddAction_Defaults(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")

	require.NoError(t, workflow.AddAction(action("a1")))

	added := workflow.Actions["a1"]
	assert.Equal(t, models.ActionStatusWaiting, added.Status)
	assert.Equal(t, models.DefaultActionTimeout, added.Timeout)
	assert.Equal(t, 1, workflow.TotalActions)
}

func TestAddAction_DuplicateID(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")

	require.NoError(t, workflow.AddAction(action("a1")))

	err := workflow.AddAction(action("a1"))
	require.ErrorIs(t, err, models.ErrActionAlreadyExists)
	assert.Equal(t, 1, workflow.TotalActions)
}

func TestAddAction_SelfDependency(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")

	err := workflow.AddAction(action("a1", "a1"))
	require.ErrorIs(t, err, models.ErrSelfDependency)
}

func TestAddAction_SealedAfterStart(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a1")))
	require.True(t, workflow.Start())

	err := workflow.AddAction(action("a2"))
	require.ErrorIs(t, err, models.ErrWorkflowSealed)
}

func TestStart_OnlyOnce(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")

	assert.True(t, workflow.Start())
	assert.False(t, workflow.Start())
	assert.Equal(t, models.WorkflowStatusRunning, workflow.Status)
	assert.NotNil(t, workflow.StartedAt)
}

func TestReadyActions_PromotesSatisfiedOnly(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("b")))
	require.NoError(t, workflow.AddAction(action("a")))
	require.NoError(t, workflow.AddAction(action("c", "a")))

	ready := workflow.ReadyActions()
	require.Len(t, ready, 2)
	// Deterministic order by id.
	assert.Equal(t, "a", ready[0].ID)
	assert.Equal(t, "b", ready[1].ID)
	assert.Equal(t, models.ActionStatusReady, ready[0].Status)

	// Still waiting on "a"; a second scan promotes nothing new.
	assert.Empty(t, workflow.ReadyActions())
	assert.Equal(t, 1, workflow.WaitingCount())

	workflow.BeginAction("a")
	workflow.CompleteAction("a", nil)

	ready = workflow.ReadyActions()
	require.Len(t, ready, 1)
	assert.Equal(t, "c", ready[0].ID)
}

func TestReadyActions_FlatBatchPromotedInFirstScan(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a")))
	require.NoError(t, workflow.AddAction(action("b")))
	require.NoError(t, workflow.AddAction(action("c")))

	// No inter-action dependencies: the whole batch is ready at once.
	assert.Len(t, workflow.ReadyActions(), 3)
	assert.Zero(t, workflow.WaitingCount())
}

func TestReadyActions_UnknownDependencyNeverReady(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a", "ghost")))

	assert.Empty(t, workflow.ReadyActions())
	assert.Equal(t, 1, workflow.WaitingCount())
}

func TestCompleteAction_Idempotent(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a")))

	workflow.BeginAction("a")
	workflow.CompleteAction("a", map[string]any{"ok": true})
	workflow.CompleteAction("a", nil)
	workflow.FailAction("a", "late failure")

	assert.Equal(t, 1, workflow.CompletedActions)
	assert.Equal(t, 0, workflow.FailedActions)
	assert.Equal(t, models.ActionStatusCompleted, workflow.Actions["a"].Status)
}

func TestFailAction_RecordsError(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a")))

	workflow.BeginAction("a")
	workflow.FailAction("a", "boom")

	assert.Equal(t, 1, workflow.FailedActions)
	assert.Equal(t, "boom", workflow.Actions["a"].Error)
	assert.NotNil(t, workflow.Actions["a"].EndedAt)
}

func TestBlockedByFailure_Transitive(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a")))
	require.NoError(t, workflow.AddAction(action("b", "a")))
	require.NoError(t, workflow.AddAction(action("c", "b")))

	assert.False(t, workflow.BlockedByFailure())

	workflow.ReadyActions()
	workflow.BeginAction("a")
	workflow.FailAction("a", "boom")

	// Both b (direct) and c (transitive) are blocked.
	assert.True(t, workflow.BlockedByFailure())
}

func TestBlockedByFailure_CycleIsNotFailure(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a", "b")))
	require.NoError(t, workflow.AddAction(action("b", "a")))

	assert.Empty(t, workflow.ReadyActions())
	assert.False(t, workflow.BlockedByFailure())
}

func TestSkipPending(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("a")))
	require.NoError(t, workflow.AddAction(action("b", "a")))
	require.NoError(t, workflow.AddAction(action("c")))

	workflow.ReadyActions()
	workflow.BeginAction("a")
	workflow.CompleteAction("a", nil)

	skipped := workflow.SkipPending()
	assert.Equal(t, 2, skipped)
	assert.Equal(t, 2, workflow.SkippedActions)
	assert.Equal(t, models.ActionStatusSkipped, workflow.Actions["b"].Status)
	assert.Equal(t, models.ActionStatusCompleted, workflow.Actions["a"].Status)
	assert.True(t, workflow.Settled())
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name       string
		reason     string
		fail       bool
		wantStatus models.WorkflowStatus
	}{
		{name: "all completed", wantStatus: models.WorkflowStatusCompleted},
		{name: "with failure", fail: true, wantStatus: models.WorkflowStatusFailed},
		{name: "with reason", reason: "cancelled", wantStatus: models.WorkflowStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
			require.NoError(t, workflow.AddAction(action("a")))
			require.True(t, workflow.Start())

			workflow.ReadyActions()
			workflow.BeginAction("a")

			if tt.fail {
				workflow.FailAction("a", "boom")
			} else {
				workflow.CompleteAction("a", nil)
			}

			workflow.Finalize(tt.reason)

			assert.Equal(t, tt.wantStatus, workflow.Status)
			assert.Equal(t, tt.reason, workflow.FailureReason)
			assert.NotNil(t, workflow.CompletedAt)
		})
	}
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	workflow := models.NewWorkflow("wf-1", "Test Workflow", "")
	require.NoError(t, workflow.AddAction(action("b", "a")))
	require.NoError(t, workflow.AddAction(action("a")))

	snapshot := workflow.Snapshot()
	require.Len(t, snapshot.Actions, 2)
	assert.Equal(t, "a", snapshot.Actions[0].ID)
	assert.Equal(t, "b", snapshot.Actions[1].ID)

	// Mutating the snapshot's dependency slice must not leak back.
	snapshot.Actions[1].Dependencies[0] = "mutated"
	assert.Equal(t, "a", workflow.Actions["b"].Dependencies[0])
}

func TestElapsed(t *testing.T) {
	started := time.Now().UTC().Add(-2 * time.Second)
	ended := started.Add(1500 * time.Millisecond)

	act := action("a")
	assert.Zero(t, act.Elapsed())

	act.StartedAt = &started
	act.EndedAt = &ended
	assert.Equal(t, 1500*time.Millisecond, act.Elapsed())
}
