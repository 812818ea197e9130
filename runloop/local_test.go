package runloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/costmesh/capability"
	"github.com/hupe1980/costmesh/model"
)

func waitForStatus(t *testing.T, svc *LocalService, threadID, runID string, want RunStatus) *Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, err := svc.GetRun(context.Background(), threadID, runID)
		require.NoError(t, err)
		if run.Status == want {
			return run
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("run %s never reached status %s", runID, want)
	return nil
}

func startRun(t *testing.T, svc *LocalService, spec RunSpec) (threadID, runID string) {
	t.Helper()
	ctx := context.Background()
	threadID, err := svc.EnsureThread(ctx, "ctx-1")
	require.NoError(t, err)
	require.NoError(t, svc.AddUserMessage(ctx, threadID, "hello"))
	run, err := svc.CreateRun(ctx, threadID, spec)
	require.NoError(t, err)
	return threadID, run.ID
}

// -------------------- Thread Tests --------------------

func TestLocalService_EnsureThread_ReusesPerContext(t *testing.T) {
	svc := NewLocalService(model.NewMockModel("mock"))
	ctx := context.Background()

	first, err := svc.EnsureThread(ctx, "ctx-1")
	require.NoError(t, err)
	second, err := svc.EnsureThread(ctx, "ctx-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := svc.EnsureThread(ctx, "ctx-2")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

// -------------------- Run State Machine Tests --------------------

func TestLocalService_TextOnlyRunCompletes(t *testing.T) {
	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{Text: "all good"})
	svc := NewLocalService(mdl)

	threadID, runID := startRun(t, svc, RunSpec{})
	waitForStatus(t, svc, threadID, runID, RunStatusCompleted)

	texts, err := svc.AgentMessages(context.Background(), threadID, runID)
	require.NoError(t, err)
	assert.Equal(t, []string{"all good"}, texts)
}

func TestLocalService_ParksOnToolCalls(t *testing.T) {
	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{ToolCalls: []model.ToolCall{
		{ID: "call-1", Name: "lookup", Arguments: `{}`},
	}})
	mdl.Enqueue(model.Response{Text: "done"})
	svc := NewLocalService(mdl)

	threadID, runID := startRun(t, svc, RunSpec{})
	run := waitForStatus(t, svc, threadID, runID, RunStatusRequiresAction)
	require.Len(t, run.PendingCalls, 1)
	assert.Equal(t, "call-1", run.PendingCalls[0].ID)

	err := svc.SubmitToolOutputs(context.Background(), threadID, runID, []ToolOutput{
		{CallID: "call-1", Output: `{"result": 42}`},
	})
	require.NoError(t, err)

	waitForStatus(t, svc, threadID, runID, RunStatusCompleted)

	// The second model turn saw the tool result.
	require.GreaterOrEqual(t, len(mdl.Requests), 2)
	last := mdl.Requests[1].Messages[len(mdl.Requests[1].Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "call-1", last.ToolCallID)
	assert.Equal(t, `{"result": 42}`, last.Text)
}

func TestLocalService_SubmitToolOutputs_Validation(t *testing.T) {
	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{ToolCalls: []model.ToolCall{
		{ID: "call-1", Name: "lookup", Arguments: `{}`},
		{ID: "call-2", Name: "lookup", Arguments: `{}`},
	}})
	svc := NewLocalService(mdl)

	threadID, runID := startRun(t, svc, RunSpec{})
	waitForStatus(t, svc, threadID, runID, RunStatusRequiresAction)
	ctx := context.Background()

	// Too few outputs.
	err := svc.SubmitToolOutputs(ctx, threadID, runID, []ToolOutput{{CallID: "call-1"}})
	assert.Error(t, err)

	// Unknown call id.
	err = svc.SubmitToolOutputs(ctx, threadID, runID, []ToolOutput{
		{CallID: "call-1"}, {CallID: "call-99"},
	})
	assert.Error(t, err)

	// Duplicate output for one call.
	err = svc.SubmitToolOutputs(ctx, threadID, runID, []ToolOutput{
		{CallID: "call-1"}, {CallID: "call-1"},
	})
	assert.Error(t, err)

	// The run is still parked and accepts a correct batch.
	err = svc.SubmitToolOutputs(ctx, threadID, runID, []ToolOutput{
		{CallID: "call-1", Output: "{}"}, {CallID: "call-2", Output: "{}"},
	})
	assert.NoError(t, err)
}

func TestLocalService_SubmitWhileNotParkedRejected(t *testing.T) {
	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{Text: "instant"})
	svc := NewLocalService(mdl)

	threadID, runID := startRun(t, svc, RunSpec{})
	waitForStatus(t, svc, threadID, runID, RunStatusCompleted)

	err := svc.SubmitToolOutputs(context.Background(), threadID, runID, nil)
	assert.Error(t, err)
}

func TestLocalService_CancelParkedRun(t *testing.T) {
	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{ToolCalls: []model.ToolCall{
		{ID: "call-1", Name: "lookup", Arguments: `{}`},
	}})
	svc := NewLocalService(mdl)

	threadID, runID := startRun(t, svc, RunSpec{})
	waitForStatus(t, svc, threadID, runID, RunStatusRequiresAction)

	require.NoError(t, svc.CancelRun(context.Background(), threadID, runID))

	run := waitForStatus(t, svc, threadID, runID, RunStatusFailed)
	assert.Equal(t, ErrRunCanceled.Error(), run.FailureReason)
	assert.Empty(t, run.PendingCalls)

	// Idempotent on a terminal run.
	assert.NoError(t, svc.CancelRun(context.Background(), threadID, runID))
}

func TestLocalService_EngineIntegration(t *testing.T) {
	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{ToolCalls: []model.ToolCall{
		{ID: "call-1", Name: "calculate_sum", Arguments: `{"a": 20, "b": 22}`},
	}})
	mdl.Enqueue(model.Response{Text: "The answer is 42."})

	sum := capability.NewFunction(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)
	reg, err := capability.NewRegistry([]capability.Capability{sum})
	require.NoError(t, err)

	svc := NewLocalService(mdl)
	eng := NewEngine(svc, reg, func(o *EngineOptions) {
		o.PollInitial = time.Millisecond
		o.PollMax = 2 * time.Millisecond
	})

	texts, err := eng.Execute(context.Background(), ExecuteRequest{
		ContextID: "ctx-1",
		Message:   "what is 20 + 22?",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"The answer is 42."}, texts)
}
