package costmesh

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/agent"
	"github.com/hupe1980/costmesh/model"
	"github.com/hupe1980/costmesh/runloop"
	"github.com/hupe1980/costmesh/task"
)

type stubExecutor struct{ result string }

func (e stubExecutor) Execute(_ context.Context, mgr *task.Manager, _ a2a.Message) {
	if err := mgr.StartWork(); err != nil {
		return
	}
	_ = mgr.Complete(e.result)
}

func (stubExecutor) CancelTask(string) bool { return false }

func TestSystem_RemoteAgents(t *testing.T) {
	card := a2a.AgentCard{Name: "Compute Optimization Agent", Description: "remote specialist"}
	srv := httptest.NewServer(agent.NewServer(card, stubExecutor{result: "3 VMs, one underutilized"}).Handler())
	t.Cleanup(srv.Close)

	mdl := model.NewMockModel("mock")
	mdl.Enqueue(model.Response{ToolCalls: []model.ToolCall{{
		ID:        "call-1",
		Name:      "send_message",
		Arguments: `{"agent_name": "Compute Optimization Agent", "task": "analyze VMs"}`,
	}}})
	mdl.Enqueue(model.Response{Text: "One of your 3 VMs is underutilized."})

	sys := New(mdl, func(o *Options) {
		o.RemoteAgents = []string{srv.URL}
		o.DelegationTimeout = 2 * time.Second
		o.EngineOptions = []func(o *runloop.EngineOptions){func(o *runloop.EngineOptions) {
			o.PollInitial = time.Millisecond
			o.PollMax = 2 * time.Millisecond
		}}
	})

	ctx := context.Background()
	require.NoError(t, sys.Start(ctx))
	t.Cleanup(func() { _ = sys.Shutdown() })

	// No local specialists are hosted in remote mode.
	assert.Equal(t, []string{srv.URL}, sys.Addresses())
	require.NotNil(t, sys.Router())

	tk, err := sys.Ask(ctx, "analyze my VMs")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, tk.Status.State)
	assert.Equal(t, "One of your 3 VMs is underutilized.", tk.ResultText())
}

func TestSystem_AskBeforeStart(t *testing.T) {
	sys := New(model.NewMockModel("mock"))
	_, err := sys.Ask(context.Background(), "anything")
	assert.Error(t, err)
}
