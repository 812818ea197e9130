package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/task"
)

// scriptedExecutor completes every task with a fixed text, or parks until
// canceled when block is set.
type scriptedExecutor struct {
	result string
	block  bool

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	executed []string
}

func newScriptedExecutor(result string, block bool) *scriptedExecutor {
	return &scriptedExecutor{result: result, block: block, cancels: make(map[string]context.CancelFunc)}
}

func (e *scriptedExecutor) Execute(ctx context.Context, mgr *task.Manager, _ a2a.Message) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancels[mgr.ID()] = cancel
	e.executed = append(e.executed, mgr.ID())
	e.mu.Unlock()
	defer cancel()

	if err := mgr.StartWork(); err != nil {
		return
	}
	if e.block {
		<-ctx.Done()
		_ = mgr.Cancel("Task was canceled.")
		return
	}
	_ = mgr.Complete(e.result)
}

func (e *scriptedExecutor) CancelTask(taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.cancels[taskID]
	if ok {
		cancel()
	}
	return ok
}

func testServer(t *testing.T, exec Executor) *httptest.Server {
	t.Helper()
	card := a2a.AgentCard{Name: "Test Agent", Description: "test", URL: "http://test"}
	srv := httptest.NewServer(NewServer(card, exec).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func rpcCall(t *testing.T, url, method string, params any) a2a.Response {
	t.Helper()
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(a2a.Request{JSONRPC: "2.0", ID: "req-1", Method: method, Params: paramsJSON})
	require.NoError(t, err)

	httpResp, err := http.Post(url+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()

	var resp a2a.Response
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	return resp
}

func decodeTask(t *testing.T, resp a2a.Response) a2a.Task {
	t.Helper()
	require.Nil(t, resp.Error)
	var tk a2a.Task
	require.NoError(t, json.Unmarshal(resp.Result, &tk))
	return tk
}

func sendText(t *testing.T, url, text string) a2a.Task {
	t.Helper()
	resp := rpcCall(t, url, a2a.MethodMessageSend, a2a.MessageSendParams{
		Message: a2a.NewTextMessage(a2a.RoleUser, text),
	})
	return decodeTask(t, resp)
}

func pollUntilTerminal(t *testing.T, url, taskID string) a2a.Task {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tk := decodeTask(t, rpcCall(t, url, a2a.MethodTasksGet, a2a.TaskIDParams{ID: taskID}))
		if tk.Status.State.Terminal() {
			return tk
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return a2a.Task{}
}

// -------------------- Discovery Surface Tests --------------------

func TestServer_WellKnownCard(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("ok", false))

	resp, err := http.Get(srv.URL + a2a.AgentCardWellKnownPath)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))
	assert.Equal(t, "Test Agent", card.Name)
}

func TestServer_Health(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("ok", false))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Test Agent is running!", string(body))
}

// -------------------- Task Boundary Tests --------------------

func TestServer_MessageSendAndPoll(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("analysis complete", false))

	created := sendText(t, srv.URL, "analyze my resources")
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.ContextID)

	final := pollUntilTerminal(t, srv.URL, created.ID)
	assert.Equal(t, a2a.TaskStateCompleted, final.Status.State)
	assert.Equal(t, "analysis complete", final.ResultText())
}

func TestServer_InvalidJSONRPCVersion(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("ok", false))

	body, _ := json.Marshal(a2a.Request{JSONRPC: "1.0", ID: "req-1", Method: a2a.MethodTasksGet})
	httpResp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()

	var resp a2a.Response
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeInvalidRequest, resp.Error.Code)
}

func TestServer_UnknownMethod(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("ok", false))

	resp := rpcCall(t, srv.URL, "tasks/resubscribe", a2a.TaskIDParams{ID: "x"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeMethodNotFound, resp.Error.Code)
}

func TestServer_MessageWithoutParts(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("ok", false))

	resp := rpcCall(t, srv.URL, a2a.MethodMessageSend, a2a.MessageSendParams{Message: a2a.Message{Kind: "message"}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeInvalidParams, resp.Error.Code)
}

func TestServer_TaskNotFound(t *testing.T) {
	srv := testServer(t, newScriptedExecutor("ok", false))

	resp := rpcCall(t, srv.URL, a2a.MethodTasksGet, a2a.TaskIDParams{ID: "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, a2a.CodeTaskNotFound, resp.Error.Code)
}

func TestServer_CancelRunningTask(t *testing.T) {
	exec := newScriptedExecutor("", true)
	srv := testServer(t, exec)

	created := sendText(t, srv.URL, "never finishes")

	// Let the executor reach working before canceling.
	time.Sleep(20 * time.Millisecond)

	canceled := decodeTask(t, rpcCall(t, srv.URL, a2a.MethodTasksCancel, a2a.TaskIDParams{ID: created.ID}))
	assert.Equal(t, a2a.TaskStateCanceled, canceled.Status.State)

	final := pollUntilTerminal(t, srv.URL, created.ID)
	assert.Equal(t, a2a.TaskStateCanceled, final.Status.State)
}
