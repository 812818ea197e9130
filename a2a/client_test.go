package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer serves a scripted JSON-RPC endpoint and records requests.
type rpcServer struct {
	t *testing.T

	mu      sync.Mutex
	handler func(req Request) Response
	calls   []Request
}

func newRPCServer(t *testing.T, handler func(req Request) Response) (*rpcServer, *httptest.Server) {
	t.Helper()
	rs := &rpcServer{t: t, handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		rs.mu.Lock()
		rs.calls = append(rs.calls, req)
		handler := rs.handler
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(srv.Close)
	return rs, srv
}

func resultResponse(t *testing.T, id string, result any) Response {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	return Response{JSONRPC: "2.0", ID: id, Result: raw}
}

func fastClient(card AgentCard) *Client {
	return NewClient(card, func(o *ClientOptions) {
		o.PollInitial = time.Millisecond
		o.PollMax = 2 * time.Millisecond
		o.WaitTimeout = 250 * time.Millisecond
	})
}

// -------------------- Round Trip Tests --------------------

func TestClient_SendMessage(t *testing.T) {
	task := Task{Kind: "task", ID: "task-1", Status: NewTaskStatus(TaskStateSubmitted, nil)}
	rs, srv := newRPCServer(t, func(req Request) Response {
		return resultResponse(t, req.ID, task)
	})

	client := fastClient(AgentCard{Name: "Remote", URL: srv.URL})
	got, err := client.SendMessage(context.Background(), NewTextMessage(RoleUser, "analyze my VMs"))
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.ID)
	assert.Equal(t, TaskStateSubmitted, got.Status.State)

	require.Len(t, rs.calls, 1)
	assert.Equal(t, MethodMessageSend, rs.calls[0].Method)
	assert.Equal(t, "2.0", rs.calls[0].JSONRPC)

	var params MessageSendParams
	require.NoError(t, json.Unmarshal(rs.calls[0].Params, &params))
	assert.Equal(t, "analyze my VMs", params.Message.Text())
}

func TestClient_GetTask_And_Cancel(t *testing.T) {
	task := Task{Kind: "task", ID: "task-1", Status: NewTaskStatus(TaskStateCanceled, nil)}
	rs, srv := newRPCServer(t, func(req Request) Response {
		var params TaskIDParams
		require.NoError(t, json.Unmarshal(req.Params, &params))
		assert.Equal(t, "task-1", params.ID)
		return resultResponse(t, req.ID, task)
	})

	client := fastClient(AgentCard{Name: "Remote", URL: srv.URL})

	got, err := client.GetTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, TaskStateCanceled, got.Status.State)

	got, err = client.CancelTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, TaskStateCanceled, got.Status.State)

	assert.Equal(t, []string{MethodTasksGet, MethodTasksCancel}, []string{rs.calls[0].Method, rs.calls[1].Method})
}

func TestClient_RemoteErrorEnvelope(t *testing.T) {
	_, srv := newRPCServer(t, func(req Request) Response {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: &Error{Code: CodeTaskNotFound, Message: "task not found"}}
	})

	client := fastClient(AgentCard{Name: "Remote", URL: srv.URL})
	_, err := client.GetTask(context.Background(), "missing")

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "Remote", remoteErr.Agent)
	assert.Contains(t, remoteErr.Error(), "task not found")
}

func TestClient_Unreachable(t *testing.T) {
	client := fastClient(AgentCard{Name: "Gone", URL: "http://127.0.0.1:1"})
	_, err := client.GetTask(context.Background(), "task-1")

	var remoteErr *RemoteError
	assert.ErrorAs(t, err, &remoteErr)
}

func TestClient_NonTaskResultRejected(t *testing.T) {
	_, srv := newRPCServer(t, func(req Request) Response {
		return resultResponse(t, req.ID, Message{Kind: "message", MessageID: "m1"})
	})

	client := fastClient(AgentCard{Name: "Odd", URL: srv.URL})
	_, err := client.SendMessage(context.Background(), NewTextMessage(RoleUser, "hi"))

	var shapeErr *ResponseShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "message", shapeErr.Got)
}

// -------------------- WaitForTerminal Tests --------------------

func TestClient_WaitForTerminal(t *testing.T) {
	var mu sync.Mutex
	var polls int
	_, srv := newRPCServer(t, func(req Request) Response {
		mu.Lock()
		polls++
		n := polls
		mu.Unlock()

		state := TaskStateWorking
		var msg *Message
		if n >= 3 {
			state = TaskStateCompleted
			m := NewTextMessage(RoleAgent, "3 resources found")
			msg = &m
		}
		return resultResponse(t, req.ID, Task{Kind: "task", ID: "task-1", Status: NewTaskStatus(state, msg)})
	})

	client := fastClient(AgentCard{Name: "Remote", URL: srv.URL})
	task, err := client.WaitForTerminal(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, task.Status.State)
	assert.Equal(t, "3 resources found", task.ResultText())

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, polls, 3)
}

func TestClient_WaitForTerminal_Timeout(t *testing.T) {
	_, srv := newRPCServer(t, func(req Request) Response {
		return resultResponse(t, req.ID, Task{Kind: "task", ID: "task-1", Status: NewTaskStatus(TaskStateWorking, nil)})
	})

	client := NewClient(AgentCard{Name: "Slow", URL: srv.URL}, func(o *ClientOptions) {
		o.PollInitial = time.Millisecond
		o.PollMax = 2 * time.Millisecond
		o.WaitTimeout = 30 * time.Millisecond
	})

	_, err := client.WaitForTerminal(context.Background(), "task-1")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.ErrorIs(t, err, ErrWaitTimeout)
}
