package a2a

import "encoding/json"

// JSON-RPC 2.0 method names of the agent task boundary.
const (
	// MethodMessageSend submits a message and returns the created Task.
	MethodMessageSend = "message/send"
	// MethodTasksGet returns the current snapshot of a task.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel requests cancellation of a task and returns its snapshot.
	MethodTasksCancel = "tasks/cancel"
)

// JSON-RPC 2.0 error codes. CodeInvalidRequest and CodeInvalidParams mark a
// malformed request; CodeInternalError marks a request that was accepted but
// failed during processing. Callers use this distinction per the task boundary
// contract.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeTaskNotFound   = -32001
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// MessageSendParams are the parameters of message/send.
type MessageSendParams struct {
	Message   Message `json:"message"`
	ContextID string  `json:"contextId,omitempty"`
}

// TaskIDParams are the parameters of tasks/get and tasks/cancel.
type TaskIDParams struct {
	ID string `json:"id"`
}
