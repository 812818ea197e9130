package runloop

import (
	"context"

	"github.com/hupe1980/costmesh/model"
)

// RunStatus enumerates the states of one conversational run.
type RunStatus string

const (
	// RunStatusQueued marks a run accepted but not yet generating.
	RunStatusQueued RunStatus = "queued"
	// RunStatusInProgress marks a run the model is actively working on.
	RunStatusInProgress RunStatus = "in_progress"
	// RunStatusRequiresAction marks a run blocked on tool outputs.
	RunStatusRequiresAction RunStatus = "requires_action"
	// RunStatusCompleted is the successful terminal state of a run.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed is the unsuccessful terminal state of a run.
	RunStatusFailed RunStatus = "failed"
)

// Terminal reports whether the run status is final.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// ToolCall is the model's request for one external action.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is the host's reported result for one ToolCall. Output is always
// serializable text, on success or on error; the contract never leaves a
// ToolCall unanswered once a run is in requires_action.
type ToolOutput struct {
	CallID string `json:"tool_call_id"`
	Output string `json:"output"`
}

// Run is the poll-visible snapshot of one conversational exchange.
// PendingCalls is populated only in requires_action; FailureReason only in
// failed.
type Run struct {
	ID            string     `json:"id"`
	ThreadID      string     `json:"thread_id"`
	Status        RunStatus  `json:"status"`
	PendingCalls  []ToolCall `json:"pending_calls,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
}

// RunSpec configures a run: the agent identity (instruction text) and the
// capability set exposed to the model.
type RunSpec struct {
	Instructions string
	Tools        []model.ToolDefinition
}

// RunService is the opaque conversational model service the engine drives.
// Implementations must keep runs observable by polling: GetRun returns
// consistent snapshots, and SubmitToolOutputs accepts exactly one output per
// pending call before the run resumes.
type RunService interface {
	// EnsureThread returns the thread bound to contextID, creating it on
	// first use so related requests share conversation history.
	EnsureThread(ctx context.Context, contextID string) (string, error)

	// AddUserMessage appends a user message to the thread.
	AddUserMessage(ctx context.Context, threadID, text string) error

	// CreateRun starts a run against the thread.
	CreateRun(ctx context.Context, threadID string, spec RunSpec) (*Run, error)

	// GetRun returns the current snapshot of a run.
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)

	// SubmitToolOutputs reports the batch of tool outputs for a run in
	// requires_action and resumes it.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error

	// CancelRun stops a run. Idempotent on terminal runs.
	CancelRun(ctx context.Context, threadID, runID string) error

	// AgentMessages returns the ordered agent-authored text segments the run
	// produced.
	AgentMessages(ctx context.Context, threadID, runID string) ([]string, error)
}
