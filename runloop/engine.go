package runloop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/costmesh/capability"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/model"
)

// NoResponseSentinel is returned as the sole result when a completed run
// produced no agent-authored text. Callers never receive an empty result set
// silently.
const NoResponseSentinel = "No response received"

// Engine drives a run to a terminal state against a RunService.
//
// Each Execute call is independent; one Engine may serve many concurrent
// tasks. The only suspension points are the poll wait and the capability
// handlers themselves, so a slow run never stalls unrelated tasks.
type Engine struct {
	svc      RunService
	registry *capability.Registry
	logger   logging.Logger

	pollInitial time.Duration
	pollMax     time.Duration
	maxPolls    int
	runTimeout  time.Duration
}

// EngineOptions configure an Engine.
type EngineOptions struct {
	Logger logging.Logger

	// PollInitial is the first poll interval; subsequent waits back off
	// exponentially up to PollMax and reset after each tool round.
	PollInitial time.Duration
	PollMax     time.Duration

	// MaxPolls caps the number of poll iterations per run.
	MaxPolls int

	// RunTimeout bounds the wall-clock duration of one run. Exceeding either
	// bound surfaces as ErrRunTimeout.
	RunTimeout time.Duration
}

// NewEngine constructs an Engine invoking the given capability registry.
func NewEngine(svc RunService, registry *capability.Registry, optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{
		Logger:      logging.NoOpLogger{},
		PollInitial: 200 * time.Millisecond,
		PollMax:     2 * time.Second,
		MaxPolls:    50,
		RunTimeout:  2 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		svc:         svc,
		registry:    registry,
		logger:      opts.Logger,
		pollInitial: opts.PollInitial,
		pollMax:     opts.PollMax,
		maxPolls:    opts.MaxPolls,
		runTimeout:  opts.RunTimeout,
	}
}

// ExecuteRequest is one conversational exchange: the incoming user text, the
// context id binding the conversation thread, and the agent's instruction
// text.
type ExecuteRequest struct {
	ContextID    string
	Instructions string
	Message      string
}

// Execute drives the model to a final answer, executing tool calls through
// the capability registry as the run requests them. It returns the ordered
// agent-authored text segments of the run.
//
// Capability failures (unknown name, bad arguments, handler faults) are
// reported to the model as error payloads and never fail the exchange;
// failures of the run itself surface as *RunFailedError, exhausted bounds as
// ErrRunTimeout, and context cancellation as ctx.Err() after the run has been
// canceled.
func (e *Engine) Execute(ctx context.Context, req ExecuteRequest) ([]string, error) {
	threadID, err := e.svc.EnsureThread(ctx, req.ContextID)
	if err != nil {
		return nil, fmt.Errorf("ensure thread: %w", err)
	}
	if err := e.svc.AddUserMessage(ctx, threadID, req.Message); err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}

	run, err := e.svc.CreateRun(ctx, threadID, RunSpec{
		Instructions: req.Instructions,
		Tools:        e.toolDefinitions(),
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	e.logger.Debug("runloop.run.created", "run_id", run.ID, "thread_id", threadID)

	deadline := time.Now().Add(e.runTimeout)
	interval := e.pollInitial

	for polls := 0; ; polls++ {
		if polls >= e.maxPolls || time.Now().After(deadline) {
			_ = e.svc.CancelRun(ctx, threadID, run.ID)
			e.logger.Warn("runloop.run.timeout", "run_id", run.ID, "polls", polls)
			return nil, fmt.Errorf("%w: run %s", ErrRunTimeout, run.ID)
		}

		run, err = e.svc.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("poll run: %w", err)
		}

		switch run.Status {
		case RunStatusQueued, RunStatusInProgress:
			select {
			case <-ctx.Done():
				return nil, e.abort(threadID, run.ID, ctx.Err())
			case <-time.After(interval):
			}
			if interval = interval * 3 / 2; interval > e.pollMax {
				interval = e.pollMax
			}

		case RunStatusRequiresAction:
			outputs := e.executeToolCalls(ctx, run.PendingCalls)
			if ctx.Err() != nil {
				// Canceled mid-round: no further outputs are submitted.
				return nil, e.abort(threadID, run.ID, ctx.Err())
			}
			if err := e.svc.SubmitToolOutputs(ctx, threadID, run.ID, outputs); err != nil {
				return nil, fmt.Errorf("submit tool outputs: %w", err)
			}
			interval = e.pollInitial // progress was made

		case RunStatusCompleted:
			texts, err := e.svc.AgentMessages(ctx, threadID, run.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch agent messages: %w", err)
			}
			if len(texts) == 0 {
				texts = []string{NoResponseSentinel}
			}
			return texts, nil

		case RunStatusFailed:
			return nil, &RunFailedError{RunID: run.ID, Reason: run.FailureReason}

		default:
			return nil, fmt.Errorf("run %s reported unknown status %q", run.ID, run.Status)
		}
	}
}

// abort cancels the run with a fresh context (the caller's is already done)
// and returns cause.
func (e *Engine) abort(threadID, runID string, cause error) error {
	cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.svc.CancelRun(cancelCtx, threadID, runID)
	return cause
}

// executeToolCalls produces exactly one output per call, in call order.
// Failures become {"error": ...} payloads so the model can react in-band.
func (e *Engine) executeToolCalls(ctx context.Context, calls []ToolCall) []ToolOutput {
	outputs := make([]ToolOutput, len(calls))
	for i, call := range calls {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		result, err := e.registry.Invoke(ctx, call.Name, call.Arguments)

		var payload []byte
		if err != nil {
			payload, _ = json.Marshal(map[string]string{"error": err.Error()})
			e.logger.Warn("runloop.tool.error", "call_id", call.ID, "capability", call.Name, "error", err.Error())
		} else {
			payload, err = json.Marshal(map[string]any{"result": result})
			if err != nil {
				payload, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("unserializable result: %v", err)})
			}
			e.logger.Debug("runloop.tool.done", "call_id", call.ID, "capability", call.Name, "duration_ms", time.Since(start).Milliseconds())
		}

		outputs[i] = ToolOutput{CallID: call.ID, Output: string(payload)}
	}
	return outputs
}

func (e *Engine) toolDefinitions() []model.ToolDefinition {
	defs := e.registry.Definitions()
	out := make([]model.ToolDefinition, len(defs))
	for i, d := range defs {
		out[i] = model.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		}
	}
	return out
}
