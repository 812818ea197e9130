package runloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/costmesh/internal/util"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/model"
)

// LocalService hosts runs in-process over a chat model. It synthesizes the
// poll-visible run state machine the engine expects: a run goroutine
// generates model turns, parks in requires_action whenever the model requests
// tool calls, and resumes when the engine submits the outputs.
//
// All state is volatile and concurrency-safe. One LocalService serves many
// threads and runs concurrently; a stalled run never blocks another.
type LocalService struct {
	mdl    model.Model
	logger logging.Logger

	mu       sync.Mutex
	threads  map[string]*localThread
	contexts map[string]string // contextID -> threadID
	runs     map[string]*localRun
}

// LocalServiceOptions configure a LocalService.
type LocalServiceOptions struct {
	Logger logging.Logger
}

// NewLocalService constructs a run host over the given model.
func NewLocalService(mdl model.Model, optFns ...func(o *LocalServiceOptions)) *LocalService {
	opts := LocalServiceOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &LocalService{
		mdl:      mdl,
		logger:   opts.Logger,
		threads:  make(map[string]*localThread),
		contexts: make(map[string]string),
		runs:     make(map[string]*localRun),
	}
}

type localThread struct {
	id       string
	messages []model.Message
}

type localRun struct {
	id       string
	threadID string

	outputs chan []ToolOutput
	cancel  chan struct{}

	// guarded by LocalService.mu
	status     RunStatus
	pending    []ToolCall
	failure    string
	agentTexts []string
	canceled   bool
}

// EnsureThread implements RunService.
func (s *LocalService) EnsureThread(_ context.Context, contextID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if threadID, ok := s.contexts[contextID]; ok {
		return threadID, nil
	}
	t := &localThread{id: util.NewID()}
	s.threads[t.id] = t
	if contextID != "" {
		s.contexts[contextID] = t.id
	}
	return t.id, nil
}

// AddUserMessage implements RunService.
func (s *LocalService) AddUserMessage(_ context.Context, threadID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s not found", threadID)
	}
	t.messages = append(t.messages, model.Message{Role: "user", Text: text})
	return nil
}

// CreateRun implements RunService. The run advances in its own goroutine;
// observe it via GetRun.
func (s *LocalService) CreateRun(_ context.Context, threadID string, spec RunSpec) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[threadID]; !ok {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}

	r := &localRun{
		id:       util.NewID(),
		threadID: threadID,
		status:   RunStatusQueued,
		outputs:  make(chan []ToolOutput, 1),
		cancel:   make(chan struct{}),
	}
	s.runs[r.id] = r

	go s.drive(r, spec)

	return s.snapshotLocked(r), nil
}

// GetRun implements RunService.
func (s *LocalService) GetRun(_ context.Context, threadID, runID string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runLocked(threadID, runID)
	if err != nil {
		return nil, err
	}
	return s.snapshotLocked(r), nil
}

// SubmitToolOutputs implements RunService. Exactly one output per pending
// call is required; a mismatch rejects the whole batch.
func (s *LocalService) SubmitToolOutputs(_ context.Context, threadID, runID string, outputs []ToolOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runLocked(threadID, runID)
	if err != nil {
		return err
	}
	if r.status != RunStatusRequiresAction {
		return fmt.Errorf("run %s is not waiting for tool outputs (status %s)", runID, r.status)
	}

	pending := make(map[string]bool, len(r.pending))
	for _, call := range r.pending {
		pending[call.ID] = false
	}
	if len(outputs) != len(pending) {
		return fmt.Errorf("run %s expects %d tool outputs, got %d", runID, len(pending), len(outputs))
	}
	for _, out := range outputs {
		answered, ok := pending[out.CallID]
		if !ok {
			return fmt.Errorf("run %s has no pending tool call %s", runID, out.CallID)
		}
		if answered {
			return fmt.Errorf("run %s received duplicate output for tool call %s", runID, out.CallID)
		}
		pending[out.CallID] = true
	}

	r.status = RunStatusInProgress
	r.pending = nil
	r.outputs <- outputs
	return nil
}

// CancelRun implements RunService. Terminal runs are left unchanged.
func (s *LocalService) CancelRun(_ context.Context, threadID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runLocked(threadID, runID)
	if err != nil {
		return err
	}
	if r.status.Terminal() || r.canceled {
		return nil
	}
	r.canceled = true
	close(r.cancel)

	// A run parked in requires_action has no goroutine turn in flight; fail
	// it here so pollers observe the terminal state immediately.
	if r.status == RunStatusRequiresAction {
		r.status = RunStatusFailed
		r.failure = ErrRunCanceled.Error()
		r.pending = nil
	}
	return nil
}

// AgentMessages implements RunService.
func (s *LocalService) AgentMessages(_ context.Context, threadID, runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.runLocked(threadID, runID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(r.agentTexts))
	copy(texts, r.agentTexts)
	return texts, nil
}

// drive advances one run until terminal: generate a model turn, park on tool
// calls, resume on submitted outputs, finish on a text-only reply.
func (s *LocalService) drive(r *localRun, spec RunSpec) {
	for {
		s.mu.Lock()
		if r.canceled {
			r.status = RunStatusFailed
			r.failure = ErrRunCanceled.Error()
			s.mu.Unlock()
			return
		}
		r.status = RunStatusInProgress
		t := s.threads[r.threadID]
		req := model.Request{
			Instructions: spec.Instructions,
			Messages:     append([]model.Message(nil), t.messages...),
			Tools:        spec.Tools,
		}
		s.mu.Unlock()

		resp, err := s.mdl.Generate(context.Background(), req)

		s.mu.Lock()
		if err != nil {
			r.status = RunStatusFailed
			r.failure = err.Error()
			s.mu.Unlock()
			s.logger.Error("runloop.local.generate_failed", "run_id", r.id, "error", err.Error())
			return
		}

		if resp.Text != "" {
			r.agentTexts = append(r.agentTexts, resp.Text)
		}

		if len(resp.ToolCalls) == 0 {
			t.messages = append(t.messages, model.Message{Role: "assistant", Text: resp.Text})
			r.status = RunStatusCompleted
			s.mu.Unlock()
			return
		}

		t.messages = append(t.messages, model.Message{
			Role:      "assistant",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		calls := make([]ToolCall, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			calls[i] = ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		}
		r.status = RunStatusRequiresAction
		r.pending = calls
		s.mu.Unlock()

		select {
		case outputs := <-r.outputs:
			s.mu.Lock()
			for _, out := range outputs {
				t.messages = append(t.messages, model.Message{
					Role:       "tool",
					Text:       out.Output,
					ToolCallID: out.CallID,
				})
			}
			s.mu.Unlock()
		case <-r.cancel:
			// status already moved to failed by CancelRun
			return
		}
	}
}

func (s *LocalService) runLocked(threadID, runID string) (*localRun, error) {
	r, ok := s.runs[runID]
	if !ok || r.threadID != threadID {
		return nil, fmt.Errorf("run %s not found on thread %s", runID, threadID)
	}
	return r, nil
}

func (s *LocalService) snapshotLocked(r *localRun) *Run {
	snap := &Run{
		ID:            r.id,
		ThreadID:      r.threadID,
		Status:        r.status,
		FailureReason: r.failure,
	}
	if len(r.pending) > 0 {
		snap.PendingCalls = append([]ToolCall(nil), r.pending...)
	}
	return snap
}
