package agent

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/logging"
	"github.com/hupe1980/costmesh/runloop"
	"github.com/hupe1980/costmesh/task"
)

// Executor processes one task's incoming message and drives its manager to a
// terminal state. Implementations own error conversion: Execute never
// returns; every outcome lands in the task as completed, failed or canceled.
type Executor interface {
	Execute(ctx context.Context, mgr *task.Manager, msg a2a.Message)

	// CancelTask stops the in-flight execution for a task id, if any.
	CancelTask(taskID string) bool
}

// Specialist is the parameterized agent executor: instruction text plus a
// run loop engine configured with the agent's capability registry. One
// Specialist serves many concurrent tasks; each Execute call runs its own
// engine exchange.
type Specialist struct {
	card         a2a.AgentCard
	instructions string
	engine       *runloop.Engine
	logger       logging.Logger

	mu     sync.Mutex
	active map[string]context.CancelFunc // taskID -> cancel
}

// SpecialistOptions configure a Specialist.
type SpecialistOptions struct {
	Logger logging.Logger
}

// NewSpecialist constructs a specialist agent.
func NewSpecialist(card a2a.AgentCard, instructions string, engine *runloop.Engine, optFns ...func(o *SpecialistOptions)) *Specialist {
	opts := SpecialistOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Specialist{
		card:         card,
		instructions: instructions,
		engine:       engine,
		logger:       opts.Logger.With("agent", card.Name),
		active:       make(map[string]context.CancelFunc),
	}
}

// Card returns the published descriptor of this agent.
func (s *Specialist) Card() a2a.AgentCard { return s.card }

// Execute implements Executor: submitted -> working -> terminal.
func (s *Specialist) Execute(ctx context.Context, mgr *task.Manager, msg a2a.Message) {
	ctx, cancel := context.WithCancel(ctx)
	s.register(mgr.ID(), cancel)
	defer s.unregister(mgr.ID())
	defer cancel()

	if err := mgr.StartWork(); err != nil {
		// Only possible if the task was canceled before execution started.
		s.logger.Warn("agent.execute.not_started", "task_id", mgr.ID(), "error", err.Error())
		return
	}

	texts, err := s.engine.Execute(ctx, runloop.ExecuteRequest{
		ContextID:    mgr.ContextID(),
		Instructions: s.instructions,
		Message:      msg.Text(),
	})

	switch {
	case err == nil:
		if err := mgr.Complete(strings.Join(texts, "\n\n")); err != nil {
			s.logger.Warn("agent.execute.complete_rejected", "task_id", mgr.ID(), "error", err.Error())
		}
	case errors.Is(err, context.Canceled):
		if err := mgr.Cancel("Task was canceled."); err != nil {
			s.logger.Warn("agent.execute.cancel_rejected", "task_id", mgr.ID(), "error", err.Error())
		}
	default:
		s.logger.Error("agent.execute.failed", "task_id", mgr.ID(), "error", err.Error())
		if err := mgr.Failed(failureMessage(err)); err != nil {
			s.logger.Warn("agent.execute.failed_rejected", "task_id", mgr.ID(), "error", err.Error())
		}
	}
}

// CancelTask implements Executor.
func (s *Specialist) CancelTask(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.active[taskID]
	if ok {
		cancel()
	}
	return ok
}

func (s *Specialist) register(taskID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[taskID] = cancel
}

func (s *Specialist) unregister(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, taskID)
}

// failureMessage maps run loop failures to the human-readable message a
// failed task carries. Never a raw stack trace.
func failureMessage(err error) string {
	var runFailed *runloop.RunFailedError
	switch {
	case errors.Is(err, runloop.ErrRunTimeout):
		return "The request timed out before the agent could produce an answer."
	case errors.As(err, &runFailed):
		return "The agent could not process the request: " + runFailed.Reason
	default:
		return "An error occurred while processing the request: " + err.Error()
	}
}
