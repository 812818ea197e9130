package task

import (
	"fmt"
	"sync"

	"github.com/hupe1980/costmesh/a2a"
	"github.com/hupe1980/costmesh/logging"
)

// Event is delivered to listeners on every status transition. Final marks the
// transition into a terminal state.
type Event struct {
	Task  a2a.Task
	Final bool
}

// Listener receives task events. Listeners are invoked synchronously under
// the manager's lock: the transition call does not return before every
// listener has seen the event. Listeners must not call back into the manager.
type Listener func(Event)

// Manager owns exactly one task and serializes its status transitions.
// It is scoped to one request: create, drive to a terminal state, discard.
type Manager struct {
	mu        sync.Mutex
	task      *a2a.Task
	taskID    string
	contextID string
	submitted bool
	listeners []Listener
	done      chan struct{}
	logger    logging.Logger
}

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	Logger logging.Logger
}

// NewManager constructs a manager for the given task and context ids. The
// task itself is not created until Submit.
func NewManager(taskID, contextID string, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		taskID:    taskID,
		contextID: contextID,
		done:      make(chan struct{}),
		logger:    opts.Logger,
	}
}

// ID returns the task id.
func (m *Manager) ID() string { return m.taskID }

// ContextID returns the context id grouping related tasks.
func (m *Manager) ContextID() string { return m.contextID }

// Subscribe registers a listener for subsequent transitions.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Done returns a channel closed when the task reaches a terminal state.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Task returns a snapshot of the task, or nil before Submit. The snapshot is
// a deep-enough copy: mutating it does not affect the manager's state.
func (m *Manager) Task() *a2a.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() *a2a.Task {
	if m.task == nil {
		return nil
	}
	snap := *m.task
	snap.History = make([]a2a.Message, len(m.task.History))
	copy(snap.History, m.task.History)
	return &snap
}

// Submit creates the task in the submitted state. A second call is a usage
// error.
func (m *Manager) Submit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitted {
		return fmt.Errorf("%w: task %s", ErrAlreadySubmitted, m.taskID)
	}
	m.submitted = true
	m.task = &a2a.Task{
		Kind:      "task",
		ID:        m.taskID,
		ContextID: m.contextID,
		Status:    a2a.NewTaskStatus(a2a.TaskStateSubmitted, nil),
	}

	m.logger.Info("task.submitted", "task_id", m.taskID, "context_id", m.contextID)
	m.publishLocked(false)
	return nil
}

// AddMessage appends a message to the task history without a status change.
// Used to record the incoming request message.
func (m *Manager) AddMessage(msg a2a.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.task == nil {
		return fmt.Errorf("%w: task %s not submitted", ErrInvalidTransition, m.taskID)
	}
	if m.task.Status.State.Terminal() {
		return fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, m.taskID, m.task.Status.State)
	}
	m.task.History = append(m.task.History, msg)
	return nil
}

// StartWork transitions submitted -> working.
func (m *Manager) StartWork() error {
	return m.transition(a2a.TaskStateWorking, nil, a2a.TaskStateSubmitted)
}

// UpdateStatus appends an intermediate agent message while remaining in
// working.
func (m *Manager) UpdateStatus(text string) error {
	msg := a2a.NewTextMessage(a2a.RoleAgent, text)
	return m.transition(a2a.TaskStateWorking, &msg, a2a.TaskStateWorking)
}

// Complete is the successful terminal transition, carrying the final message.
func (m *Manager) Complete(text string) error {
	msg := a2a.NewTextMessage(a2a.RoleAgent, text)
	return m.transition(a2a.TaskStateCompleted, &msg, a2a.TaskStateSubmitted, a2a.TaskStateWorking)
}

// Failed is the unsuccessful terminal transition, carrying a human-readable
// error message.
func (m *Manager) Failed(text string) error {
	msg := a2a.NewTextMessage(a2a.RoleAgent, text)
	return m.transition(a2a.TaskStateFailed, &msg, a2a.TaskStateSubmitted, a2a.TaskStateWorking)
}

// Cancel is the terminal transition reached via an explicit cancel request,
// valid from any non-terminal state.
func (m *Manager) Cancel(text string) error {
	msg := a2a.NewTextMessage(a2a.RoleAgent, text)
	return m.transition(a2a.TaskStateCanceled, &msg, a2a.TaskStateSubmitted, a2a.TaskStateWorking)
}

// transition applies a status change if the current state is one of from.
func (m *Manager) transition(to a2a.TaskState, msg *a2a.Message, from ...a2a.TaskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.task == nil {
		return fmt.Errorf("%w: task %s not submitted", ErrInvalidTransition, m.taskID)
	}

	current := m.task.Status.State
	allowed := false
	for _, f := range from {
		if current == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: task %s cannot move %s -> %s", ErrInvalidTransition, m.taskID, current, to)
	}

	if msg != nil {
		stamped := *msg
		stamped.TaskID = m.taskID
		stamped.ContextID = m.contextID
		msg = &stamped
		m.task.History = append(m.task.History, stamped)
	}
	m.task.Status = a2a.NewTaskStatus(to, msg)

	final := to.Terminal()
	m.logger.Info("task.transition", "task_id", m.taskID, "from", current, "to", to, "final", final)
	m.publishLocked(final)

	if final {
		close(m.done)
	}
	return nil
}

// publishLocked delivers the current snapshot to every listener before the
// caller's transition returns. At-least-once for local listeners; no
// durability beyond the process.
func (m *Manager) publishLocked(final bool) {
	if len(m.listeners) == 0 {
		return
	}
	ev := Event{Task: *m.snapshotLocked(), Final: final}
	for _, l := range m.listeners {
		l(ev)
	}
}
