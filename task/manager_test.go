package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/costmesh/a2a"
)

func newSubmitted(t *testing.T) *Manager {
	t.Helper()
	m := NewManager("task-1", "ctx-1")
	require.NoError(t, m.Submit())
	return m
}

// -------------------- Lifecycle Tests --------------------

func TestManager_SubmitOnce(t *testing.T) {
	m := NewManager("task-1", "ctx-1")

	require.NoError(t, m.Submit())
	assert.Equal(t, a2a.TaskStateSubmitted, m.Task().Status.State)

	err := m.Submit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestManager_HappyPath(t *testing.T) {
	m := newSubmitted(t)

	require.NoError(t, m.StartWork())
	assert.Equal(t, a2a.TaskStateWorking, m.Task().Status.State)

	require.NoError(t, m.UpdateStatus("analyzing resources"))
	assert.Equal(t, a2a.TaskStateWorking, m.Task().Status.State)

	require.NoError(t, m.Complete("3 resources found"))
	snap := m.Task()
	assert.Equal(t, a2a.TaskStateCompleted, snap.Status.State)
	assert.Equal(t, "3 resources found", snap.ResultText())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed after terminal transition")
	}
}

func TestManager_NoTransitionOutOfTerminal(t *testing.T) {
	m := newSubmitted(t)
	require.NoError(t, m.StartWork())
	require.NoError(t, m.Complete("done"))

	assert.ErrorIs(t, m.StartWork(), ErrInvalidTransition)
	assert.ErrorIs(t, m.Failed("late failure"), ErrInvalidTransition)
	assert.ErrorIs(t, m.Cancel("late cancel"), ErrInvalidTransition)
	assert.ErrorIs(t, m.Complete("again"), ErrInvalidTransition)

	assert.Equal(t, a2a.TaskStateCompleted, m.Task().Status.State)
}

func TestManager_CancelFromSubmitted(t *testing.T) {
	m := newSubmitted(t)

	require.NoError(t, m.Cancel("canceled before work started"))
	assert.Equal(t, a2a.TaskStateCanceled, m.Task().Status.State)

	// Execution arriving after the cancel must be rejected.
	assert.ErrorIs(t, m.StartWork(), ErrInvalidTransition)
}

func TestManager_FailedCarriesMessage(t *testing.T) {
	m := newSubmitted(t)
	require.NoError(t, m.StartWork())
	require.NoError(t, m.Failed("The request timed out."))

	snap := m.Task()
	assert.Equal(t, a2a.TaskStateFailed, snap.Status.State)
	assert.Equal(t, "The request timed out.", snap.ResultText())
}

func TestManager_TransitionsBeforeSubmit(t *testing.T) {
	m := NewManager("task-1", "ctx-1")
	assert.ErrorIs(t, m.StartWork(), ErrInvalidTransition)
	assert.Nil(t, m.Task())
}

// -------------------- History & Listener Tests --------------------

func TestManager_MessagesStampedAndAppended(t *testing.T) {
	m := newSubmitted(t)

	incoming := a2a.NewTextMessage(a2a.RoleUser, "list my VMs")
	require.NoError(t, m.AddMessage(incoming))
	require.NoError(t, m.StartWork())
	require.NoError(t, m.Complete("done"))

	history := m.Task().History
	require.Len(t, history, 2)
	assert.Equal(t, a2a.RoleUser, history[0].Role)
	assert.Equal(t, a2a.RoleAgent, history[1].Role)
	assert.Equal(t, "task-1", history[1].TaskID)
	assert.Equal(t, "ctx-1", history[1].ContextID)
}

func TestManager_ListenersSeeEventsSynchronously(t *testing.T) {
	m := NewManager("task-1", "ctx-1")

	var events []Event
	m.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, m.Submit())
	require.NoError(t, m.StartWork())
	require.NoError(t, m.Complete("done"))

	// Each transition call returned only after its event was delivered.
	require.Len(t, events, 3)
	assert.Equal(t, a2a.TaskStateSubmitted, events[0].Task.Status.State)
	assert.False(t, events[0].Final)
	assert.Equal(t, a2a.TaskStateWorking, events[1].Task.Status.State)
	assert.False(t, events[1].Final)
	assert.Equal(t, a2a.TaskStateCompleted, events[2].Task.Status.State)
	assert.True(t, events[2].Final)
}

func TestManager_SnapshotIsDetached(t *testing.T) {
	m := newSubmitted(t)
	require.NoError(t, m.AddMessage(a2a.NewTextMessage(a2a.RoleUser, "hello")))

	snap := m.Task()
	snap.Status.State = a2a.TaskStateFailed
	snap.History = append(snap.History, a2a.NewTextMessage(a2a.RoleAgent, "extra"))

	assert.Equal(t, a2a.TaskStateSubmitted, m.Task().Status.State)
	assert.Len(t, m.Task().History, 1)
}

// -------------------- Store Tests --------------------

func TestStore_AddGetRemove(t *testing.T) {
	s := NewStore()
	m := NewManager("task-1", "ctx-1")

	require.NoError(t, s.Add(m))
	assert.Equal(t, 1, s.Len())

	got, err := s.Get("task-1")
	require.NoError(t, err)
	assert.Same(t, m, got)

	assert.Error(t, s.Add(m)) // duplicate id

	s.Remove("task-1")
	_, err = s.Get("task-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
