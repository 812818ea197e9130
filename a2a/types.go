package a2a

import (
	"strings"
	"time"

	"github.com/hupe1980/costmesh/internal/util"
)

// AgentCardWellKnownPath is the relative path agents publish their card under.
const AgentCardWellKnownPath = "/.well-known/agent-card.json"

// AgentCard is the immutable descriptor of a remote agent: identity, address
// and advertised capabilities. Cards are created at discovery time and never
// mutated; name plus url is sufficient to reconstruct a connection without
// re-resolving the card.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	Skills             []AgentSkill      `json:"skills,omitempty"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
}

// AgentCapabilities flags optional protocol features of an agent.
type AgentCapabilities struct {
	Streaming bool `json:"streaming,omitempty"`
}

// AgentSkill describes one advertised capability of an agent, including
// example phrasings that help a routing model pick the right specialist.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// Role identifies the author side of a message.
type Role string

const (
	// RoleUser marks messages authored by the requesting side.
	RoleUser Role = "user"
	// RoleAgent marks messages authored by an agent.
	RoleAgent Role = "agent"
)

// PartKindText is the kind discriminator for text parts. Text parts are the
// only part kind this protocol surface requires.
const PartKindText = "text"

// Part is one content segment of a message, discriminated by Kind.
type Part struct {
	Kind string         `json:"kind"`
	Text string         `json:"text,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Message is an immutable role-attributed sequence of parts with a unique id
// per send.
type Message struct {
	Kind      string `json:"kind"` // always "message"
	MessageID string `json:"messageId"`
	Role      Role   `json:"role"`
	Parts     []Part `json:"parts"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
}

// NewTextMessage constructs a message holding a single text part.
func NewTextMessage(role Role, text string) Message {
	return Message{
		Kind:      "message",
		MessageID: util.NewID(),
		Role:      role,
		Parts:     []Part{{Kind: PartKindText, Text: text}},
	}
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// TaskState enumerates the lifecycle states of a task.
type TaskState string

const (
	// TaskStateSubmitted is the initial state of every task.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking marks a task whose agent is processing it.
	TaskStateWorking TaskState = "working"
	// TaskStateCompleted is the successful terminal state.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed is the unsuccessful terminal state.
	TaskStateFailed TaskState = "failed"
	// TaskStateCanceled is the terminal state reached via an explicit cancel.
	TaskStateCanceled TaskState = "canceled"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// TaskStatus is the current state of a task plus the message that accompanied
// the transition into it.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// NewTaskStatus stamps a status with the current UTC time.
func NewTaskStatus(state TaskState, message *Message) TaskStatus {
	return TaskStatus{
		State:     state,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Task is the unit of work tracking one request from submission to a terminal
// outcome. History holds the ordered messages exchanged for the task,
// including intermediate status messages.
type Task struct {
	Kind      string     `json:"kind"` // always "task"
	ID        string     `json:"id"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	History   []Message  `json:"history,omitempty"`
}

// ResultText returns the task's final agent-authored text: the status message
// if present, otherwise the last agent message in history.
func (t *Task) ResultText() string {
	if t.Status.Message != nil {
		if text := t.Status.Message.Text(); text != "" {
			return text
		}
	}
	for i := len(t.History) - 1; i >= 0; i-- {
		if t.History[i].Role == RoleAgent {
			if text := t.History[i].Text(); text != "" {
				return text
			}
		}
	}
	return ""
}
