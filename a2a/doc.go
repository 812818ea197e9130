// Package a2a implements the agent-to-agent wire protocol used between the
// routing agent and the specialist agents: capability card discovery over a
// well-known HTTP path, and a JSON-RPC request/response surface for sending
// messages and polling tasks.
//
// The package is transport only. Task lifecycle semantics live in the task
// package; conversation semantics live in runloop. Components here:
//
//   - AgentCard / AgentSkill: the published descriptor of a remote agent
//   - Message / Part / Task / TaskStatus: the protocol data model
//   - CardResolver: fetches cards, with partial-failure tolerant fan-out
//   - Client: a typed connection to one remote agent (message/send,
//     tasks/get, tasks/cancel, and a bounded wait for terminal state)
package a2a
