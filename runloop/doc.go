// Package runloop drives one conversational exchange with a model to a final
// textual answer, executing model-requested tool calls along the way.
//
// The split mirrors the hosted-agent services this system integrates with:
//
//   - RunService is the opaque conversational service boundary: threads,
//     runs, a poll-visible run status, and a submit endpoint for tool
//     outputs. LocalService implements it in-process over any model.Model.
//   - Engine is the host side of the run loop contract: it polls a run with
//     exponential backoff under an iteration cap and a wall-clock timeout,
//     answers every ToolCall with exactly one ToolOutput via the capability
//     registry, and converts capability failures into model-visible error
//     payloads instead of surfacing them to the caller.
//
// Errors that prevent the run from making progress at all (RunFailedError,
// ErrRunTimeout) propagate to the owning task as a failed transition.
package runloop
