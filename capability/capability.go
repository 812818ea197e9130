// Package capability implements the function calling subsystem that lets agents
// invoke structured capabilities (lookups, computations, delegations) with schema
// validated arguments and a closed set of failure modes.
//
// A Capability is a named, JSON-schema-described action. The Registry maps
// capability names to implementations and is the single dispatch point for
// model-requested tool calls: lookup failures, argument validation failures and
// handler faults all surface as typed errors so the run loop can convert them
// into model-visible error payloads instead of crashing the exchange.
package capability

import (
	"context"
	"errors"
	"fmt"
)

// Capability defines a named action an agent can execute on the model's behalf.
//
// Implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names recommended)
//   - Define a proper JSON schema for parameters
//   - Be safe for concurrent Call invocations, or document otherwise
type Capability interface {
	// Name returns the unique identifier for this capability.
	Name() string

	// Description returns a human-readable description provided to the model
	// so it understands when and how to use the capability.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the capability with already-validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Definition is the declarative form of a capability exposed to a model.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ErrUnknownCapability is returned by Registry.Invoke when no capability with
// the requested name is registered.
var ErrUnknownCapability = errors.New("unknown capability")

// InvalidArgumentsError reports arguments that do not satisfy the capability's
// parameter schema (or could not be decoded at all).
type InvalidArgumentsError struct {
	Capability string
	Cause      error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for capability %s: %v", e.Capability, e.Cause)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Cause }

// ExecutionError wraps a handler-internal fault. The original cause is
// preserved so callers can log it; the run loop reports only the message to
// the model.
type ExecutionError struct {
	Capability string
	Cause      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }
