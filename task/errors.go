package task

import "errors"

// ErrAlreadySubmitted reports a second Submit call on the same manager. A
// usage error, not a recoverable condition.
var ErrAlreadySubmitted = errors.New("task already submitted")

// ErrInvalidTransition reports a status transition the state machine forbids,
// including any transition out of a terminal state. Treated as a local
// assertion failure by callers, never retried.
var ErrInvalidTransition = errors.New("invalid task transition")

// ErrNotFound reports a task id the store does not hold.
var ErrNotFound = errors.New("task not found")
