package runloop

import (
	"errors"
	"fmt"
)

// ErrRunTimeout reports a run that exhausted the engine's iteration cap or
// wall-clock bound before reaching a terminal state. Surfaced to the owning
// task as a failed transition.
var ErrRunTimeout = errors.New("run did not reach a terminal state within the configured bound")

// ErrRunCanceled reports a run stopped by an explicit cancel request.
var ErrRunCanceled = errors.New("run canceled")

// RunFailedError carries the model-reported reason of a failed run.
type RunFailedError struct {
	RunID  string
	Reason string
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("run %s failed: %s", e.RunID, e.Reason)
}
