package a2a

import (
	"errors"
	"fmt"
)

// DiscoveryError reports a failed card resolution. Malformed distinguishes a
// card that was fetched but could not be decoded or validated from a
// connection-level failure.
type DiscoveryError struct {
	URL       string
	Malformed bool
	Cause     error
}

func (e *DiscoveryError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("discovery failed: malformed agent card from %s: %v", e.URL, e.Cause)
	}
	return fmt.Sprintf("discovery failed: cannot fetch agent card from %s: %v", e.URL, e.Cause)
}

func (e *DiscoveryError) Unwrap() error { return e.Cause }

// RemoteError reports a transport-level failure talking to a remote agent, or
// a JSON-RPC error envelope returned by it.
type RemoteError struct {
	Agent string
	URL   string
	Cause error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote agent %s unavailable (%s): %v", e.Agent, e.URL, e.Cause)
}

func (e *RemoteError) Unwrap() error { return e.Cause }

// ResponseShapeError reports a remote that answered the call but did not
// return the expected result variant. The caller must abort rather than guess
// at intent.
type ResponseShapeError struct {
	Agent string
	Got   string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("remote agent %s returned unexpected response shape %q, expected task", e.Agent, e.Got)
}

// ErrWaitTimeout marks a remote task that did not reach a terminal state
// within the configured bound. Surfaced wrapped in a RemoteError.
var ErrWaitTimeout = errors.New("timed out waiting for remote task to reach a terminal state")
